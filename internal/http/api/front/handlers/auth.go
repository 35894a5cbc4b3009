package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fovdark/fovdark/internal/config"
	"github.com/fovdark/fovdark/internal/metrics"
	"github.com/fovdark/fovdark/internal/models"
	"github.com/fovdark/fovdark/internal/ratelimit"
	"github.com/fovdark/fovdark/internal/security"
	internalsettings "github.com/fovdark/fovdark/internal/settings"
	"github.com/fovdark/fovdark/internal/validate"
)

// AuthHandler manages storefront signup, login, and profile endpoints.
type AuthHandler struct {
	db      *gorm.DB           // Database handle for account records.
	jwtCfg  config.JWTConfig   // Token signing settings.
	limiter *ratelimit.Manager // Login rate limiter, may be nil.
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig, limiter *ratelimit.Manager) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg, limiter: limiter}
}

// registrationsOpen reads the general settings blob flag gating signups.
func registrationsOpen() bool {
	raw, ok := internalsettings.DBConfigValue(internalsettings.GeneralKey)
	if !ok {
		return true
	}
	var general struct {
		RegistrationsOpen *bool `json:"registrations_open"`
	}
	if errUnmarshal := json.Unmarshal(raw, &general); errUnmarshal != nil || general.RegistrationsOpen == nil {
		return true
	}
	return *general.RegistrationsOpen
}

// signupRequest captures the registration payload.
type signupRequest struct {
	Email     string `json:"email"`      // Login email.
	Password  string `json:"password"`   // Plain-text password.
	FirstName string `json:"first_name"` // Given name.
	LastName  string `json:"last_name"`  // Family name.
}

// Signup registers a new storefront account and issues a JWT.
func (h *AuthHandler) Signup(c *gin.Context) {
	if !registrationsOpen() {
		c.JSON(http.StatusForbidden, gin.H{"error": "registrations are closed"})
		return
	}

	var body signupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(body.Email))
	if !validate.Email(email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}
	if len(body.Password) < validate.MinPasswordLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password too short"})
		return
	}

	var existing int64
	if errCount := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("email = ?", email).Count(&existing).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	hashed, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	account := models.User{
		Email:     email,
		Password:  hashed,
		FirstName: strings.TrimSpace(body.FirstName),
		LastName:  strings.TrimSpace(body.LastName),
		Role:      models.RoleUser,
		Active:    true,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&account).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create account failed"})
		return
	}

	token, errSign := security.SignUserToken(h.jwtCfg.Secret, account.ID, account.Email, account.Role, h.jwtCfg.Expiry)
	if errSign != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": formatAccount(&account)})
}

// loginRequest captures the storefront login payload.
type loginRequest struct {
	Email    string `json:"email"`    // Account email.
	Password string `json:"password"` // Plain-text password.
}

// Login verifies credentials and issues a JWT. Attempts are rate limited
// per client address.
func (h *AuthHandler) Login(c *gin.Context) {
	if result, errAllow := h.limiter.AllowLogin(c.Request.Context(), c.ClientIP()); errAllow == nil && !result.Allowed {
		metrics.LoginAttempts.WithLabelValues("rate_limited").Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
		return
	}

	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	var account models.User
	if errFind := h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&account).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if !security.CheckPassword(account.Password, body.Password) {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !account.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "account disabled"})
		return
	}

	token, errSign := security.SignUserToken(h.jwtCfg.Secret, account.ID, account.Email, account.Role, h.jwtCfg.Expiry)
	if errSign != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, gin.H{"token": token, "user": formatAccount(&account)})
}

// Me returns the authenticated account profile.
func (h *AuthHandler) Me(c *gin.Context) {
	account := CurrentUser(c)
	if account == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": formatAccount(account)})
}

// updateProfileRequest captures optional profile fields.
type updateProfileRequest struct {
	FirstName *string `json:"first_name"` // Optional given name.
	LastName  *string `json:"last_name"`  // Optional family name.
	AvatarURL *string `json:"avatar_url"` // Optional avatar URL.
}

// UpdateProfile applies profile field updates for the authenticated account.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	account := CurrentUser(c)
	if account == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body updateProfileRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if body.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*body.FirstName)
	}
	if body.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*body.LastName)
	}
	if body.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*body.AvatarURL)
	}

	if errSave := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", account.ID).Updates(updates).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// changePasswordRequest captures the self-service password change payload.
type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"` // Current plain-text password.
	NewPassword     string `json:"new_password"`     // New plain-text password.
}

// ChangePassword verifies the current password and stores a new one.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	account := CurrentUser(c)
	if account == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body changePasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !security.CheckPassword(account.Password, body.CurrentPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid current password"})
		return
	}
	if len(body.NewPassword) < validate.MinPasswordLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password too short"})
		return
	}
	hashed, errHash := security.HashPassword(body.NewPassword)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}
	if errSave := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{"password": hashed, "updated_at": time.Now().UTC()}).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// CurrentUser returns the account loaded by the auth middleware.
func CurrentUser(c *gin.Context) *models.User {
	value, ok := c.Get("authUser")
	if !ok {
		return nil
	}
	account, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return account
}

// formatAccount converts a user model into a profile payload.
func formatAccount(u *models.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"avatar_url": u.AvatarURL,
		"role":       u.Role,
		"created_at": u.CreatedAt,
	}
}
