package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fovdark/fovdark/internal/config"
	"github.com/fovdark/fovdark/internal/metrics"
	"github.com/fovdark/fovdark/internal/models"
	"github.com/fovdark/fovdark/internal/security"
	internalsettings "github.com/fovdark/fovdark/internal/settings"
)

// AuthHandler manages admin login and MFA endpoints.
type AuthHandler struct {
	db     *gorm.DB         // Database handle for account records.
	jwtCfg config.JWTConfig // Token signing settings.
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg}
}

// loginRequest captures the login payload.
type loginRequest struct {
	Email    string `json:"email"`     // Account email.
	Password string `json:"password"`  // Plain-text password.
	TOTPCode string `json:"totp_code"` // TOTP code, required when MFA is enabled.
}

// Login verifies credentials (and TOTP when enrolled) and issues a JWT for
// an admin account.
func (h *AuthHandler) Login(c *gin.Context) {
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
	if !account.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return
	}
	if !account.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "account disabled"})
		return
	}

	if account.TOTPSecret != "" {
		if strings.TrimSpace(body.TOTPCode) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "totp code required", "totp_required": true})
			return
		}
		if !security.ValidateTOTP(account.TOTPSecret, strings.TrimSpace(body.TOTPCode)) {
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid totp code"})
			return
		}
	}

	token, errSign := security.SignUserToken(h.jwtCfg.Secret, account.ID, account.Email, account.Role, h.jwtCfg.Expiry)
	if errSign != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":    account.ID,
			"email": account.Email,
			"role":  account.Role,
		},
	})
}

// MFAStatus reports whether the authenticated admin has TOTP enrolled.
func (h *AuthHandler) MFAStatus(c *gin.Context) {
	account := currentAdmin(c)
	if account == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"totp_enabled": account.TOTPSecret != ""})
}

// PrepareTOTP generates a pending TOTP secret for the authenticated admin.
// The secret becomes active after ConfirmTOTP verifies a code against it.
func (h *AuthHandler) PrepareTOTP(c *gin.Context) {
	account := currentAdmin(c)
	if account == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if account.TOTPSecret != "" {
		c.JSON(http.StatusConflict, gin.H{"error": "totp already enabled"})
		return
	}

	secret, url, errGenerate := security.GenerateTOTPSecret(internalsettings.SiteName(), account.Email)
	if errGenerate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate secret failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"secret": secret, "url": url})
}

// confirmTOTPRequest captures the TOTP enrollment confirmation payload.
type confirmTOTPRequest struct {
	Secret string `json:"secret"` // Secret from PrepareTOTP.
	Code   string `json:"code"`   // Current TOTP code for the secret.
}

// ConfirmTOTP verifies a code against the pending secret and stores it.
func (h *AuthHandler) ConfirmTOTP(c *gin.Context) {
	account := currentAdmin(c)
	if account == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body confirmTOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Secret) == "" || strings.TrimSpace(body.Code) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "secret and code are required"})
		return
	}
	if !security.ValidateTOTP(strings.TrimSpace(body.Secret), strings.TrimSpace(body.Code)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid totp code"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.User{}).Where("id = ?", account.ID).
		Update("totp_secret", strings.TrimSpace(body.Secret))
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// disableTOTPRequest captures the TOTP disable payload.
type disableTOTPRequest struct {
	Code string `json:"code"` // Current TOTP code.
}

// DisableTOTP removes the stored TOTP secret after verifying a code.
func (h *AuthHandler) DisableTOTP(c *gin.Context) {
	account := currentAdmin(c)
	if account == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if account.TOTPSecret == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "totp not enabled"})
		return
	}
	var body disableTOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !security.ValidateTOTP(account.TOTPSecret, strings.TrimSpace(body.Code)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid totp code"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.User{}).Where("id = ?", account.ID).
		Update("totp_secret", "")
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// currentAdmin returns the admin account loaded by the auth middleware.
func currentAdmin(c *gin.Context) *models.User {
	value, ok := c.Get("adminUser")
	if !ok {
		return nil
	}
	account, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return account
}
