package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fovdark/fovdark/internal/db"
	api "github.com/fovdark/fovdark/internal/http/api"
	"github.com/fovdark/fovdark/internal/models"
	"github.com/fovdark/fovdark/internal/security"
	"github.com/fovdark/fovdark/internal/validate"
)

// UserHandler manages admin CRUD endpoints for user accounts.
type UserHandler struct {
	db *gorm.DB // Database handle for user records.
}

// NewUserHandler constructs a user handler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// createUserRequest captures the payload for creating a user.
type createUserRequest struct {
	Email     string `json:"email"`      // Login email.
	Password  string `json:"password"`   // Plain-text password.
	FirstName string `json:"first_name"` // Given name.
	LastName  string `json:"last_name"`  // Family name.
	Role      string `json:"role"`       // Account role, defaults to user.
	Active    *bool  `json:"active"`     // Optional active flag.
}

// Create validates input and inserts a new user account.
func (h *UserHandler) Create(c *gin.Context) {
	var body createUserRequest
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
	role := strings.TrimSpace(body.Role)
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
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

	active := true
	if body.Active != nil {
		active = *body.Active
	}

	account := models.User{
		Email:     email,
		Password:  hashed,
		FirstName: strings.TrimSpace(body.FirstName),
		LastName:  strings.TrimSpace(body.LastName),
		Role:      role,
		Active:    active,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&account).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
		return
	}
	c.JSON(http.StatusCreated, h.formatUser(&account))
}

// List returns users newest-first with pagination and optional search.
func (h *UserHandler) List(c *gin.Context) {
	page := api.ParsePage(c)
	q := h.db.WithContext(c.Request.Context()).Model(&models.User{})

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := db.NormalizeLikePattern(h.db, "%"+search+"%")
		q = q.Where(
			h.db.Where(db.CaseInsensitiveLikeExpr(h.db, "email"), pattern).
				Or(db.CaseInsensitiveLikeExpr(h.db, "first_name"), pattern).
				Or(db.CaseInsensitiveLikeExpr(h.db, "last_name"), pattern),
		)
	}
	if roleQ := strings.TrimSpace(c.Query("role")); roleQ != "" {
		q = q.Where("role = ?", roleQ)
	}
	if activeQ := strings.TrimSpace(c.Query("active")); activeQ == "true" || activeQ == "1" {
		q = q.Where("active = ?", true)
	} else if activeQ == "false" || activeQ == "0" {
		q = q.Where("active = ?", false)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	var rows []models.User
	if errFind := q.Order("created_at DESC, id DESC").
		Limit(page.PerPage).Offset(page.Offset()).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list users failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, h.formatUser(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"users":    out,
		"total":    total,
		"page":     page.Number,
		"per_page": page.PerPage,
	})
}

// Get fetches a user by ID.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var account models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&account, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, h.formatUser(&account))
}

// updateUserRequest captures optional fields for user updates.
type updateUserRequest struct {
	Email     *string `json:"email"`      // Optional email update.
	FirstName *string `json:"first_name"` // Optional given name.
	LastName  *string `json:"last_name"`  // Optional family name.
	AvatarURL *string `json:"avatar_url"` // Optional avatar URL.
	Role      *string `json:"role"`       // Optional role update.
	Active    *bool   `json:"active"`     // Optional active flag.
	HWID      *string `json:"hwid"`       // Optional HWID override.
}

// Update validates and applies user field updates.
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body updateUserRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{
		"updated_at": time.Now().UTC(),
	}
	if body.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*body.Email))
		if !validate.Email(email) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
			return
		}
		var clash int64
		if errCount := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
			Where("email = ? AND id <> ?", email, id).Count(&clash).Error; errCount != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		if clash > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		updates["email"] = email
	}
	if body.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*body.FirstName)
	}
	if body.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*body.LastName)
	}
	if body.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*body.AvatarURL)
	}
	if body.Role != nil {
		role := strings.TrimSpace(*body.Role)
		if role != models.RoleUser && role != models.RoleAdmin {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return
		}
		updates["role"] = role
	}
	if body.Active != nil {
		updates["active"] = *body.Active
	}
	if body.HWID != nil {
		updates["hwid"] = strings.TrimSpace(*body.HWID)
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a user and their dependent rows in one transaction. Other
// users' data is untouched.
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if errDel := tx.Where("user_id = ?", id).Delete(&models.Review{}).Error; errDel != nil {
			return errDel
		}
		if errDel := tx.Where("user_id = ?", id).Delete(&models.License{}).Error; errDel != nil {
			return errDel
		}
		var orderIDs []uint64
		if errFind := tx.Model(&models.Order{}).Where("user_id = ?", id).Pluck("id", &orderIDs).Error; errFind != nil {
			return errFind
		}
		if len(orderIDs) > 0 {
			if errDel := tx.Where("order_id IN ?", orderIDs).Delete(&models.OrderItem{}).Error; errDel != nil {
				return errDel
			}
			if errDel := tx.Where("id IN ?", orderIDs).Delete(&models.Order{}).Error; errDel != nil {
				return errDel
			}
		}
		return nil
	})
	if errTx != nil {
		if errors.Is(errTx, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Enable marks a user account as active.
func (h *UserHandler) Enable(c *gin.Context) {
	h.setActive(c, true)
}

// Disable marks a user account as inactive. The role is untouched.
func (h *UserHandler) Disable(c *gin.Context) {
	h.setActive(c, false)
}

func (h *UserHandler) setActive(c *gin.Context, active bool) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	res := h.db.WithContext(c.Request.Context()).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]any{"active": active, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// changePasswordRequest captures the admin-set password payload.
type changePasswordRequest struct {
	Password string `json:"password"` // New plain-text password.
}

// ChangePassword sets a new password for the user.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body changePasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(body.Password) < validate.MinPasswordLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password too short"})
		return
	}
	hashed, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]any{"password": hashed, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// formatUser converts a user model into a response payload. The password
// hash and TOTP secret never leave the server.
func (h *UserHandler) formatUser(u *models.User) gin.H {
	return gin.H{
		"id":           u.ID,
		"email":        u.Email,
		"first_name":   u.FirstName,
		"last_name":    u.LastName,
		"avatar_url":   u.AvatarURL,
		"role":         u.Role,
		"active":       u.Active,
		"hwid":         u.HWID,
		"totp_enabled": u.TOTPSecret != "",
		"created_at":   u.CreatedAt,
		"updated_at":   u.UpdatedAt,
	}
}
