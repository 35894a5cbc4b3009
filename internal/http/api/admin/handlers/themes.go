package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fovdark/fovdark/internal/cache"
	api "github.com/fovdark/fovdark/internal/http/api"
	"github.com/fovdark/fovdark/internal/models"
	"github.com/fovdark/fovdark/internal/validate"
)

// ThemeHandler manages admin endpoints for site themes.
type ThemeHandler struct {
	db    *gorm.DB    // Database handle for theme records.
	cache cache.Cache // Shared cache invalidated on mutation.
}

// NewThemeHandler constructs a theme handler.
func NewThemeHandler(db *gorm.DB, c cache.Cache) *ThemeHandler {
	return &ThemeHandler{db: db, cache: c}
}

// normalizeThemeVariables validates the variables payload: a JSON object of
// CSS custom-property values. Values starting with "#" must be hex colors.
func normalizeThemeVariables(raw json.RawMessage) (datatypes.JSON, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return datatypes.JSON([]byte("{}")), nil
	}
	var variables map[string]string
	if errUnmarshal := json.Unmarshal(raw, &variables); errUnmarshal != nil {
		return nil, errors.New("invalid variables")
	}
	cleaned := make(map[string]string, len(variables))
	for name, value := range variables {
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" {
			return nil, errors.New("empty variable name")
		}
		if strings.HasPrefix(value, "#") && !validate.HexColor(value) {
			return nil, errors.New("invalid color value")
		}
		cleaned[name] = value
	}
	rawVariables, errMarshal := json.Marshal(cleaned)
	if errMarshal != nil {
		return nil, errMarshal
	}
	return datatypes.JSON(rawVariables), nil
}

// createThemeRequest captures the payload for creating a theme.
type createThemeRequest struct {
	Name      string          `json:"name"`       // Display name.
	Variables json.RawMessage `json:"variables"`  // CSS custom-property map.
	CustomCSS string          `json:"custom_css"` // Free-form CSS overrides.
}

// Create validates input and inserts a new theme. New themes start inactive.
func (h *ThemeHandler) Create(c *gin.Context) {
	var body createThemeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	variables, errVariables := normalizeThemeVariables(body.Variables)
	if errVariables != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid variables"})
		return
	}

	theme := models.Theme{
		Name:      name,
		Variables: variables,
		CustomCSS: body.CustomCSS,
		IsActive:  false,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&theme).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create theme failed"})
		return
	}
	c.JSON(http.StatusCreated, h.formatTheme(&theme))
}

// List returns all themes, active first then newest.
func (h *ThemeHandler) List(c *gin.Context) {
	var rows []models.Theme
	if errFind := h.db.WithContext(c.Request.Context()).
		Order("is_active DESC, created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list themes failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, h.formatTheme(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"themes": out})
}

// Get fetches a theme by ID.
func (h *ThemeHandler) Get(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var theme models.Theme
	if errFind := h.db.WithContext(c.Request.Context()).First(&theme, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, h.formatTheme(&theme))
}

// updateThemeRequest captures optional fields for theme updates.
type updateThemeRequest struct {
	Name      *string          `json:"name"`       // Optional name update.
	Variables *json.RawMessage `json:"variables"`  // Optional variables payload.
	CustomCSS *string          `json:"custom_css"` // Optional CSS overrides.
}

// Update validates and applies theme field updates.
func (h *ThemeHandler) Update(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body updateThemeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
			return
		}
		updates["name"] = name
	}
	if body.Variables != nil {
		variables, errVariables := normalizeThemeVariables(*body.Variables)
		if errVariables != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid variables"})
			return
		}
		updates["variables"] = variables
	}
	if body.CustomCSS != nil {
		updates["custom_css"] = *body.CustomCSS
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Theme{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.invalidate(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Activate makes the theme the single active one. Deactivating the previous
// theme and activating the new one happen in the same transaction, so
// readers never observe zero or two active themes.
func (h *ThemeHandler) Activate(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var theme models.Theme
		if errFind := tx.First(&theme, id).Error; errFind != nil {
			return errFind
		}
		now := time.Now().UTC()
		if errClear := tx.Model(&models.Theme{}).Where("is_active = ?", true).
			Updates(map[string]any{"is_active": false, "updated_at": now}).Error; errClear != nil {
			return errClear
		}
		return tx.Model(&models.Theme{}).Where("id = ?", id).
			Updates(map[string]any{"is_active": true, "updated_at": now}).Error
	})
	if errTx != nil {
		if errors.Is(errTx, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "activate failed"})
		return
	}
	h.invalidate(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a theme. The active theme cannot be deleted.
func (h *ThemeHandler) Delete(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var theme models.Theme
	if errFind := h.db.WithContext(c.Request.Context()).First(&theme, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if theme.IsActive {
		c.JSON(http.StatusConflict, gin.H{"error": "cannot delete the active theme"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.Theme{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ThemeHandler) invalidate(c *gin.Context) {
	if h.cache != nil {
		h.cache.DeletePrefix(c.Request.Context(), cache.SitePrefix)
	}
}

// formatTheme converts a theme model into a response payload.
func (h *ThemeHandler) formatTheme(theme *models.Theme) gin.H {
	return gin.H{
		"id":         theme.ID,
		"name":       theme.Name,
		"variables":  theme.Variables,
		"custom_css": theme.CustomCSS,
		"is_active":  theme.IsActive,
		"created_at": theme.CreatedAt,
		"updated_at": theme.UpdatedAt,
	}
}
