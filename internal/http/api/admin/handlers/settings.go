package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fovdark/fovdark/internal/cache"
	"github.com/fovdark/fovdark/internal/models"
	internalsettings "github.com/fovdark/fovdark/internal/settings"
)

// SettingHandler manages admin endpoints for keyed JSON settings.
type SettingHandler struct {
	db    *gorm.DB    // Database handle for setting records.
	cache cache.Cache // Shared cache invalidated on mutation.
}

// NewSettingHandler constructs a setting handler.
func NewSettingHandler(db *gorm.DB, c cache.Cache) *SettingHandler {
	return &SettingHandler{db: db, cache: c}
}

// List returns all settings.
func (h *SettingHandler) List(c *gin.Context) {
	var rows []models.Setting
	if errFind := h.db.WithContext(c.Request.Context()).Order("key ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list settings failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, h.formatSetting(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"settings": out})
}

// Get fetches a setting by key.
func (h *SettingHandler) Get(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key"})
		return
	}
	var setting models.Setting
	if errFind := h.db.WithContext(c.Request.Context()).Where("key = ?", key).First(&setting).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, h.formatSetting(&setting))
}

// upsertSettingRequest captures the setting value payload.
type upsertSettingRequest struct {
	Value json.RawMessage `json:"value"` // JSON value payload.
}

// Upsert creates or replaces the setting value and refreshes the in-memory
// snapshot so readers see the change immediately.
func (h *SettingHandler) Upsert(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key"})
		return
	}
	var body upsertSettingRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(body.Value) == 0 || !json.Valid(body.Value) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value must be valid json"})
		return
	}

	now := time.Now().UTC()
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Setting{}).Where("key = ?", key).
			Updates(map[string]any{"value": datatypes.JSON(body.Value), "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		return tx.Create(&models.Setting{Key: key, Value: datatypes.JSON(body.Value)}).Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save setting failed"})
		return
	}

	h.refresh(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a setting by key.
func (h *SettingHandler) Delete(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Where("key = ?", key).Delete(&models.Setting{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.refresh(c)
	c.Status(http.StatusNoContent)
}

// refresh reloads the settings snapshot and drops cached public settings.
func (h *SettingHandler) refresh(c *gin.Context) {
	if errRefresh := internalsettings.Refresh(c.Request.Context(), h.db); errRefresh != nil {
		log.WithError(errRefresh).Warn("refresh settings snapshot failed")
	}
	if h.cache != nil {
		h.cache.DeletePrefix(c.Request.Context(), cache.SitePrefix)
	}
}

// formatSetting converts a setting model into a response payload.
func (h *SettingHandler) formatSetting(setting *models.Setting) gin.H {
	return gin.H{
		"key":        setting.Key,
		"value":      json.RawMessage(setting.Value),
		"updated_at": setting.UpdatedAt,
	}
}
