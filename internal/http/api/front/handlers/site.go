package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fovdark/fovdark/internal/cache"
	api "github.com/fovdark/fovdark/internal/http/api"
	"github.com/fovdark/fovdark/internal/i18n"
	"github.com/fovdark/fovdark/internal/metrics"
	"github.com/fovdark/fovdark/internal/models"
	internalsettings "github.com/fovdark/fovdark/internal/settings"
)

// siteTTL bounds how stale the cached theme and public settings can get.
const siteTTL = 60 * time.Second

// SiteHandler serves site-wide public configuration: the active theme,
// public settings, and translations.
type SiteHandler struct {
	db    *gorm.DB    // Database handle for theme and setting records.
	cache cache.Cache // Shared read-through cache, may be nil.
}

// NewSiteHandler constructs a site handler.
func NewSiteHandler(db *gorm.DB, c cache.Cache) *SiteHandler {
	return &SiteHandler{db: db, cache: c}
}

// Theme returns the single active theme.
func (h *SiteHandler) Theme(c *gin.Context) {
	loaded := false
	payload, errFetch := cache.Fetch(c.Request.Context(), h.cache, cache.ActiveThemeKey, siteTTL, func(ctx context.Context) ([]byte, error) {
		loaded = true
		var theme models.Theme
		if errFind := h.db.WithContext(ctx).Where("is_active = ?", true).First(&theme).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return json.Marshal(gin.H{"theme": nil})
			}
			return nil, errFind
		}
		return json.Marshal(gin.H{"theme": gin.H{
			"name":       theme.Name,
			"variables":  theme.Variables,
			"custom_css": theme.CustomCSS,
		}})
	})
	if errFetch != nil {
		api.Fail(c, errFetch)
		return
	}
	if loaded {
		metrics.CacheMisses.WithLabelValues("site").Inc()
	} else {
		metrics.CacheHits.WithLabelValues("site").Inc()
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// Settings returns the public settings subset. Keys outside the public list
// never reach this endpoint.
func (h *SiteHandler) Settings(c *gin.Context) {
	loaded := false
	payload, errFetch := cache.Fetch(c.Request.Context(), h.cache, cache.PublicSettingsKey, siteTTL, func(ctx context.Context) ([]byte, error) {
		loaded = true
		var rows []models.Setting
		if errFind := h.db.WithContext(ctx).
			Where("key IN ?", internalsettings.PublicKeys).Find(&rows).Error; errFind != nil {
			return nil, errFind
		}
		values := gin.H{}
		for _, row := range rows {
			values[row.Key] = json.RawMessage(row.Value)
		}
		return json.Marshal(gin.H{
			"site_name": internalsettings.SiteName(),
			"settings":  values,
		})
	})
	if errFetch != nil {
		api.Fail(c, errFetch)
		return
	}
	if loaded {
		metrics.CacheMisses.WithLabelValues("site").Inc()
	} else {
		metrics.CacheHits.WithLabelValues("site").Inc()
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// Languages returns the supported translation languages.
func (h *SiteHandler) Languages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"languages": i18n.Languages(),
		"default":   i18n.DefaultLanguage,
	})
}

// Translate resolves a message key for a language, with {placeholder}
// replacements from query parameters.
func (h *SiteHandler) Translate(c *gin.Context) {
	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}
	lang := RequestLanguage(c)

	replacements := map[string]string{}
	for name, values := range c.Request.URL.Query() {
		if name == "key" || name == "lang" || len(values) == 0 {
			continue
		}
		replacements[name] = values[0]
	}
	c.JSON(http.StatusOK, gin.H{
		"lang":    lang,
		"key":     key,
		"message": i18n.T(lang, key, replacements),
	})
}

// RequestLanguage resolves the response language from the `lang` query
// parameter, then the Accept-Language header, then the default.
func RequestLanguage(c *gin.Context) string {
	if lang := strings.TrimSpace(c.Query("lang")); lang != "" {
		return lang
	}
	header := c.GetHeader("Accept-Language")
	if header != "" {
		primary := strings.TrimSpace(strings.Split(header, ",")[0])
		if idx := strings.IndexAny(primary, "-;"); idx > 0 {
			primary = primary[:idx]
		}
		if primary != "" {
			return strings.ToLower(primary)
		}
	}
	return i18n.DefaultLanguage
}
