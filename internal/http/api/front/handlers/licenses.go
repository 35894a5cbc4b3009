package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fovdark/fovdark/internal/apperr"
	api "github.com/fovdark/fovdark/internal/http/api"
	"github.com/fovdark/fovdark/internal/licenses"
	"github.com/fovdark/fovdark/internal/metrics"
	"github.com/fovdark/fovdark/internal/models"
	"github.com/fovdark/fovdark/internal/queue"
)

// LicenseHandler manages the authenticated user's license bindings.
type LicenseHandler struct {
	db     *gorm.DB         // Database handle for license records.
	engine *licenses.Engine // Binding rules engine.
	events *queue.Publisher // Lifecycle event publisher, may be nil.
}

// NewLicenseHandler constructs a license handler.
func NewLicenseHandler(db *gorm.DB, engine *licenses.Engine, events *queue.Publisher) *LicenseHandler {
	return &LicenseHandler{db: db, engine: engine, events: events}
}

// List returns the authenticated user's licenses with rebind availability.
func (h *LicenseHandler) List(c *gin.Context) {
	account := CurrentUser(c)
	if account == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var rows []models.License
	if errFind := h.db.WithContext(c.Request.Context()).Preload("Product").
		Where("user_id = ?", account.ID).
		Order("created_at DESC, id DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list licenses failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		license := &rows[i]
		entry := gin.H{
			"id":         license.ID,
			"product_id": license.ProductID,
			"hwid":       license.HWID,
			"status":     license.Status,
			"bound_at":   license.BoundAt,
			"created_at": license.CreatedAt,
		}
		if remaining := h.engine.CooldownRemaining(license); remaining > 0 {
			entry["rebind_available_at"] = license.BoundAt.Add(remaining).UTC()
		}
		if license.Product.ID != 0 {
			entry["product"] = gin.H{
				"name": license.Product.Name,
				"slug": license.Product.Slug,
			}
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"licenses": out})
}

// bindRequest captures the HWID bind payload.
type bindRequest struct {
	HWID string `json:"hwid"` // Hardware identifier to bind.
}

// Bind attaches one of the user's licenses to a hardware identifier,
// honoring the rebind cooldown.
func (h *LicenseHandler) Bind(c *gin.Context) {
	account := CurrentUser(c)
	if account == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body bindRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	license, outcome, errBind := h.engine.Bind(c.Request.Context(), account.ID, id, body.HWID)
	if errBind != nil {
		switch apperr.KindOf(errBind) {
		case apperr.KindConflict:
			metrics.LicenseBinds.WithLabelValues("cooldown").Inc()
		case apperr.KindForbidden:
			metrics.LicenseBinds.WithLabelValues("blocked").Inc()
		}
		api.Fail(c, errBind)
		return
	}

	metrics.LicenseBinds.WithLabelValues(string(outcome)).Inc()
	if outcome != licenses.OutcomeUnchanged {
		// The account remembers the last machine seen across licenses.
		if errSave := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
			Where("id = ?", account.ID).
			Update("hwid", strings.TrimSpace(body.HWID)).Error; errSave != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update account failed"})
			return
		}
		h.events.PublishLicenseBound(c.Request.Context(), queue.LicenseBoundEvent{
			LicenseID:  license.ID,
			UserID:     account.ID,
			ProductID:  license.ProductID,
			HWID:       license.HWID,
			OccurredAt: time.Now().UTC(),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       license.ID,
		"hwid":     license.HWID,
		"status":   license.Status,
		"bound_at": license.BoundAt,
		"outcome":  outcome,
	})
}
