package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	api "github.com/fovdark/fovdark/internal/http/api"
	"github.com/fovdark/fovdark/internal/licenses"
	"github.com/fovdark/fovdark/internal/models"
)

// LicenseHandler manages admin endpoints for license bindings.
type LicenseHandler struct {
	db     *gorm.DB         // Database handle for license records.
	engine *licenses.Engine // Binding rules engine.
}

// NewLicenseHandler constructs a license handler.
func NewLicenseHandler(db *gorm.DB, engine *licenses.Engine) *LicenseHandler {
	return &LicenseHandler{db: db, engine: engine}
}

// createLicenseRequest captures the payload for granting a license.
type createLicenseRequest struct {
	UserID    uint64 `json:"user_id"`    // Owning user.
	ProductID uint64 `json:"product_id"` // Licensed product.
}

// Create grants a pending license to a user for a product. A user holds at
// most one non-blocked license per product.
func (h *LicenseHandler) Create(c *gin.Context) {
	var body createLicenseRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.UserID == 0 || body.ProductID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and product_id are required"})
		return
	}

	var license models.License
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var userCount int64
		if errCount := tx.Model(&models.User{}).Where("id = ?", body.UserID).Count(&userCount).Error; errCount != nil {
			return errCount
		}
		if userCount == 0 {
			return errUnknownUser
		}
		var productCount int64
		if errCount := tx.Model(&models.Product{}).Where("id = ?", body.ProductID).Count(&productCount).Error; errCount != nil {
			return errCount
		}
		if productCount == 0 {
			return errUnknownProduct
		}
		var existing int64
		if errCount := tx.Model(&models.License{}).
			Where("user_id = ? AND product_id = ? AND status <> ?", body.UserID, body.ProductID, models.LicenseStatusBlocked).
			Count(&existing).Error; errCount != nil {
			return errCount
		}
		if existing > 0 {
			return errDuplicateLicense
		}
		license = models.License{
			UserID:    body.UserID,
			ProductID: body.ProductID,
			Status:    models.LicenseStatusPending,
		}
		return tx.Create(&license).Error
	})
	if errTx != nil {
		switch {
		case errors.Is(errTx, errUnknownUser):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown user"})
		case errors.Is(errTx, errUnknownProduct):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown product"})
		case errors.Is(errTx, errDuplicateLicense):
			c.JSON(http.StatusConflict, gin.H{"error": "license already exists"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create license failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, formatLicense(&license))
}

var (
	errUnknownUser      = errors.New("unknown user")
	errUnknownProduct   = errors.New("unknown product")
	errDuplicateLicense = errors.New("duplicate license")
)

// List returns licenses newest-first with pagination and filters.
func (h *LicenseHandler) List(c *gin.Context) {
	page := api.ParsePage(c)
	q := h.db.WithContext(c.Request.Context()).Model(&models.License{})

	if statusQ := models.LicenseStatus(strings.TrimSpace(c.Query("status"))); statusQ != "" {
		if !models.ValidLicenseStatus(statusQ) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		q = q.Where("status = ?", statusQ)
	}
	if userQ := strings.TrimSpace(c.Query("user_id")); userQ != "" {
		q = q.Where("user_id = ?", userQ)
	}
	if productQ := strings.TrimSpace(c.Query("product_id")); productQ != "" {
		q = q.Where("product_id = ?", productQ)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	var rows []models.License
	if errFind := q.Preload("User").Preload("Product").
		Order("created_at DESC, id DESC").
		Limit(page.PerPage).Offset(page.Offset()).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list licenses failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatLicense(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"licenses": out,
		"total":    total,
		"page":     page.Number,
		"per_page": page.PerPage,
	})
}

// Get fetches a license by ID.
func (h *LicenseHandler) Get(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var license models.License
	if errFind := h.db.WithContext(c.Request.Context()).Preload("User").Preload("Product").
		First(&license, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatLicense(&license))
}

// setLicenseStatusRequest captures the status change payload.
type setLicenseStatusRequest struct {
	Status models.LicenseStatus `json:"status"` // Target status.
}

// SetStatus changes a license status from the back office.
func (h *LicenseHandler) SetStatus(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body setLicenseStatusRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	license, errSet := h.engine.SetStatus(c.Request.Context(), id, body.Status)
	if errSet != nil {
		api.Fail(c, errSet)
		return
	}
	c.JSON(http.StatusOK, formatLicense(license))
}

// Unbind clears a license's HWID, overriding the rebind cooldown.
func (h *LicenseHandler) Unbind(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	license, errUnbind := h.engine.Unbind(c.Request.Context(), id)
	if errUnbind != nil {
		api.Fail(c, errUnbind)
		return
	}
	c.JSON(http.StatusOK, formatLicense(license))
}

// Delete revokes a license entirely.
func (h *LicenseHandler) Delete(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.License{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// formatLicense converts a license model into a response payload.
func formatLicense(license *models.License) gin.H {
	out := gin.H{
		"id":         license.ID,
		"user_id":    license.UserID,
		"product_id": license.ProductID,
		"hwid":       license.HWID,
		"status":     license.Status,
		"bound_at":   license.BoundAt,
		"created_at": license.CreatedAt,
		"updated_at": license.UpdatedAt,
	}
	if license.User.ID != 0 {
		out["user"] = gin.H{"id": license.User.ID, "email": license.User.Email}
	}
	if license.Product.ID != 0 {
		out["product"] = gin.H{
			"id":   license.Product.ID,
			"name": license.Product.Name,
			"slug": license.Product.Slug,
		}
	}
	return out
}
