package handlers

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	api "github.com/fovdark/fovdark/internal/http/api"
	"github.com/fovdark/fovdark/internal/models"
	"github.com/fovdark/fovdark/internal/security"
	"github.com/fovdark/fovdark/internal/storage"
)

// maxAssetSizeBytes bounds uploaded asset size.
const maxAssetSizeBytes = 32 << 20

// AssetHandler manages admin endpoints for uploaded assets.
type AssetHandler struct {
	db    *gorm.DB      // Database handle for asset metadata.
	store storage.Store // Object store holding asset payloads.
}

// NewAssetHandler constructs an asset handler.
func NewAssetHandler(db *gorm.DB, store storage.Store) *AssetHandler {
	return &AssetHandler{db: db, store: store}
}

// Upload stores a multipart file and records its metadata. When the metadata
// insert fails the stored object is removed again, so storage and the
// database never drift apart.
func (h *AssetHandler) Upload(c *gin.Context) {
	file, errForm := c.FormFile("file")
	if errForm != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if file.Size <= 0 || file.Size > maxAssetSizeBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file size"})
		return
	}

	originalName := filepath.Base(strings.TrimSpace(file.Filename))
	if originalName == "" || originalName == "." {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file name"})
		return
	}
	contentType := file.Header.Get("Content-Type")

	src, errOpen := file.Open()
	if errOpen != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read upload failed"})
		return
	}
	defer func() { _ = src.Close() }()

	objectName := security.ObjectName(originalName, time.Now())
	objectPath, errUpload := h.store.Upload(c.Request.Context(), objectName, contentType, src)
	if errUpload != nil {
		log.WithError(errUpload).Error("asset upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store object failed"})
		return
	}

	asset := models.Asset{
		Name:        originalName,
		ContentType: contentType,
		SizeBytes:   file.Size,
		ObjectPath:  objectPath,
		PublicURL:   h.store.PublicURL(objectPath),
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&asset).Error; errCreate != nil {
		if errRemove := h.store.Remove(c.Request.Context(), objectPath); errRemove != nil {
			log.WithError(errRemove).WithField("object", objectPath).Error("orphaned object after failed metadata insert")
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record asset failed"})
		return
	}
	c.JSON(http.StatusCreated, h.formatAsset(&asset))
}

// List returns assets newest-first with pagination.
func (h *AssetHandler) List(c *gin.Context) {
	page := api.ParsePage(c)
	q := h.db.WithContext(c.Request.Context()).Model(&models.Asset{})

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	var rows []models.Asset
	if errFind := q.Order("created_at DESC, id DESC").
		Limit(page.PerPage).Offset(page.Offset()).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list assets failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, h.formatAsset(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"assets":   out,
		"total":    total,
		"page":     page.Number,
		"per_page": page.PerPage,
	})
}

// Delete removes an asset's metadata and its stored object. A missing
// object is not an error.
func (h *AssetHandler) Delete(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var asset models.Asset
	if errFind := h.db.WithContext(c.Request.Context()).First(&asset, id).Error; errFind != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.Asset{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if errRemove := h.store.Remove(c.Request.Context(), asset.ObjectPath); errRemove != nil {
		log.WithError(errRemove).WithField("object", asset.ObjectPath).Warn("remove stored object failed")
	}
	c.Status(http.StatusNoContent)
}

// formatAsset converts an asset model into a response payload.
func (h *AssetHandler) formatAsset(asset *models.Asset) gin.H {
	return gin.H{
		"id":           asset.ID,
		"name":         asset.Name,
		"content_type": asset.ContentType,
		"size_bytes":   asset.SizeBytes,
		"object_path":  asset.ObjectPath,
		"public_url":   asset.PublicURL,
		"created_at":   asset.CreatedAt,
		"updated_at":   asset.UpdatedAt,
	}
}
