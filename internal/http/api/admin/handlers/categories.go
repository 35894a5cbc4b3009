package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fovdark/fovdark/internal/cache"
	api "github.com/fovdark/fovdark/internal/http/api"
	"github.com/fovdark/fovdark/internal/models"
	"github.com/fovdark/fovdark/internal/validate"
)

// CategoryHandler manages admin CRUD endpoints for catalog categories.
type CategoryHandler struct {
	db    *gorm.DB    // Database handle for category records.
	cache cache.Cache // Shared cache invalidated on mutation.
}

// NewCategoryHandler constructs a category handler.
func NewCategoryHandler(db *gorm.DB, c cache.Cache) *CategoryHandler {
	return &CategoryHandler{db: db, cache: c}
}

// categoryRequest captures the payload for creating or updating a category.
type categoryRequest struct {
	Name string `json:"name"` // Display name.
	Slug string `json:"slug"` // URL key.
}

// Create validates input and inserts a new category.
func (h *CategoryHandler) Create(c *gin.Context) {
	var body categoryRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	slug := strings.TrimSpace(body.Slug)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if !validate.Slug(slug) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slug"})
		return
	}

	var clash int64
	if errCount := h.db.WithContext(c.Request.Context()).Model(&models.Category{}).
		Where("slug = ?", slug).Count(&clash).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if clash > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "slug already in use"})
		return
	}

	category := models.Category{Name: name, Slug: slug}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&category).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create category failed"})
		return
	}
	h.invalidate(c)
	c.JSON(http.StatusCreated, h.formatCategory(&category))
}

// List returns all categories ordered by name.
func (h *CategoryHandler) List(c *gin.Context) {
	var rows []models.Category
	if errFind := h.db.WithContext(c.Request.Context()).Order("name ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list categories failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, h.formatCategory(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

// Get fetches a category by ID.
func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var category models.Category
	if errFind := h.db.WithContext(c.Request.Context()).First(&category, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, h.formatCategory(&category))
}

// Update validates and applies category field updates.
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body categoryRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if name := strings.TrimSpace(body.Name); name != "" {
		updates["name"] = name
	}
	if slug := strings.TrimSpace(body.Slug); slug != "" {
		if !validate.Slug(slug) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slug"})
			return
		}
		var clash int64
		if errCount := h.db.WithContext(c.Request.Context()).Model(&models.Category{}).
			Where("slug = ? AND id <> ?", slug, id).Count(&clash).Error; errCount != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		if clash > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "slug already in use"})
			return
		}
		updates["slug"] = slug
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Category{}).Where("id = ?", id).Updates(updates)
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

// Delete removes a category. Products keep their rows and lose the
// category reference in one transaction.
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Category{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.Product{}).Where("category_id = ?", id).
			Update("category_id", nil).Error
	})
	if errTx != nil {
		if errors.Is(errTx, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	h.invalidate(c)
	c.Status(http.StatusNoContent)
}

func (h *CategoryHandler) invalidate(c *gin.Context) {
	if h.cache != nil {
		h.cache.DeletePrefix(c.Request.Context(), cache.CatalogPrefix)
	}
}

// formatCategory converts a category model into a response payload.
func (h *CategoryHandler) formatCategory(category *models.Category) gin.H {
	return gin.H{
		"id":         category.ID,
		"name":       category.Name,
		"slug":       category.Slug,
		"created_at": category.CreatedAt,
		"updated_at": category.UpdatedAt,
	}
}
