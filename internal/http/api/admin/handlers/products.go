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
	"github.com/fovdark/fovdark/internal/db"
	api "github.com/fovdark/fovdark/internal/http/api"
	"github.com/fovdark/fovdark/internal/models"
	"github.com/fovdark/fovdark/internal/validate"
)

// ProductHandler manages admin CRUD endpoints for catalog products.
type ProductHandler struct {
	db    *gorm.DB    // Database handle for product records.
	cache cache.Cache // Shared cache invalidated on mutation.
}

// NewProductHandler constructs a product handler.
func NewProductHandler(db *gorm.DB, c cache.Cache) *ProductHandler {
	return &ProductHandler{db: db, cache: c}
}

// normalizeFeatures validates the features payload: a JSON array of
// non-empty strings.
func normalizeFeatures(raw json.RawMessage) (datatypes.JSON, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return datatypes.JSON([]byte("[]")), nil
	}
	var features []string
	if errUnmarshal := json.Unmarshal(raw, &features); errUnmarshal != nil {
		return nil, errors.New("invalid features")
	}
	cleaned := make([]string, 0, len(features))
	for _, feature := range features {
		feature = strings.TrimSpace(feature)
		if feature == "" {
			continue
		}
		cleaned = append(cleaned, feature)
	}
	rawFeatures, errMarshal := json.Marshal(cleaned)
	if errMarshal != nil {
		return nil, errMarshal
	}
	return datatypes.JSON(rawFeatures), nil
}

// resolveCategoryID verifies the referenced category exists.
func (h *ProductHandler) resolveCategoryID(c *gin.Context, id uint64) (*uint64, bool) {
	if id == 0 {
		return nil, true
	}
	var count int64
	if errCount := h.db.WithContext(c.Request.Context()).Model(&models.Category{}).
		Where("id = ?", id).Count(&count).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, false
	}
	if count == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
		return nil, false
	}
	return &id, true
}

// createProductRequest captures the payload for creating a product.
type createProductRequest struct {
	Name             string          `json:"name"`              // Product name.
	Slug             string          `json:"slug"`              // URL key.
	Price            string          `json:"price"`             // Decimal price string, e.g. "49.90".
	ShortDescription string          `json:"short_description"` // Card description.
	Description      string          `json:"description"`       // Full description.
	Features         json.RawMessage `json:"features"`          // Feature strings payload.
	CategoryID       uint64          `json:"category_id"`       // Owning category, 0 for none.
	IsBestseller     bool            `json:"is_bestseller"`     // Highlight flag.
	IsActive         *bool           `json:"is_active"`         // Optional visibility flag.
}

// Create validates input and inserts a new product. Nothing is written when
// any field fails validation.
func (h *ProductHandler) Create(c *gin.Context) {
	var body createProductRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	name := strings.TrimSpace(body.Name)
	slug := strings.TrimSpace(body.Slug)
	if !validate.ProductName(name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name too short"})
		return
	}
	if !validate.Slug(slug) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slug"})
		return
	}
	priceCents, okPrice := validate.PriceCents(body.Price)
	if !okPrice {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
		return
	}
	features, errFeatures := normalizeFeatures(body.Features)
	if errFeatures != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid features"})
		return
	}
	categoryID, okCategory := h.resolveCategoryID(c, body.CategoryID)
	if !okCategory {
		return
	}

	var clash int64
	if errCount := h.db.WithContext(c.Request.Context()).Model(&models.Product{}).
		Where("slug = ?", slug).Count(&clash).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if clash > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "slug already in use"})
		return
	}

	isActive := true
	if body.IsActive != nil {
		isActive = *body.IsActive
	}

	product := models.Product{
		Name:             name,
		Slug:             slug,
		PriceCents:       priceCents,
		ShortDescription: strings.TrimSpace(body.ShortDescription),
		Description:      body.Description,
		Features:         features,
		CategoryID:       categoryID,
		IsBestseller:     body.IsBestseller,
		IsActive:         isActive,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&product).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create product failed"})
		return
	}
	h.invalidate(c)
	c.JSON(http.StatusCreated, h.formatProduct(&product))
}

// List returns products newest-first with pagination, search, and filters.
func (h *ProductHandler) List(c *gin.Context) {
	page := api.ParsePage(c)
	q := h.db.WithContext(c.Request.Context()).Model(&models.Product{})

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := db.NormalizeLikePattern(h.db, "%"+search+"%")
		q = q.Where(
			h.db.Where(db.CaseInsensitiveLikeExpr(h.db, "name"), pattern).
				Or(db.CaseInsensitiveLikeExpr(h.db, "short_description"), pattern),
		)
	}
	if categoryQ := strings.TrimSpace(c.Query("category_id")); categoryQ != "" {
		q = q.Where("category_id = ?", categoryQ)
	}
	if activeQ := strings.TrimSpace(c.Query("is_active")); activeQ == "true" || activeQ == "1" {
		q = q.Where("is_active = ?", true)
	} else if activeQ == "false" || activeQ == "0" {
		q = q.Where("is_active = ?", false)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	var rows []models.Product
	if errFind := q.Preload("Category").Order("created_at DESC, id DESC").
		Limit(page.PerPage).Offset(page.Offset()).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list products failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, h.formatProduct(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"products": out,
		"total":    total,
		"page":     page.Number,
		"per_page": page.PerPage,
	})
}

// Get fetches a product by ID.
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var product models.Product
	if errFind := h.db.WithContext(c.Request.Context()).Preload("Category").
		First(&product, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, h.formatProduct(&product))
}

// updateProductRequest captures optional fields for product updates.
type updateProductRequest struct {
	Name             *string          `json:"name"`              // Optional name update.
	Slug             *string          `json:"slug"`              // Optional URL key update.
	Price            *string          `json:"price"`             // Optional decimal price string.
	ShortDescription *string          `json:"short_description"` // Optional card description.
	Description      *string          `json:"description"`       // Optional full description.
	Features         *json.RawMessage `json:"features"`          // Optional feature strings payload.
	CategoryID       *uint64          `json:"category_id"`       // Optional category, 0 clears it.
	IsBestseller     *bool            `json:"is_bestseller"`     // Optional highlight flag.
	IsActive         *bool            `json:"is_active"`         // Optional visibility flag.
}

// Update validates and applies product field updates.
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body updateProductRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if !validate.ProductName(name) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name too short"})
			return
		}
		updates["name"] = name
	}
	if body.Slug != nil {
		slug := strings.TrimSpace(*body.Slug)
		if !validate.Slug(slug) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slug"})
			return
		}
		var clash int64
		if errCount := h.db.WithContext(c.Request.Context()).Model(&models.Product{}).
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
	if body.Price != nil {
		priceCents, okPrice := validate.PriceCents(*body.Price)
		if !okPrice {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
			return
		}
		updates["price_cents"] = priceCents
	}
	if body.ShortDescription != nil {
		updates["short_description"] = strings.TrimSpace(*body.ShortDescription)
	}
	if body.Description != nil {
		updates["description"] = *body.Description
	}
	if body.Features != nil {
		features, errFeatures := normalizeFeatures(*body.Features)
		if errFeatures != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid features"})
			return
		}
		updates["features"] = features
	}
	if body.CategoryID != nil {
		if *body.CategoryID == 0 {
			updates["category_id"] = nil
		} else {
			categoryID, okCategory := h.resolveCategoryID(c, *body.CategoryID)
			if !okCategory {
				return
			}
			updates["category_id"] = categoryID
		}
	}
	if body.IsBestseller != nil {
		updates["is_bestseller"] = *body.IsBestseller
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Product{}).Where("id = ?", id).Updates(updates)
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

// Delete removes a product together with its reviews and licenses in one
// transaction. Order items keep their price snapshots.
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Product{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if errDel := tx.Where("product_id = ?", id).Delete(&models.Review{}).Error; errDel != nil {
			return errDel
		}
		return tx.Where("product_id = ?", id).Delete(&models.License{}).Error
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

// Enable makes a product visible in the storefront.
func (h *ProductHandler) Enable(c *gin.Context) {
	h.setFlag(c, "is_active", true)
}

// Disable hides a product from the storefront.
func (h *ProductHandler) Disable(c *gin.Context) {
	h.setFlag(c, "is_active", false)
}

// SetBestseller toggles the catalog highlight flag.
func (h *ProductHandler) SetBestseller(c *gin.Context) {
	var body struct {
		IsBestseller bool `json:"is_bestseller"` // Highlight flag.
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	h.setFlag(c, "is_bestseller", body.IsBestseller)
}

func (h *ProductHandler) setFlag(c *gin.Context, column string, value bool) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	res := h.db.WithContext(c.Request.Context()).Model(&models.Product{}).Where("id = ?", id).
		Updates(map[string]any{column: value, "updated_at": time.Now().UTC()})
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

func (h *ProductHandler) invalidate(c *gin.Context) {
	if h.cache != nil {
		h.cache.DeletePrefix(c.Request.Context(), cache.CatalogPrefix)
	}
}

// formatProduct converts a product model into a response payload.
func (h *ProductHandler) formatProduct(product *models.Product) gin.H {
	out := gin.H{
		"id":                product.ID,
		"name":              product.Name,
		"slug":              product.Slug,
		"price_cents":       product.PriceCents,
		"short_description": product.ShortDescription,
		"description":       product.Description,
		"features":          product.Features,
		"is_bestseller":     product.IsBestseller,
		"is_active":         product.IsActive,
		"created_at":        product.CreatedAt,
		"updated_at":        product.UpdatedAt,
	}
	if product.CategoryID != nil {
		out["category_id"] = *product.CategoryID
	}
	if product.Category != nil {
		out["category"] = gin.H{
			"id":   product.Category.ID,
			"name": product.Category.Name,
			"slug": product.Category.Slug,
		}
	}
	return out
}
