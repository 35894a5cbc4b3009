package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fovdark/fovdark/internal/apperr"
	"github.com/fovdark/fovdark/internal/cache"
	"github.com/fovdark/fovdark/internal/db"
	api "github.com/fovdark/fovdark/internal/http/api"
	"github.com/fovdark/fovdark/internal/metrics"
	"github.com/fovdark/fovdark/internal/models"
)

// Cache TTLs for storefront reads.
const (
	catalogTTL = 60 * time.Second
	reviewsTTL = 30 * time.Second
)

// CatalogHandler serves the public product catalog.
type CatalogHandler struct {
	db    *gorm.DB    // Database handle for catalog queries.
	cache cache.Cache // Shared read-through cache, may be nil.
}

// NewCatalogHandler constructs a catalog handler.
func NewCatalogHandler(db *gorm.DB, c cache.Cache) *CatalogHandler {
	return &CatalogHandler{db: db, cache: c}
}

// serveCached writes a cached JSON payload, loading it on a miss.
func (h *CatalogHandler) serveCached(c *gin.Context, cacheName, key string, ttl time.Duration, load func(ctx context.Context) ([]byte, error)) {
	loaded := false
	payload, errFetch := cache.Fetch(c.Request.Context(), h.cache, key, ttl, func(ctx context.Context) ([]byte, error) {
		loaded = true
		return load(ctx)
	})
	if errFetch != nil {
		api.Fail(c, errFetch)
		return
	}
	if loaded {
		metrics.CacheMisses.WithLabelValues(cacheName).Inc()
	} else {
		metrics.CacheHits.WithLabelValues(cacheName).Inc()
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// List returns active products, bestsellers first then newest, with search,
// category filter, and pagination. Identical queries share one cache entry.
func (h *CatalogHandler) List(c *gin.Context) {
	page := api.ParsePage(c)
	search := strings.ToLower(strings.TrimSpace(c.Query("search")))
	var categoryID uint64
	if categoryQ := strings.TrimSpace(c.Query("category_id")); categoryQ != "" {
		parsed, errParse := strconv.ParseUint(categoryQ, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category_id"})
			return
		}
		categoryID = parsed
	}

	key := cache.CatalogListKey(search, categoryID, page.Number, page.PerPage)
	h.serveCached(c, "catalog", key, catalogTTL, func(ctx context.Context) ([]byte, error) {
		q := h.db.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true)
		if search != "" {
			pattern := db.NormalizeLikePattern(h.db, "%"+search+"%")
			q = q.Where(
				h.db.Where(db.CaseInsensitiveLikeExpr(h.db, "name"), pattern).
					Or(db.CaseInsensitiveLikeExpr(h.db, "short_description"), pattern),
			)
		}
		if categoryID != 0 {
			q = q.Where("category_id = ?", categoryID)
		}

		var total int64
		if errCount := q.Count(&total).Error; errCount != nil {
			return nil, errCount
		}
		var rows []models.Product
		if errFind := q.Preload("Category").
			Order("is_bestseller DESC, created_at DESC, id DESC").
			Limit(page.PerPage).Offset(page.Offset()).Find(&rows).Error; errFind != nil {
			return nil, errFind
		}

		out := make([]gin.H, 0, len(rows))
		for i := range rows {
			out = append(out, formatCatalogProduct(&rows[i]))
		}
		return json.Marshal(gin.H{
			"products": out,
			"total":    total,
			"page":     page.Number,
			"per_page": page.PerPage,
		})
	})
}

// Get returns one active product by slug with its rating summary.
func (h *CatalogHandler) Get(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slug"})
		return
	}

	h.serveCached(c, "catalog", cache.ProductKey(slug), catalogTTL, func(ctx context.Context) ([]byte, error) {
		var product models.Product
		if errFind := h.db.WithContext(ctx).Preload("Category").
			Where("slug = ? AND is_active = ?", slug, true).First(&product).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFound("product not found")
			}
			return nil, errFind
		}

		type ratingRow struct {
			Average float64
			Count   int64
		}
		var rating ratingRow
		if errScan := h.db.WithContext(ctx).Model(&models.Review{}).
			Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
			Where("product_id = ?", product.ID).Scan(&rating).Error; errScan != nil {
			return nil, errScan
		}

		out := formatCatalogProduct(&product)
		out["description"] = product.Description
		out["rating_average"] = rating.Average
		out["rating_count"] = rating.Count
		return json.Marshal(gin.H{"product": out})
	})
}

// Reviews returns a product's reviews newest-first with pagination.
func (h *CatalogHandler) Reviews(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slug"})
		return
	}
	page := api.ParsePage(c)

	var product models.Product
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("slug = ? AND is_active = ?", slug, true).First(&product).Error; errFind != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}

	key := cache.ReviewsKey(product.ID, page.Number, page.PerPage)
	h.serveCached(c, "reviews", key, reviewsTTL, func(ctx context.Context) ([]byte, error) {
		q := h.db.WithContext(ctx).Model(&models.Review{}).Where("product_id = ?", product.ID)

		var total int64
		if errCount := q.Count(&total).Error; errCount != nil {
			return nil, errCount
		}
		var rows []models.Review
		if errFind := q.Preload("User").Order("created_at DESC, id DESC").
			Limit(page.PerPage).Offset(page.Offset()).Find(&rows).Error; errFind != nil {
			return nil, errFind
		}

		out := make([]gin.H, 0, len(rows))
		for _, row := range rows {
			entry := gin.H{
				"id":         row.ID,
				"rating":     row.Rating,
				"comment":    row.Comment,
				"created_at": row.CreatedAt,
			}
			if row.User.ID != 0 {
				entry["author"] = gin.H{
					"first_name": row.User.FirstName,
					"avatar_url": row.User.AvatarURL,
				}
			}
			out = append(out, entry)
		}
		return json.Marshal(gin.H{
			"reviews":  out,
			"total":    total,
			"page":     page.Number,
			"per_page": page.PerPage,
		})
	})
}

// Categories returns all categories for catalog filtering.
func (h *CatalogHandler) Categories(c *gin.Context) {
	h.serveCached(c, "catalog", cache.CatalogPrefix+"categories", catalogTTL, func(ctx context.Context) ([]byte, error) {
		var rows []models.Category
		if errFind := h.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; errFind != nil {
			return nil, errFind
		}
		out := make([]gin.H, 0, len(rows))
		for _, row := range rows {
			out = append(out, gin.H{"id": row.ID, "name": row.Name, "slug": row.Slug})
		}
		return json.Marshal(gin.H{"categories": out})
	})
}

// formatCatalogProduct converts a product into a public catalog payload.
func formatCatalogProduct(product *models.Product) gin.H {
	out := gin.H{
		"id":                product.ID,
		"name":              product.Name,
		"slug":              product.Slug,
		"price_cents":       product.PriceCents,
		"short_description": product.ShortDescription,
		"features":          product.Features,
		"is_bestseller":     product.IsBestseller,
		"created_at":        product.CreatedAt,
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
