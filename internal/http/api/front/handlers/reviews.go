package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fovdark/fovdark/internal/cache"
	"github.com/fovdark/fovdark/internal/metrics"
	"github.com/fovdark/fovdark/internal/models"
	"github.com/fovdark/fovdark/internal/ratelimit"
	"github.com/fovdark/fovdark/internal/validate"
)

// ReviewHandler manages storefront review submission.
type ReviewHandler struct {
	db      *gorm.DB           // Database handle for review records.
	cache   cache.Cache        // Shared cache invalidated on mutation.
	limiter *ratelimit.Manager // Review rate limiter, may be nil.
}

// NewReviewHandler constructs a review handler.
func NewReviewHandler(db *gorm.DB, c cache.Cache, limiter *ratelimit.Manager) *ReviewHandler {
	return &ReviewHandler{db: db, cache: c, limiter: limiter}
}

// createReviewRequest captures the review submission payload.
type createReviewRequest struct {
	ProductID uint64 `json:"product_id"` // Reviewed product.
	Rating    int    `json:"rating"`     // Integer rating from 1 to 5.
	Comment   string `json:"comment"`    // Review body.
}

// Create publishes a review for the authenticated user. Validation failures
// reject the request before any write; a user reviews a product at most once.
func (h *ReviewHandler) Create(c *gin.Context) {
	account := CurrentUser(c)
	if account == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if result, errAllow := h.limiter.AllowReview(c.Request.Context(), strconv.FormatUint(account.ID, 10)); errAllow == nil && !result.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many review submissions"})
		return
	}

	var body createReviewRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if body.ProductID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
		return
	}
	if !validate.Rating(body.Rating) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 5"})
		return
	}
	comment := strings.TrimSpace(body.Comment)
	if !validate.Comment(comment) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "comment length out of bounds"})
		return
	}

	var productCount int64
	if errCount := h.db.WithContext(c.Request.Context()).Model(&models.Product{}).
		Where("id = ? AND is_active = ?", body.ProductID, true).Count(&productCount).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if productCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}

	var existing int64
	if errCount := h.db.WithContext(c.Request.Context()).Model(&models.Review{}).
		Where("user_id = ? AND product_id = ?", account.ID, body.ProductID).Count(&existing).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "product already reviewed"})
		return
	}

	review := models.Review{
		UserID:    account.ID,
		ProductID: body.ProductID,
		Rating:    body.Rating,
		Comment:   comment,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&review).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create review failed"})
		return
	}

	metrics.ReviewsCreated.Inc()
	if h.cache != nil {
		h.cache.DeletePrefix(c.Request.Context(), cache.ReviewsPrefix)
		h.cache.DeletePrefix(c.Request.Context(), cache.CatalogPrefix)
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":         review.ID,
		"product_id": review.ProductID,
		"rating":     review.Rating,
		"comment":    review.Comment,
		"created_at": review.CreatedAt,
	})
}
