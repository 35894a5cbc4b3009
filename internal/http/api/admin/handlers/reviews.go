package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fovdark/fovdark/internal/cache"
	api "github.com/fovdark/fovdark/internal/http/api"
	"github.com/fovdark/fovdark/internal/models"
)

// ReviewHandler manages admin endpoints for product reviews.
type ReviewHandler struct {
	db    *gorm.DB    // Database handle for review records.
	cache cache.Cache // Shared cache invalidated on mutation.
}

// NewReviewHandler constructs a review handler.
func NewReviewHandler(db *gorm.DB, c cache.Cache) *ReviewHandler {
	return &ReviewHandler{db: db, cache: c}
}

// List returns reviews newest-first with pagination and filters.
func (h *ReviewHandler) List(c *gin.Context) {
	page := api.ParsePage(c)
	q := h.db.WithContext(c.Request.Context()).Model(&models.Review{})

	if productQ := strings.TrimSpace(c.Query("product_id")); productQ != "" {
		q = q.Where("product_id = ?", productQ)
	}
	if userQ := strings.TrimSpace(c.Query("user_id")); userQ != "" {
		q = q.Where("user_id = ?", userQ)
	}
	if ratingQ := strings.TrimSpace(c.Query("rating")); ratingQ != "" {
		q = q.Where("rating = ?", ratingQ)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	var rows []models.Review
	if errFind := q.Preload("User").Preload("Product").
		Order("created_at DESC, id DESC").
		Limit(page.PerPage).Offset(page.Offset()).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list reviews failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, h.formatReview(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"reviews":  out,
		"total":    total,
		"page":     page.Number,
		"per_page": page.PerPage,
	})
}

// Delete removes a review.
func (h *ReviewHandler) Delete(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.Review{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if h.cache != nil {
		h.cache.DeletePrefix(c.Request.Context(), cache.ReviewsPrefix)
	}
	c.Status(http.StatusNoContent)
}

// formatReview converts a review model into a response payload.
func (h *ReviewHandler) formatReview(review *models.Review) gin.H {
	out := gin.H{
		"id":         review.ID,
		"user_id":    review.UserID,
		"product_id": review.ProductID,
		"rating":     review.Rating,
		"comment":    review.Comment,
		"created_at": review.CreatedAt,
		"updated_at": review.UpdatedAt,
	}
	if review.User.ID != 0 {
		out["user"] = gin.H{
			"id":         review.User.ID,
			"email":      review.User.Email,
			"first_name": review.User.FirstName,
		}
	}
	if review.Product.ID != 0 {
		out["product"] = gin.H{
			"id":   review.Product.ID,
			"name": review.Product.Name,
			"slug": review.Product.Slug,
		}
	}
	return out
}
