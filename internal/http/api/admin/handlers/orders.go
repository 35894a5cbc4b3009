package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	api "github.com/fovdark/fovdark/internal/http/api"
	"github.com/fovdark/fovdark/internal/licenses"
	"github.com/fovdark/fovdark/internal/metrics"
	"github.com/fovdark/fovdark/internal/models"
	"github.com/fovdark/fovdark/internal/queue"
)

// OrderHandler manages admin endpoints for orders.
type OrderHandler struct {
	db     *gorm.DB         // Database handle for order records.
	events *queue.Publisher // Lifecycle event publisher, may be nil.
}

// NewOrderHandler constructs an order handler.
func NewOrderHandler(db *gorm.DB, events *queue.Publisher) *OrderHandler {
	return &OrderHandler{db: db, events: events}
}

// List returns orders newest-first with pagination and filters.
func (h *OrderHandler) List(c *gin.Context) {
	page := api.ParsePage(c)
	q := h.db.WithContext(c.Request.Context()).Model(&models.Order{})

	if statusQ := models.OrderStatus(strings.TrimSpace(c.Query("status"))); statusQ != "" {
		if !models.ValidOrderStatus(statusQ) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		q = q.Where("status = ?", statusQ)
	}
	if userQ := strings.TrimSpace(c.Query("user_id")); userQ != "" {
		q = q.Where("user_id = ?", userQ)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	var rows []models.Order
	if errFind := q.Preload("Items").Preload("Items.Product").Preload("User").
		Order("created_at DESC, id DESC").
		Limit(page.PerPage).Offset(page.Offset()).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list orders failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatOrder(&rows[i], true))
	}
	c.JSON(http.StatusOK, gin.H{
		"orders":   out,
		"total":    total,
		"page":     page.Number,
		"per_page": page.PerPage,
	})
}

// Get fetches an order by ID.
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var order models.Order
	if errFind := h.db.WithContext(c.Request.Context()).
		Preload("Items").Preload("Items.Product").Preload("User").
		First(&order, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatOrder(&order, true))
}

// updateOrderStatusRequest captures the status transition payload.
type updateOrderStatusRequest struct {
	Status           models.OrderStatus `json:"status"`            // Target status.
	PaymentReference *string            `json:"payment_reference"` // Optional payment identifier.
}

// UpdateStatus applies a status transition. Illegal transitions are rejected
// before any write. Completing an order activates its licenses in the same
// transaction and publishes a completion event once committed.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body updateOrderStatusRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !models.ValidOrderStatus(body.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	var order models.Order
	completedNow := false
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.Preload("Items").First(&order, id).Error; errFind != nil {
			return errFind
		}
		// Re-submitting the current status is an idempotent no-op.
		if order.Status == body.Status {
			return nil
		}
		if !models.CanTransition(order.Status, body.Status) {
			return errIllegalTransition
		}

		updates := map[string]any{
			"status":     body.Status,
			"updated_at": time.Now().UTC(),
		}
		if body.PaymentReference != nil {
			updates["payment_reference"] = strings.TrimSpace(*body.PaymentReference)
		}
		if errSave := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; errSave != nil {
			return errSave
		}

		if body.Status == models.OrderStatusCompleted {
			if _, errEnsure := licenses.EnsureForOrder(tx, &order); errEnsure != nil {
				return errEnsure
			}
			completedNow = true
		}
		order.Status = body.Status
		return nil
	})
	if errTx != nil {
		switch {
		case errors.Is(errTx, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		case errors.Is(errTx, errIllegalTransition):
			c.JSON(http.StatusConflict, gin.H{"error": "illegal status transition"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		}
		return
	}

	if completedNow {
		metrics.OrdersCompleted.Inc()
		h.events.PublishOrderCompleted(c.Request.Context(), queue.OrderCompletedEvent{
			OrderID:    order.ID,
			UserID:     order.UserID,
			TotalCents: order.TotalCents,
			OccurredAt: time.Now().UTC(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": order.Status})
}

// errIllegalTransition marks a rejected order status transition.
var errIllegalTransition = errors.New("illegal order status transition")

// Delete removes an order and its items in one transaction.
func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Order{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error
	})
	if errTx != nil {
		if errors.Is(errTx, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// formatOrder converts an order model into a response payload. withUser
// controls whether the buyer summary is included.
func formatOrder(order *models.Order, withUser bool) gin.H {
	items := make([]gin.H, 0, len(order.Items))
	for _, item := range order.Items {
		entry := gin.H{
			"id":               item.ID,
			"product_id":       item.ProductID,
			"quantity":         item.Quantity,
			"unit_price_cents": item.UnitPriceCents,
		}
		if item.Product.ID != 0 {
			entry["product"] = gin.H{
				"id":   item.Product.ID,
				"name": item.Product.Name,
				"slug": item.Product.Slug,
			}
		}
		items = append(items, entry)
	}
	out := gin.H{
		"id":                order.ID,
		"user_id":           order.UserID,
		"status":            order.Status,
		"total_cents":       order.TotalCents,
		"payment_method":    order.PaymentMethod,
		"payment_reference": order.PaymentReference,
		"items":             items,
		"created_at":        order.CreatedAt,
		"updated_at":        order.UpdatedAt,
	}
	if withUser && order.User.ID != 0 {
		out["user"] = gin.H{
			"id":    order.User.ID,
			"email": order.User.Email,
		}
	}
	return out
}
