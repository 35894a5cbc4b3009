package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	api "github.com/fovdark/fovdark/internal/http/api"
	"github.com/fovdark/fovdark/internal/metrics"
	"github.com/fovdark/fovdark/internal/models"
)

// OrderHandler manages storefront checkout and order history.
type OrderHandler struct {
	db *gorm.DB // Database handle for order records.
}

// NewOrderHandler constructs an order handler.
func NewOrderHandler(db *gorm.DB) *OrderHandler {
	return &OrderHandler{db: db}
}

// orderItemRequest captures one checkout line.
type orderItemRequest struct {
	ProductID uint64 `json:"product_id"` // Purchased product.
	Quantity  int    `json:"quantity"`   // Units, defaults to 1.
}

// createOrderRequest captures the checkout payload.
type createOrderRequest struct {
	Items         []orderItemRequest `json:"items"`          // Checkout lines.
	PaymentMethod string             `json:"payment_method"` // Payment channel label.
}

// Create places a pending order for the authenticated user. Unit prices are
// snapshotted from the current catalog inside the transaction; the total is
// computed server-side, never taken from the client.
func (h *OrderHandler) Create(c *gin.Context) {
	account := CurrentUser(c)
	if account == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body createOrderRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(body.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "items are required"})
		return
	}

	quantities := make(map[uint64]int, len(body.Items))
	for _, item := range body.Items {
		if item.ProductID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product_id"})
			return
		}
		quantity := item.Quantity
		if quantity == 0 {
			quantity = 1
		}
		if quantity < 1 || quantity > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quantity"})
			return
		}
		quantities[item.ProductID] += quantity
	}

	var order models.Order
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		productIDs := make([]uint64, 0, len(quantities))
		for productID := range quantities {
			productIDs = append(productIDs, productID)
		}
		var products []models.Product
		if errFind := tx.Where("id IN ? AND is_active = ?", productIDs, true).Find(&products).Error; errFind != nil {
			return errFind
		}
		if len(products) != len(quantities) {
			return errUnknownOrderProduct
		}

		order = models.Order{
			UserID:        account.ID,
			Status:        models.OrderStatusPending,
			PaymentMethod: strings.TrimSpace(body.PaymentMethod),
		}
		for _, product := range products {
			quantity := quantities[product.ID]
			order.Items = append(order.Items, models.OrderItem{
				ProductID:      product.ID,
				Quantity:       quantity,
				UnitPriceCents: product.PriceCents,
			})
			order.TotalCents += product.PriceCents * int64(quantity)
		}
		return tx.Create(&order).Error
	})
	if errTx != nil {
		if errors.Is(errTx, errUnknownOrderProduct) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown or inactive product"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create order failed"})
		return
	}

	metrics.OrdersCreated.Inc()
	c.JSON(http.StatusCreated, formatOwnOrder(&order))
}

// errUnknownOrderProduct marks a checkout referencing a missing or inactive
// product.
var errUnknownOrderProduct = errors.New("unknown order product")

// List returns the authenticated user's orders newest-first with pagination.
func (h *OrderHandler) List(c *gin.Context) {
	account := CurrentUser(c)
	if account == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	page := api.ParsePage(c)

	q := h.db.WithContext(c.Request.Context()).Model(&models.Order{}).Where("user_id = ?", account.ID)

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	var rows []models.Order
	if errFind := q.Preload("Items").Preload("Items.Product").
		Order("created_at DESC, id DESC").
		Limit(page.PerPage).Offset(page.Offset()).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list orders failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatOwnOrder(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"orders":   out,
		"total":    total,
		"page":     page.Number,
		"per_page": page.PerPage,
	})
}

// Get fetches one of the authenticated user's orders. Other users' orders
// are indistinguishable from missing ones.
func (h *OrderHandler) Get(c *gin.Context) {
	account := CurrentUser(c)
	if account == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var order models.Order
	if errFind := h.db.WithContext(c.Request.Context()).
		Preload("Items").Preload("Items.Product").
		Where("id = ? AND user_id = ?", id, account.ID).First(&order).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatOwnOrder(&order))
}

// formatOwnOrder converts an order into the owner's payload.
func formatOwnOrder(order *models.Order) gin.H {
	items := make([]gin.H, 0, len(order.Items))
	for _, item := range order.Items {
		entry := gin.H{
			"product_id":       item.ProductID,
			"quantity":         item.Quantity,
			"unit_price_cents": item.UnitPriceCents,
		}
		if item.Product.ID != 0 {
			entry["product"] = gin.H{
				"name": item.Product.Name,
				"slug": item.Product.Slug,
			}
		}
		items = append(items, entry)
	}
	return gin.H{
		"id":             order.ID,
		"status":         order.Status,
		"total_cents":    order.TotalCents,
		"payment_method": order.PaymentMethod,
		"items":          items,
		"created_at":     order.CreatedAt,
	}
}
