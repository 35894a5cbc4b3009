package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fovdark/fovdark/internal/models"
)

// DashboardHandler serves back-office KPI summaries.
type DashboardHandler struct {
	db *gorm.DB // Database handle for aggregate queries.
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

// KPI returns headline counts and revenue for the back-office dashboard.
func (h *DashboardHandler) KPI(c *gin.Context) {
	ctx := c.Request.Context()

	var userCount int64
	if errCount := h.db.WithContext(ctx).Model(&models.User{}).Count(&userCount).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	var activeUserCount int64
	if errCount := h.db.WithContext(ctx).Model(&models.User{}).
		Where("active = ?", true).Count(&activeUserCount).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	var productCount int64
	if errCount := h.db.WithContext(ctx).Model(&models.Product{}).
		Where("is_active = ?", true).Count(&productCount).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	var pendingOrders int64
	if errCount := h.db.WithContext(ctx).Model(&models.Order{}).
		Where("status = ?", models.OrderStatusPending).Count(&pendingOrders).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	var activeLicenses int64
	if errCount := h.db.WithContext(ctx).Model(&models.License{}).
		Where("status = ?", models.LicenseStatusActive).Count(&activeLicenses).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	type revenueRow struct {
		Total int64
		Count int64
	}
	var revenue revenueRow
	if errScan := h.db.WithContext(ctx).Model(&models.Order{}).
		Select("COALESCE(SUM(total_cents), 0) AS total, COUNT(*) AS count").
		Where("status = ?", models.OrderStatusCompleted).
		Scan(&revenue).Error; errScan != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	since := time.Now().UTC().AddDate(0, 0, -30)
	var recentRevenue revenueRow
	if errScan := h.db.WithContext(ctx).Model(&models.Order{}).
		Select("COALESCE(SUM(total_cents), 0) AS total, COUNT(*) AS count").
		Where("status = ? AND created_at >= ?", models.OrderStatusCompleted, since).
		Scan(&recentRevenue).Error; errScan != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":                userCount,
		"active_users":         activeUserCount,
		"active_products":      productCount,
		"pending_orders":       pendingOrders,
		"active_licenses":      activeLicenses,
		"completed_orders":     revenue.Count,
		"revenue_cents":        revenue.Total,
		"revenue_cents_30d":    recentRevenue.Total,
		"completed_orders_30d": recentRevenue.Count,
	})
}

// RecentOrders returns the latest orders for the dashboard activity feed.
func (h *DashboardHandler) RecentOrders(c *gin.Context) {
	var rows []models.Order
	if errFind := h.db.WithContext(c.Request.Context()).
		Preload("User").Order("created_at DESC, id DESC").Limit(10).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatOrder(&rows[i], true))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}
