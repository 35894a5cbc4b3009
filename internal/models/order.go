package models

import "time"

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

// OrderStatus constants define order lifecycle states.
const (
	// OrderStatusPending marks an order awaiting payment confirmation.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing marks an order being fulfilled.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusCompleted marks a fulfilled order.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCanceled marks an abandoned or refused order.
	OrderStatusCanceled OrderStatus = "canceled"
)

// orderTransitions is the legal status graph. Completed and canceled are
// terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCompleted, OrderStatusCanceled},
	OrderStatusProcessing: {OrderStatusCompleted, OrderStatusCanceled},
}

// ValidOrderStatus reports whether the value names a known status.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCanceled:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order aggregates a user's purchase.
type Order struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Purchasing user ID.
	User   User   `gorm:"foreignKey:UserID"` // Purchasing user record.

	Status OrderStatus `gorm:"type:varchar(32);not null;default:'pending'"` // Current status.

	TotalCents int64 `gorm:"not null;default:0"` // Order total in minor-units.

	PaymentMethod    string `gorm:"type:varchar(64)"` // Payment channel label.
	PaymentReference string `gorm:"type:text"`        // External payment identifier.

	Items []OrderItem `gorm:"foreignKey:OrderID"` // Line items.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// OrderItem records one product line inside an order.
type OrderItem struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	OrderID uint64 `gorm:"not null;index"` // Owning order ID.

	ProductID uint64  `gorm:"not null;index"`       // Purchased product ID.
	Product   Product `gorm:"foreignKey:ProductID"` // Purchased product record.

	Quantity int `gorm:"not null;default:1"` // Units purchased.

	// UnitPriceCents snapshots the product price at purchase time.
	UnitPriceCents int64 `gorm:"not null;default:0"`
}
