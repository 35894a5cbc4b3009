package models

import (
	"time"

	"gorm.io/datatypes"
)

// Category groups products in the catalog.
type Category struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name string `gorm:"type:varchar(255);not null"`            // Display name.
	Slug string `gorm:"type:varchar(255);not null;uniqueIndex"` // URL key.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Product represents a catalog entry.
type Product struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name string `gorm:"type:varchar(255);not null"`             // Product name.
	Slug string `gorm:"type:varchar(255);not null;uniqueIndex"` // URL key.

	// PriceCents stores the price in integer minor-units.
	PriceCents int64 `gorm:"not null;default:0"`

	ShortDescription string `gorm:"type:text"` // Card/list description.
	Description      string `gorm:"type:text"` // Full description.

	Features datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Ordered feature strings.

	CategoryID *uint64   `gorm:"index"`                 // Owning category ID.
	Category   *Category `gorm:"foreignKey:CategoryID"` // Owning category.

	IsBestseller bool `gorm:"not null;default:false"` // Highlighted in the catalog.
	IsActive     bool `gorm:"not null;default:true"`  // Visible in the storefront.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
