package models

import (
	"time"

	"gorm.io/datatypes"
)

// Theme is a named set of CSS custom-property values plus free-form CSS
// overrides. At most one theme is active; activation enforces this inside a
// single transaction.
type Theme struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name string `gorm:"type:varchar(255);not null"` // Display name.

	Variables datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"` // CSS custom-property map.
	CustomCSS string         `gorm:"type:text"`                        // Free-form CSS overrides.

	IsActive bool `gorm:"not null;default:false"` // Applied site-wide when true.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
