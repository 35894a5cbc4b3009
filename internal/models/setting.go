package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting stores one keyed JSON configuration blob.
type Setting struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Key   string         `gorm:"type:varchar(255);not null;uniqueIndex"` // Setting key.
	Value datatypes.JSON `gorm:"type:jsonb;not null"`                    // JSON value payload.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
