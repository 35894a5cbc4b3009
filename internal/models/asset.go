package models

import "time"

// Asset stores metadata for an uploaded binary object.
type Asset struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name        string `gorm:"type:varchar(255);not null"`     // Original file name.
	ContentType string `gorm:"type:varchar(255)"`              // MIME type.
	SizeBytes   int64  `gorm:"not null;default:0"`             // Object size.
	ObjectPath  string `gorm:"type:text;not null;uniqueIndex"` // Storage path inside the bucket.
	PublicURL   string `gorm:"type:text;not null"`             // Public URL for the object.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
