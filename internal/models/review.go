package models

import "time"

// Review records a user's rating of a product.
type Review struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;uniqueIndex:idx_reviews_user_product"` // Reviewing user ID.
	User   User   `gorm:"foreignKey:UserID"`                             // Reviewing user record.

	ProductID uint64  `gorm:"not null;uniqueIndex:idx_reviews_user_product"` // Reviewed product ID.
	Product   Product `gorm:"foreignKey:ProductID"`                          // Reviewed product record.

	Rating  int    `gorm:"not null"`          // Integer rating from 1 to 5.
	Comment string `gorm:"type:text;not null"` // Review body.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
