package models

import "time"

// LicenseStatus represents the binding state of a license.
type LicenseStatus string

// LicenseStatus constants define license binding states.
const (
	// LicenseStatusPending marks a license waiting for its first HWID bind.
	LicenseStatusPending LicenseStatus = "pending"
	// LicenseStatusActive marks a license bound to a machine.
	LicenseStatusActive LicenseStatus = "active"
	// LicenseStatusBlocked marks a license rejected from further binds.
	LicenseStatusBlocked LicenseStatus = "blocked"
)

// ValidLicenseStatus reports whether the value names a known status.
func ValidLicenseStatus(s LicenseStatus) bool {
	switch s {
	case LicenseStatusPending, LicenseStatusActive, LicenseStatusBlocked:
		return true
	}
	return false
}

// License binds a user's product subscription to a hardware identifier.
// At most one non-blocked license exists per user and product.
type License struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index:idx_licenses_user_product"` // Owning user ID.
	User   User   `gorm:"foreignKey:UserID"`                        // Owning user record.

	ProductID uint64  `gorm:"not null;index:idx_licenses_user_product"` // Licensed product ID.
	Product   Product `gorm:"foreignKey:ProductID"`                     // Licensed product record.

	HWID string `gorm:"column:hwid;type:text"` // Bound hardware identifier, empty while pending.

	Status LicenseStatus `gorm:"type:varchar(32);not null;default:'pending'"` // Binding state.

	BoundAt *time.Time `gorm:"index"` // Last successful bind time.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
