package models

import "time"

// Role names assigned to accounts.
const (
	// RoleUser is a regular storefront account.
	RoleUser = "user"
	// RoleAdmin grants access to the back-office API.
	RoleAdmin = "admin"
)

// User represents an account stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email    string `gorm:"type:text;not null;uniqueIndex"` // Unique login email.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	FirstName string `gorm:"type:text"` // Given name.
	LastName  string `gorm:"type:text"` // Family name.
	AvatarURL string `gorm:"type:text"` // Profile image URL.

	Role string `gorm:"type:varchar(32);not null;default:'user'"` // Authorization role.

	// Active is independent of Role: a banned account keeps its role but
	// cannot sign in.
	Active bool `gorm:"not null;default:true"`

	HWID string `gorm:"column:hwid;type:text"` // Last hardware identifier seen for this account.

	TOTPSecret string `gorm:"type:text"` // TOTP secret for admin MFA, empty when disabled.

	Licenses []License `gorm:"foreignKey:UserID"` // Related license bindings.
	Reviews  []Review  `gorm:"foreignKey:UserID"` // Related reviews.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
