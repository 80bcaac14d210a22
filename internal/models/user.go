package models

import "time"

// User describes a registered account. The store assigns the numeric id and
// the email is unique across all users.
type User struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	Name     string  `gorm:"index" json:"name"`
	Email    string  `gorm:"uniqueIndex;not null" json:"email"`
	Password string  `gorm:"not null" json:"-"`
	Role     string  `gorm:"not null;default:USER" json:"role"`
	Avatar   *string `json:"avatar"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
