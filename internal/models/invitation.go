package models

import "time"

// InvitationStatus enumerates the invitation lifecycle states.
// Transitions are one-way: PENDING -> ACCEPTED or PENDING -> EXPIRED.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationExpired  InvitationStatus = "EXPIRED"
)

// Invitation is a time-bounded offer to join, addressed to an email. Multiple
// invitations per email are allowed over time, but at most one may be PENDING.
type Invitation struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Email       string           `gorm:"not null;index" json:"email"`
	Token       string           `gorm:"uniqueIndex;not null" json:"token"`
	Status      InvitationStatus `gorm:"not null;default:PENDING;index" json:"status"`
	InvitedByID uint             `gorm:"not null;index" json:"invited_by_id"`
	InvitedBy   *User            `gorm:"foreignKey:InvitedByID" json:"-"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}
