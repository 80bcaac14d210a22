package models

import "time"

// Priority levels shared by categories and tasks.
const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

// Category groups tasks under a named bucket with a default priority.
type Category struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"not null;index" json:"name"`
	Description string `json:"description"`
	Priority    string `gorm:"not null" json:"priority"`

	Tasks []Task `gorm:"foreignKey:CategoryID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
