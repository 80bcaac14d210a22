package models

import "time"

// Task workflow states.
const (
	TaskStatusTodo       = "Todo"
	TaskStatusInProgress = "InProgress"
	TaskStatusDone       = "Done"
)

// Task is a unit of work owned by a single user and optionally filed under a category.
type Task struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Title       string  `gorm:"not null;index" json:"title"`
	Description string  `json:"description"`
	Priority    string  `gorm:"not null" json:"priority"`
	Status      string  `gorm:"not null;default:Todo;index" json:"status"`
	Image       *string `json:"image"`

	CategoryID *uint     `gorm:"index" json:"category_id"`
	Category   *Category `json:"category,omitempty"`

	UserID uint  `gorm:"not null;index" json:"user_id"`
	User   *User `json:"-"`

	Date      *time.Time `gorm:"index" json:"date"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	AllDay    bool       `gorm:"default:false" json:"all_day"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
