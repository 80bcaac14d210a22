package database

import (
	"gorm.io/gorm"

	"github.com/bekzodm/taskhub/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Invitation{},
		&models.Category{},
		&models.Task{},
	); err != nil {
		return err
	}

	return ensurePendingInvitationIndex(db)
}

// ensurePendingInvitationIndex installs a partial unique index so the store,
// not the application, is the source of truth for "at most one PENDING
// invitation per email". The application-level duplicate check remains a
// fast path; concurrent sends for the same email lose here instead.
// MySQL has no partial indexes, so that dialect keeps only the app check.
func ensurePendingInvitationIndex(db *gorm.DB) error {
	if db.Dialector.Name() == "mysql" {
		return nil
	}

	return db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_invitations_pending_email " +
			"ON invitations(email) WHERE status = 'PENDING'",
	).Error
}
