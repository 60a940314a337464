package db

import (
	"fmt"

	types "github.com/careerdesk/careerdesk-backend/internal/domain"
	"gorm.io/gorm"
)

// AutoMigrateAll provisions every table the admin engine touches. The usage
// tables are normally created by the product's own migrations; running this
// against a fresh database is only for local development and tests.
func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// Identity + policy
		&types.Profile{},
		&types.UserRole{},
		&types.UserAccessControl{},

		// Per-feature usage (read-only here)
		&types.Conversation{},
		&types.Message{},
		&types.Resume{},
		&types.TrackedJob{},
		&types.CoverLetter{},
		&types.Document{},

		// Traffic + audit
		&types.PageEvent{},
		&types.AuditLog{},
	)
}

func EnsureAdminIndexes(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return fmt.Errorf("enable uuid-ossp: %w", err)
	}
	// Session reconstruction scans the window by time then groups by session.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_page_event_created_session
		ON page_event (created_at DESC, session_id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_page_event_created_session: %w", err)
	}
	// The message sample walks the window newest-first.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_message_created_at
		ON message (created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_message_created_at: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_audit_log_actor_created
		ON audit_log (actor_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_audit_log_actor_created: %w", err)
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureAdminIndexes(s.db); err != nil {
		s.log.Error("Admin index migration failed", "error", err)
		return err
	}
	return nil
}
