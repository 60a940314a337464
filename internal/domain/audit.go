package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditLog is a best-effort record of a mutating admin action. Writes are
// fire-and-forget; a failed insert is never surfaced to the caller.
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ActorID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"actor_id"`
	Action     string         `gorm:"type:varchar(64);not null;index" json:"action"`
	Resource   string         `gorm:"type:varchar(64);not null" json:"resource"`
	ResourceID string         `gorm:"type:varchar(64)" json:"resource_id"`
	Metadata   datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	IP         string         `gorm:"type:varchar(64)" json:"ip"`
	UserAgent  string         `gorm:"column:user_agent" json:"user_agent"`
	CreatedAt  time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_log" }
