package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PageEvent is one row of the raw traffic log. Sessions are never stored;
// the reconstructor rebuilds them from these rows on every query.
type PageEvent struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID  string         `gorm:"type:varchar(64);not null;index" json:"session_id"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Name       string         `gorm:"type:varchar(32);not null;default:'page_view'" json:"name"`
	Path       string         `gorm:"column:path" json:"path"`
	Referrer   string         `gorm:"column:referrer" json:"referrer"`
	Properties datatypes.JSON `gorm:"type:jsonb" json:"properties,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (PageEvent) TableName() string { return "page_event" }

// EventPageView is the event name that counts toward page views; other
// names (clicks, custom events) still extend a session's bounds.
const EventPageView = "page_view"
