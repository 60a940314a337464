package traffic

import (
	"context"
	"time"

	"gorm.io/gorm"

	types "github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/careerdesk/careerdesk-backend/internal/platform/logger"
)

type EventRepo interface {
	// ListSince returns window rows oldest-first, capped at limit.
	ListSince(ctx context.Context, tx *gorm.DB, since time.Time, limit int) ([]*types.PageEvent, error)
}

type eventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
	repoLog := baseLog.With("repo", "EventRepo")
	return &eventRepo{db: db, log: repoLog}
}

func (er *eventRepo) ListSince(ctx context.Context, tx *gorm.DB, since time.Time, limit int) ([]*types.PageEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}
	if limit <= 0 {
		limit = 20000
	}

	var results []*types.PageEvent
	if err := transaction.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
