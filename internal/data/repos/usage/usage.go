package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/careerdesk/careerdesk-backend/internal/platform/logger"
)

// ActivityRow is the light projection every per-feature table yields for the
// activity merge: who touched it and when. Status is only populated for
// tracked jobs, where it drives the applied-count split.
type ActivityRow struct {
	UserID    uuid.UUID
	UpdatedAt time.Time
	Status    string
}

// OwnerRow maps a conversation to its owning user, resolving message rows
// that only carry a conversation id.
type OwnerRow struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

type UsageRepo interface {
	ListConversationsSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]ActivityRow, error)
	ListResumesSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]ActivityRow, error)
	ListTrackedJobsSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]ActivityRow, error)
	ListCoverLettersSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]ActivityRow, error)
	ListDocumentsSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]ActivityRow, error)
	SampleMessagesSince(ctx context.Context, tx *gorm.DB, since time.Time, limit int) ([]*types.Message, error)
	ListConversationOwners(ctx context.Context, tx *gorm.DB) ([]OwnerRow, error)
}

type usageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUsageRepo(db *gorm.DB, baseLog *logger.Logger) UsageRepo {
	repoLog := baseLog.With("repo", "UsageRepo")
	return &usageRepo{db: db, log: repoLog}
}

func (ur *usageRepo) listSince(ctx context.Context, tx *gorm.DB, model interface{}, since time.Time, withStatus bool) ([]ActivityRow, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	sel := "user_id, updated_at"
	if withStatus {
		sel = "user_id, updated_at, status"
	}

	var results []ActivityRow
	if err := transaction.WithContext(ctx).
		Model(model).
		Select(sel).
		Where("updated_at >= ?", since).
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *usageRepo) ListConversationsSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]ActivityRow, error) {
	return ur.listSince(ctx, tx, &types.Conversation{}, since, false)
}

func (ur *usageRepo) ListResumesSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]ActivityRow, error) {
	return ur.listSince(ctx, tx, &types.Resume{}, since, false)
}

func (ur *usageRepo) ListTrackedJobsSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]ActivityRow, error) {
	return ur.listSince(ctx, tx, &types.TrackedJob{}, since, true)
}

func (ur *usageRepo) ListCoverLettersSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]ActivityRow, error) {
	return ur.listSince(ctx, tx, &types.CoverLetter{}, since, false)
}

func (ur *usageRepo) ListDocumentsSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]ActivityRow, error) {
	return ur.listSince(ctx, tx, &types.Document{}, since, false)
}

// SampleMessagesSince bounds the token-accounting walk; newest messages win
// when the window holds more than limit rows.
func (ur *usageRepo) SampleMessagesSince(ctx context.Context, tx *gorm.DB, since time.Time, limit int) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}
	if limit <= 0 {
		limit = 5000
	}

	var results []*types.Message
	if err := transaction.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *usageRepo) ListConversationOwners(ctx context.Context, tx *gorm.DB) ([]OwnerRow, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var results []OwnerRow
	if err := transaction.WithContext(ctx).
		Model(&types.Conversation{}).
		Select("id, user_id").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
