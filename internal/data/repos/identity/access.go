package identity

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/careerdesk/careerdesk-backend/internal/platform/logger"
)

type AccessRepo interface {
	// Get returns (nil, nil) when the user has no policy row.
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserAccessControl, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.UserAccessControl, error)
	Upsert(ctx context.Context, tx *gorm.DB, rec *types.UserAccessControl) error
}

type accessRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAccessRepo(db *gorm.DB, baseLog *logger.Logger) AccessRepo {
	repoLog := baseLog.With("repo", "AccessRepo")
	return &accessRepo{db: db, log: repoLog}
}

func (ar *accessRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserAccessControl, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var results []*types.UserAccessControl
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (ar *accessRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.UserAccessControl, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var results []*types.UserAccessControl
	if err := transaction.WithContext(ctx).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *accessRepo) Upsert(ctx context.Context, tx *gorm.DB, rec *types.UserAccessControl) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"account_status",
				"purchase_state",
				"subscription_plan",
				"ai_features_enabled",
				"blocked_reason",
				"blocked_until",
				"updated_at",
			}),
		}).
		Create(rec).Error
}
