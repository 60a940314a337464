package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/careerdesk/careerdesk-backend/internal/platform/logger"
)

type ProfileRepo interface {
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Profile, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Profile, error)
	ListCreatedSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]*types.Profile, error)
}

type profileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	repoLog := baseLog.With("repo", "ProfileRepo")
	return &profileRepo{db: db, log: repoLog}
}

func (pr *profileRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Profile, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.Profile
	if err := transaction.WithContext(ctx).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *profileRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Profile, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var result types.Profile
	if err := transaction.WithContext(ctx).
		Where("id = ?", userID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (pr *profileRepo) ListCreatedSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]*types.Profile, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.Profile
	if err := transaction.WithContext(ctx).
		Where("created_at >= ?", since).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
