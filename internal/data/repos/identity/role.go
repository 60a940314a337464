package identity

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/careerdesk/careerdesk-backend/internal/platform/logger"
)

type RoleRepo interface {
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.UserRole, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserRole, error)
	Upsert(ctx context.Context, tx *gorm.DB, userID uuid.UUID, role types.Role) error
	DeleteAboveUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type roleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoleRepo(db *gorm.DB, baseLog *logger.Logger) RoleRepo {
	repoLog := baseLog.With("repo", "RoleRepo")
	return &roleRepo{db: db, log: repoLog}
}

func (rr *roleRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.UserRole, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var results []*types.UserRole
	if err := transaction.WithContext(ctx).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *roleRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserRole, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var results []*types.UserRole
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *roleRepo) Upsert(ctx context.Context, tx *gorm.DB, userID uuid.UUID, role types.Role) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	row := &types.UserRole{ID: uuid.New(), UserID: userID, Role: role}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "role"}},
			DoNothing: true,
		}).
		Create(row).Error
}

// DeleteAboveUser removes every row with priority above "user", collapsing
// the set back to the baseline.
func (rr *roleRepo) DeleteAboveUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	return transaction.WithContext(ctx).
		Where("user_id = ? AND role <> ?", userID, types.RoleUser).
		Delete(&types.UserRole{}).Error
}
