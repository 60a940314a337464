package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/careerdesk/careerdesk-backend/internal/config"
	"github.com/careerdesk/careerdesk-backend/internal/data/repos"
	types "github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/careerdesk/careerdesk-backend/internal/identity"
	"github.com/careerdesk/careerdesk-backend/internal/platform/apierr"
	"github.com/careerdesk/careerdesk-backend/internal/platform/logger"
)

// AccessPatch carries the requested access-control changes; nil fields keep
// the current value.
type AccessPatch struct {
	AccountStatus     *string
	PurchaseState     *string
	SubscriptionPlan  *string
	AIFeaturesEnabled *bool
	BlockedReason     *string
	BlockedUntil      *time.Time
}

// GuardService owns every mutation of role and account-state records and is
// the only code path allowed to write them. Configured owner accounts can
// never be demoted, suspended, blocked, or AI-disabled through it.
type GuardService interface {
	SetRole(ctx context.Context, targetUserID string, role string) (types.Role, error)
	SetAccessControl(ctx context.Context, targetUserID string, patch AccessPatch) (*types.UserAccessControl, error)
	ForceSignOut(ctx context.Context, targetUserID string) error
	PasswordResetLink(ctx context.Context, email string) (string, error)
}

type guardService struct {
	db          *gorm.DB
	log         *logger.Logger
	cfg         *config.Config
	profileRepo repos.ProfileRepo
	roleRepo    repos.RoleRepo
	accessRepo  repos.AccessRepo
	directory   identity.Directory
}

func NewGuardService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg *config.Config,
	profileRepo repos.ProfileRepo,
	roleRepo repos.RoleRepo,
	accessRepo repos.AccessRepo,
	directory identity.Directory,
) GuardService {
	return &guardService{
		db:          db,
		log:         baseLog.With("service", "GuardService"),
		cfg:         cfg,
		profileRepo: profileRepo,
		roleRepo:    roleRepo,
		accessRepo:  accessRepo,
		directory:   directory,
	}
}

func (gs *guardService) resolveTarget(ctx context.Context, targetUserID string) (*types.Profile, error) {
	id, err := uuid.Parse(strings.TrimSpace(targetUserID))
	if err != nil {
		return nil, apierr.Validation("invalid_user_id", fmt.Errorf("targetUserId must be a UUID"))
	}
	profile, err := gs.profileRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("user_not_found", fmt.Errorf("no user with id %s", id))
		}
		return nil, apierr.Internal(fmt.Errorf("looking up target user: %w", err))
	}
	return profile, nil
}

func (gs *guardService) SetRole(ctx context.Context, targetUserID string, roleStr string) (types.Role, error) {
	role, ok := types.ParseRole(roleStr)
	if !ok {
		return "", apierr.Validation("invalid_role", fmt.Errorf("role must be one of admin, moderator, user"))
	}

	profile, err := gs.resolveTarget(ctx, targetUserID)
	if err != nil {
		return "", err
	}

	// Owners stay admins, full stop.
	if gs.cfg.IsOwner(profile.Email) && role != types.RoleAdmin {
		return "", apierr.New(http.StatusForbidden, "owner_protected",
			fmt.Errorf("owner accounts cannot be assigned role %q", role))
	}

	err = gs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if role == types.RoleUser {
			// Setting exactly "user" collapses the set to the baseline.
			if err := gs.roleRepo.DeleteAboveUser(ctx, tx, profile.ID); err != nil {
				return err
			}
			return gs.roleRepo.Upsert(ctx, tx, profile.ID, types.RoleUser)
		}
		// Role sets are additive: the elevated row plus the baseline row.
		if err := gs.roleRepo.Upsert(ctx, tx, profile.ID, role); err != nil {
			return err
		}
		return gs.roleRepo.Upsert(ctx, tx, profile.ID, types.RoleUser)
	})
	if err != nil {
		return "", apierr.Internal(fmt.Errorf("persisting role change: %w", err))
	}

	gs.log.Info("role updated", "user_id", profile.ID.String(), "role", string(role))
	return role, nil
}

func (gs *guardService) SetAccessControl(ctx context.Context, targetUserID string, patch AccessPatch) (*types.UserAccessControl, error) {
	profile, err := gs.resolveTarget(ctx, targetUserID)
	if err != nil {
		return nil, err
	}

	current, err := gs.accessRepo.Get(ctx, nil, profile.ID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("loading access record: %w", err))
	}
	if current == nil {
		current = types.DefaultAccessControl(profile.ID)
	}

	next := *current
	if patch.AccountStatus != nil {
		next.AccountStatus = types.NormalizeAccountStatus(*patch.AccountStatus)
	}
	if patch.PurchaseState != nil {
		next.PurchaseState = types.NormalizePurchaseState(*patch.PurchaseState)
	}
	if patch.SubscriptionPlan != nil {
		plan := strings.TrimSpace(*patch.SubscriptionPlan)
		if plan == "" {
			plan = "free"
		}
		next.SubscriptionPlan = plan
	}
	if patch.AIFeaturesEnabled != nil {
		next.AIFeaturesEnabled = *patch.AIFeaturesEnabled
	}
	if patch.BlockedReason != nil {
		next.BlockedReason = strings.TrimSpace(*patch.BlockedReason)
	}
	if patch.BlockedUntil != nil {
		until := patch.BlockedUntil.UTC()
		next.BlockedUntil = &until
	}
	if next.AccountStatus == types.AccountActive {
		next.BlockedReason = ""
		next.BlockedUntil = nil
	}
	next.UpdatedAt = time.Now().UTC()

	// An owner can never end up non-active or AI-disabled; reject before
	// anything is written.
	if gs.cfg.IsOwner(profile.Email) {
		if next.AccountStatus != types.AccountActive || !next.AIFeaturesEnabled {
			return nil, apierr.New(http.StatusForbidden, "owner_protected",
				fmt.Errorf("owner accounts cannot be suspended, blocked, or AI-disabled"))
		}
	}

	if err := gs.accessRepo.Upsert(ctx, nil, &next); err != nil {
		return nil, apierr.Internal(fmt.Errorf("persisting access control: %w", err))
	}

	// The local write and the provider ban are not transactional. A
	// provider failure here leaves the two stores inconsistent and is
	// surfaced to the caller, who retries the whole mutation.
	if err := gs.syncLoginBan(ctx, profile.ID, &next); err != nil {
		gs.log.Error("identity provider ban sync failed after local write",
			"user_id", profile.ID.String(),
			"account_status", string(next.AccountStatus),
			"error", err,
		)
		return nil, err
	}

	gs.log.Info("access control updated",
		"user_id", profile.ID.String(),
		"account_status", string(next.AccountStatus),
		"purchase_state", string(next.PurchaseState),
		"ai_enabled", next.AIFeaturesEnabled,
	)
	return &next, nil
}

// syncLoginBan mirrors the account status onto the identity provider:
// non-active accounts lose login at the transport level.
func (gs *guardService) syncLoginBan(ctx context.Context, userID uuid.UUID, rec *types.UserAccessControl) error {
	if gs.directory == nil {
		return nil
	}
	duration := identity.BanNone
	if rec.AccountStatus != types.AccountActive {
		duration = identity.BanPermanent
		if rec.BlockedUntil != nil {
			if remaining := time.Until(*rec.BlockedUntil); remaining > 0 {
				duration = remaining.Round(time.Second).String()
			}
		}
	}
	return gs.directory.SetBanDuration(ctx, userID, duration)
}

func (gs *guardService) ForceSignOut(ctx context.Context, targetUserID string) error {
	profile, err := gs.resolveTarget(ctx, targetUserID)
	if err != nil {
		return err
	}
	if err := gs.directory.SignOutUser(ctx, profile.ID); err != nil {
		return err
	}
	gs.log.Info("forced sign-out", "user_id", profile.ID.String())
	return nil
}

func (gs *guardService) PasswordResetLink(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", apierr.Validation("invalid_email", fmt.Errorf("a valid email is required"))
	}
	link, err := gs.directory.GenerateRecoveryLink(ctx, email, gs.cfg.PasswordResetRedirectURL)
	if err != nil {
		return "", err
	}
	gs.log.Info("password reset link issued", "email", email)
	return link, nil
}
