package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/careerdesk/careerdesk-backend/internal/data/db"
	"github.com/careerdesk/careerdesk-backend/internal/data/repos"
	types "github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/careerdesk/careerdesk-backend/internal/platform/logger"
)

// Denial codes form a closed set; callers branch on them, not on messages.
const (
	GateAccountBlocked   = "account_blocked"
	GateAccountSuspended = "account_suspended"
	GateAIDisabled       = "ai_disabled"
	GatePurchaseRequired = "purchase_required"
	GateCheckFailed      = "access_check_failed"
)

// AccessGateDecision is request-scoped and never cached: policy may change
// between two calls from the same user.
type AccessGateDecision struct {
	Allowed bool   `json:"allowed"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// AccessGateService is called by every privileged (AI-powered) request path
// in the product before any work happens.
type AccessGateService interface {
	Evaluate(ctx context.Context, userID uuid.UUID) AccessGateDecision
}

type accessGateService struct {
	log        *logger.Logger
	accessRepo repos.AccessRepo
}

func NewAccessGateService(baseLog *logger.Logger, accessRepo repos.AccessRepo) AccessGateService {
	return &accessGateService{
		log:        baseLog.With("service", "AccessGateService"),
		accessRepo: accessRepo,
	}
}

func (gs *accessGateService) Evaluate(ctx context.Context, userID uuid.UUID) AccessGateDecision {
	rec, err := gs.accessRepo.Get(ctx, nil, userID)
	if err != nil {
		// A missing table is a migration gap, not a policy: blocking every
		// user on it would be an outage. Anything else fails closed.
		if db.IsUndefinedTable(err) {
			gs.log.Warn("user_access_control table not provisioned; access gate failing open")
			return AccessGateDecision{Allowed: true}
		}
		gs.log.Error("access gate lookup failed", "user_id", userID.String(), "error", err)
		return AccessGateDecision{
			Allowed: false,
			Code:    GateCheckFailed,
			Message: "Access could not be verified. Please try again.",
		}
	}
	return EvaluateAccessRecord(rec)
}

// EvaluateAccessRecord applies the precedence order: blocked, suspended,
// AI disabled, then purchase state. Absence of a record means fully open.
func EvaluateAccessRecord(rec *types.UserAccessControl) AccessGateDecision {
	if rec == nil {
		return AccessGateDecision{Allowed: true}
	}

	if rec.AccountStatus == types.AccountBlocked {
		msg := rec.BlockedReason
		if msg == "" {
			msg = "Your account has been blocked."
		}
		return AccessGateDecision{Allowed: false, Code: GateAccountBlocked, Message: msg}
	}
	if rec.AccountStatus == types.AccountSuspended {
		return AccessGateDecision{
			Allowed: false,
			Code:    GateAccountSuspended,
			Message: "Your account is suspended.",
		}
	}
	if !rec.AIFeaturesEnabled {
		return AccessGateDecision{
			Allowed: false,
			Code:    GateAIDisabled,
			Message: "AI features are disabled for your account.",
		}
	}
	if !types.PurchaseAllowsAI(rec.PurchaseState) {
		return AccessGateDecision{
			Allowed: false,
			Code:    GatePurchaseRequired,
			Message: "An active plan is required to use AI features.",
		}
	}
	return AccessGateDecision{Allowed: true}
}
