package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountBlocked   AccountStatus = "blocked"
)

type PurchaseState string

const (
	PurchaseTrial   PurchaseState = "trial"
	PurchaseActive  PurchaseState = "active"
	PurchasePastDue PurchaseState = "past_due"
	PurchaseCancel  PurchaseState = "canceled"
	PurchaseManual  PurchaseState = "manual"
)

// NormalizeAccountStatus maps free-form input onto the closed enum,
// falling back to "active" so a typo can never lock a user out.
func NormalizeAccountStatus(s string) AccountStatus {
	switch AccountStatus(strings.ToLower(strings.TrimSpace(s))) {
	case AccountSuspended:
		return AccountSuspended
	case AccountBlocked:
		return AccountBlocked
	default:
		return AccountActive
	}
}

// NormalizePurchaseState falls back to "trial", the open-by-default bucket.
func NormalizePurchaseState(s string) PurchaseState {
	switch PurchaseState(strings.ToLower(strings.TrimSpace(s))) {
	case PurchaseActive:
		return PurchaseActive
	case PurchasePastDue:
		return PurchasePastDue
	case PurchaseCancel:
		return PurchaseCancel
	case PurchaseManual:
		return PurchaseManual
	default:
		return PurchaseTrial
	}
}

// PurchaseAllowsAI reports whether the billing bucket grants AI access.
func PurchaseAllowsAI(p PurchaseState) bool {
	switch p {
	case PurchaseTrial, PurchaseActive, PurchaseManual:
		return true
	default:
		return false
	}
}

// UserAccessControl is the per-user policy row. A user without one gets
// DefaultAccessControl, fully open, for backward compatibility.
type UserAccessControl struct {
	UserID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"user_id"`
	AccountStatus     AccountStatus `gorm:"type:varchar(16);not null;default:'active'" json:"account_status"`
	PurchaseState     PurchaseState `gorm:"type:varchar(16);not null;default:'trial'" json:"purchase_state"`
	SubscriptionPlan  string        `gorm:"type:varchar(64);not null;default:'free'" json:"subscription_plan"`
	AIFeaturesEnabled bool          `gorm:"not null;default:true" json:"ai_features_enabled"`
	BlockedReason     string        `gorm:"column:blocked_reason" json:"blocked_reason,omitempty"`
	BlockedUntil      *time.Time    `gorm:"column:blocked_until" json:"blocked_until,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserAccessControl) TableName() string { return "user_access_control" }

func DefaultAccessControl(userID uuid.UUID) *UserAccessControl {
	return &UserAccessControl{
		UserID:            userID,
		AccountStatus:     AccountActive,
		PurchaseState:     PurchaseTrial,
		SubscriptionPlan:  "free",
		AIFeaturesEnabled: true,
	}
}
