package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/careerdesk/careerdesk-backend/internal/http/response"
	"github.com/careerdesk/careerdesk-backend/internal/platform/logger"
	"github.com/careerdesk/careerdesk-backend/internal/services"
)

const (
	ActionSummary           = "summary"
	ActionSetRole           = "set-role"
	ActionSetAccountAccess  = "set-account-access"
	ActionForceSignOut      = "force-signout"
	ActionPasswordResetLink = "password-reset-link"
)

// adminRequest is the single command envelope; which fields matter depends
// on the action.
type adminRequest struct {
	Action            string     `json:"action"`
	TargetUserID      string     `json:"targetUserId"`
	Role              string     `json:"role"`
	AccountStatus     *string    `json:"accountStatus"`
	PurchaseState     *string    `json:"purchaseState"`
	SubscriptionPlan  *string    `json:"subscriptionPlan"`
	AIFeaturesEnabled *bool      `json:"aiFeaturesEnabled"`
	BlockedReason     *string    `json:"blockedReason"`
	BlockedUntil      *time.Time `json:"blockedUntil"`
	RangeDays         int        `json:"rangeDays"`
	Email             string     `json:"email"`
}

type AdminHandler struct {
	log     *logger.Logger
	summary services.SummaryService
	guard   services.GuardService
	audit   services.AuditService
}

func NewAdminHandler(
	baseLog *logger.Logger,
	summary services.SummaryService,
	guard services.GuardService,
	audit services.AuditService,
) *AdminHandler {
	return &AdminHandler{
		log:     baseLog.With("handler", "AdminHandler"),
		summary: summary,
		guard:   guard,
		audit:   audit,
	}
}

// Handle dispatches the closed action set. Unknown actions are a 400, never
// a silent no-op.
func (h *AdminHandler) Handle(c *gin.Context) {
	var req adminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	switch req.Action {
	case ActionSummary:
		h.handleSummary(c, req)
	case ActionSetRole:
		h.handleSetRole(c, req)
	case ActionSetAccountAccess:
		h.handleSetAccountAccess(c, req)
	case ActionForceSignOut:
		h.handleForceSignOut(c, req)
	case ActionPasswordResetLink:
		h.handlePasswordResetLink(c, req)
	default:
		response.RespondError(c, http.StatusBadRequest, "unknown_action",
			fmt.Errorf("unknown action %q", req.Action))
	}
}

func (h *AdminHandler) handleSummary(c *gin.Context, req adminRequest) {
	summary, err := h.summary.Build(c.Request.Context(), req.RangeDays)
	if err != nil {
		h.log.Error("Summary build failed", "error", err.Error())
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, summary)
}

func (h *AdminHandler) handleSetRole(c *gin.Context, req adminRequest) {
	role, err := h.guard.SetRole(c.Request.Context(), req.TargetUserID, req.Role)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), "set_role", "user", req.TargetUserID, map[string]any{
		"role": string(role),
	})
	response.RespondOK(c, gin.H{"ok": true, "result": gin.H{
		"userId": req.TargetUserID,
		"role":   role,
	}})
}

func (h *AdminHandler) handleSetAccountAccess(c *gin.Context, req adminRequest) {
	patch := services.AccessPatch{
		AccountStatus:     req.AccountStatus,
		PurchaseState:     req.PurchaseState,
		SubscriptionPlan:  req.SubscriptionPlan,
		AIFeaturesEnabled: req.AIFeaturesEnabled,
		BlockedReason:     req.BlockedReason,
		BlockedUntil:      req.BlockedUntil,
	}
	record, err := h.guard.SetAccessControl(c.Request.Context(), req.TargetUserID, patch)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), "set_account_access", "user", req.TargetUserID, map[string]any{
		"account_status":      string(record.AccountStatus),
		"purchase_state":      string(record.PurchaseState),
		"subscription_plan":   record.SubscriptionPlan,
		"ai_features_enabled": record.AIFeaturesEnabled,
	})
	response.RespondOK(c, gin.H{"ok": true, "result": record})
}

func (h *AdminHandler) handleForceSignOut(c *gin.Context, req adminRequest) {
	if err := h.guard.ForceSignOut(c.Request.Context(), req.TargetUserID); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), "force_signout", "user", req.TargetUserID, nil)
	response.RespondOK(c, gin.H{"ok": true, "result": gin.H{
		"userId": req.TargetUserID,
	}})
}

func (h *AdminHandler) handlePasswordResetLink(c *gin.Context, req adminRequest) {
	link, err := h.guard.PasswordResetLink(c.Request.Context(), req.Email)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), "password_reset_link", "user", req.Email, nil)
	response.RespondOK(c, gin.H{"ok": true, "result": gin.H{
		"actionLink": link,
	}})
}
