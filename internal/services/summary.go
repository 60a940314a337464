package services

import (
	"context"
	"time"

	types "github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/careerdesk/careerdesk-backend/internal/platform/logger"
)

const (
	// Summary windows are clamped to keep the scan bounded.
	MinRangeDays     = 7
	MaxRangeDays     = 90
	DefaultRangeDays = 30
)

// ClampRangeDays applies the [MinRangeDays, MaxRangeDays] window, with a
// default for an unspecified range.
func ClampRangeDays(days int) int {
	if days == 0 {
		days = DefaultRangeDays
	}
	if days < MinRangeDays {
		return MinRangeDays
	}
	if days > MaxRangeDays {
		return MaxRangeDays
	}
	return days
}

type CompanyStats struct {
	TotalUsers    int   `json:"total_users"`
	NewSignups    int   `json:"new_signups"`
	ActiveUsers   int   `json:"active_users"`
	Conversations int   `json:"conversations"`
	Resumes       int   `json:"resumes"`
	TrackedJobs   int   `json:"tracked_jobs"`
	AppliedJobs   int   `json:"applied_jobs"`
	CoverLetters  int   `json:"cover_letters"`
	Documents     int   `json:"documents"`
	Messages      int   `json:"messages"`
	InputTokens   int64 `json:"input_tokens"`
	OutputTokens  int64 `json:"output_tokens"`
}

type AccessSummary struct {
	Admins     int `json:"admins"`
	Moderators int `json:"moderators"`
	Users      int `json:"users"`
	Active     int `json:"active"`
	Suspended  int `json:"suspended"`
	Blocked    int `json:"blocked"`
	AIDisabled int `json:"ai_disabled"`
}

type BillingSummary struct {
	ByPurchaseState map[string]int `json:"by_purchase_state"`
	ByPlan          map[string]int `json:"by_plan"`
}

type UserTrendPoint struct {
	Date        string `json:"date"`
	Signups     int    `json:"signups"`
	ActiveUsers int    `json:"active_users"`
}

type SummaryMeta struct {
	RangeDays   int       `json:"range_days"`
	GeneratedAt time.Time `json:"generated_at"`
	Warnings    []string  `json:"warnings,omitempty"`
}

// AdminSummary is the consolidated dashboard payload.
type AdminSummary struct {
	Company   CompanyStats          `json:"company"`
	Access    AccessSummary         `json:"access"`
	Billing   BillingSummary        `json:"billing"`
	Website   WebsiteAnalytics      `json:"website"`
	Costs     CostModel             `json:"costs"`
	UserTrend []UserTrendPoint      `json:"user_trend"`
	Users     []*UserActivityRecord `json:"users"`
	Meta      SummaryMeta           `json:"meta"`
}

type SummaryService interface {
	Build(ctx context.Context, rangeDays int) (*AdminSummary, error)
}

type summaryService struct {
	log       *logger.Logger
	insights  InsightsService
	traffic   TrafficService
	estimator CostEstimator
}

func NewSummaryService(baseLog *logger.Logger, insights InsightsService, traffic TrafficService, estimator CostEstimator) SummaryService {
	return &summaryService{
		log:       baseLog.With("service", "SummaryService"),
		insights:  insights,
		traffic:   traffic,
		estimator: estimator,
	}
}

func (ss *summaryService) Build(ctx context.Context, rangeDays int) (*AdminSummary, error) {
	rangeDays = ClampRangeDays(rangeDays)
	now := time.Now().UTC()

	merged, err := ss.insights.BuildUsers(ctx, rangeDays)
	if err != nil {
		return nil, err
	}

	website, err := ss.traffic.Analyze(ctx, nil, rangeDays)
	if err != nil {
		return nil, err
	}

	out := &AdminSummary{
		Website: website,
		Users:   merged.Users,
		Billing: BillingSummary{
			ByPurchaseState: map[string]int{},
			ByPlan:          map[string]int{},
		},
		Meta: SummaryMeta{
			RangeDays:   rangeDays,
			GeneratedAt: now,
			Warnings:    merged.Warnings,
		},
	}
	if website.Warning != "" {
		out.Meta.Warnings = append(out.Meta.Warnings, website.Warning)
	}

	rangeStart := now.AddDate(0, 0, -rangeDays)
	for _, u := range merged.Users {
		out.Company.TotalUsers++
		if !u.CreatedAt.IsZero() && !u.CreatedAt.Before(rangeStart) {
			out.Company.NewSignups++
		}
		if !u.LastActiveAt.Before(rangeStart) && !u.LastActiveAt.IsZero() {
			out.Company.ActiveUsers++
		}
		out.Company.Conversations += u.Conversations
		out.Company.Resumes += u.Resumes
		out.Company.TrackedJobs += u.TrackedJobs
		out.Company.AppliedJobs += u.AppliedJobs
		out.Company.CoverLetters += u.CoverLetters
		out.Company.Documents += u.Documents
		out.Company.Messages += u.Messages
		out.Company.InputTokens += u.InputTokens
		out.Company.OutputTokens += u.OutputTokens

		switch u.Role {
		case types.RoleAdmin:
			out.Access.Admins++
		case types.RoleModerator:
			out.Access.Moderators++
		default:
			out.Access.Users++
		}
		switch u.AccountStatus {
		case types.AccountSuspended:
			out.Access.Suspended++
		case types.AccountBlocked:
			out.Access.Blocked++
		default:
			out.Access.Active++
		}
		if !u.AIFeaturesEnabled {
			out.Access.AIDisabled++
		}
		out.Billing.ByPurchaseState[string(u.PurchaseState)]++
		out.Billing.ByPlan[u.SubscriptionPlan]++
	}

	out.Costs = ss.estimator.Estimate(out.Company.InputTokens, out.Company.OutputTokens, rangeDays)

	// One point per calendar day, zero-filled; days with no signups or no
	// activity are still present.
	out.UserTrend = make([]UserTrendPoint, 0, rangeDays)
	for i := rangeDays - 1; i >= 0; i-- {
		day := dayKey(now.AddDate(0, 0, -i))
		out.UserTrend = append(out.UserTrend, UserTrendPoint{
			Date:        day,
			Signups:     merged.SignupsByDay[day],
			ActiveUsers: merged.ActiveByDay[day],
		})
	}

	return out, nil
}
