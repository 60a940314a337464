package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/careerdesk/careerdesk-backend/internal/config"
	"github.com/careerdesk/careerdesk-backend/internal/data/db"
	"github.com/careerdesk/careerdesk-backend/internal/data/repos"
	repousage "github.com/careerdesk/careerdesk-backend/internal/data/repos/usage"
	types "github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/careerdesk/careerdesk-backend/internal/identity"
	"github.com/careerdesk/careerdesk-backend/internal/platform/logger"
)

// UserActivityRecord is the per-user merge of the identity directory, the
// local profile, the policy row, and every per-feature usage table. It is
// built fresh per request and never persisted.
type UserActivityRecord struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Location   string    `json:"location"`
	TargetRole string    `json:"target_role"`

	Role         types.Role `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActiveAt time.Time  `json:"last_active_at"`

	AuthProvider     string     `json:"auth_provider,omitempty"`
	LastSignInAt     *time.Time `json:"last_sign_in_at,omitempty"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	Banned           bool       `json:"banned"`

	AccountStatus     types.AccountStatus `json:"account_status"`
	PurchaseState     types.PurchaseState `json:"purchase_state"`
	SubscriptionPlan  string              `json:"subscription_plan"`
	AIFeaturesEnabled bool                `json:"ai_features_enabled"`
	BlockedReason     string              `json:"blocked_reason,omitempty"`
	BlockedUntil      *time.Time          `json:"blocked_until,omitempty"`

	Conversations int `json:"conversations"`
	Resumes       int `json:"resumes"`
	TrackedJobs   int `json:"tracked_jobs"`
	AppliedJobs   int `json:"applied_jobs"`
	CoverLetters  int `json:"cover_letters"`
	Documents     int `json:"documents"`
	Messages      int `json:"messages"`

	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CostEstimate float64 `json:"cost_estimate"`
}

// InsightsResult carries the merged records plus the day-bucketed raw
// material the summary turns into trends.
type InsightsResult struct {
	Users        []*UserActivityRecord
	SignupsByDay map[string]int
	ActiveByDay  map[string]int
	Warnings     []string
}

type InsightsService interface {
	// BuildUsers fans out to every source concurrently, waits for all of
	// them, and joins. Missing sources degrade to warnings.
	BuildUsers(ctx context.Context, rangeDays int) (*InsightsResult, error)
}

type insightsService struct {
	log         *logger.Logger
	cfg         *config.Config
	profileRepo repos.ProfileRepo
	roleRepo    repos.RoleRepo
	accessRepo  repos.AccessRepo
	usageRepo   repos.UsageRepo
	directory   identity.Directory
	estimator   CostEstimator
}

func NewInsightsService(
	baseLog *logger.Logger,
	cfg *config.Config,
	profileRepo repos.ProfileRepo,
	roleRepo repos.RoleRepo,
	accessRepo repos.AccessRepo,
	usageRepo repos.UsageRepo,
	directory identity.Directory,
	estimator CostEstimator,
) InsightsService {
	return &insightsService{
		log:         baseLog.With("service", "InsightsService"),
		cfg:         cfg,
		profileRepo: profileRepo,
		roleRepo:    roleRepo,
		accessRepo:  accessRepo,
		usageRepo:   usageRepo,
		directory:   directory,
		estimator:   estimator,
	}
}

// mergeInputs is everything collected at the join barrier. The merge is a
// pure function of this struct, so fetch completion order cannot matter.
type mergeInputs struct {
	now        time.Time
	rangeStart time.Time
	rangeDays  int

	profiles      []*types.Profile
	recentSignups []*types.Profile
	roles         []*types.UserRole
	access        []*types.UserAccessControl
	directory     []identity.DirectoryUser

	conversations []repousage.ActivityRow
	resumes       []repousage.ActivityRow
	trackedJobs   []repousage.ActivityRow
	coverLetters  []repousage.ActivityRow
	documents     []repousage.ActivityRow

	messages   []*types.Message
	convOwners []repousage.OwnerRow
}

func (is *insightsService) BuildUsers(ctx context.Context, rangeDays int) (*InsightsResult, error) {
	now := time.Now().UTC()
	in := &mergeInputs{
		now:        now,
		rangeStart: now.AddDate(0, 0, -rangeDays),
		rangeDays:  rangeDays,
	}

	var (
		warnMu   sync.Mutex
		warnings []string
	)
	warn := func(msg string) {
		warnMu.Lock()
		warnings = append(warnings, msg)
		warnMu.Unlock()
	}

	// Tables may lag the product's migrations; a missing table is a
	// warning, not a failure.
	degraded := func(table string, err error) error {
		if db.IsUndefinedTable(err) {
			warn(fmt.Sprintf("%s table is not provisioned yet; counts omitted", table))
			return nil
		}
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := is.profileRepo.ListAll(gctx, nil)
		if err != nil {
			// The user universe still forms from directory rows.
			return degraded("profile", err)
		}
		in.profiles = rows
		return nil
	})
	g.Go(func() error {
		rows, err := is.profileRepo.ListCreatedSince(gctx, nil, in.rangeStart)
		if err != nil {
			return degraded("profile", err)
		}
		in.recentSignups = rows
		return nil
	})
	g.Go(func() error {
		rows, err := is.roleRepo.ListAll(gctx, nil)
		if err != nil {
			return degraded("user_role", err)
		}
		in.roles = rows
		return nil
	})
	g.Go(func() error {
		rows, err := is.accessRepo.ListAll(gctx, nil)
		if err != nil {
			return degraded("user_access_control", err)
		}
		in.access = rows
		return nil
	})
	g.Go(func() error {
		rows, err := is.usageRepo.ListConversationsSince(gctx, nil, in.rangeStart)
		if err != nil {
			return degraded("conversation", err)
		}
		in.conversations = rows
		return nil
	})
	g.Go(func() error {
		rows, err := is.usageRepo.ListResumesSince(gctx, nil, in.rangeStart)
		if err != nil {
			return degraded("resume", err)
		}
		in.resumes = rows
		return nil
	})
	g.Go(func() error {
		rows, err := is.usageRepo.ListTrackedJobsSince(gctx, nil, in.rangeStart)
		if err != nil {
			return degraded("tracked_job", err)
		}
		in.trackedJobs = rows
		return nil
	})
	g.Go(func() error {
		rows, err := is.usageRepo.ListCoverLettersSince(gctx, nil, in.rangeStart)
		if err != nil {
			return degraded("cover_letter", err)
		}
		in.coverLetters = rows
		return nil
	})
	g.Go(func() error {
		rows, err := is.usageRepo.ListDocumentsSince(gctx, nil, in.rangeStart)
		if err != nil {
			return degraded("document", err)
		}
		in.documents = rows
		return nil
	})
	g.Go(func() error {
		rows, err := is.usageRepo.SampleMessagesSince(gctx, nil, in.rangeStart, is.cfg.MessageSampleLimit)
		if err != nil {
			return degraded("message", err)
		}
		in.messages = rows
		return nil
	})
	g.Go(func() error {
		rows, err := is.usageRepo.ListConversationOwners(gctx, nil)
		if err != nil {
			return degraded("conversation", err)
		}
		in.convOwners = rows
		return nil
	})
	g.Go(func() error {
		users, truncated, err := is.fetchDirectory(gctx)
		if err != nil {
			// The merge falls back to profile-only identity fields.
			is.log.Warn("identity directory listing failed", "error", err)
			warn("identity directory unavailable; identity fields limited to local profiles")
			return nil
		}
		if truncated {
			warn(fmt.Sprintf("identity directory listing truncated at %d pages; counts may be incomplete", is.cfg.IdentityMaxPages))
		}
		in.directory = users
		return nil
	})

	// Join barrier: no derived value is computed until every fetch is done.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := mergeUsers(in, is.estimator)
	result.Warnings = dedupeWarnings(append(result.Warnings, warnings...))
	return result, nil
}

// fetchDirectory pages through the provider sequentially (each page needs
// the previous cursor) under a hard iteration cap so a misbehaving upstream
// cannot stall the summary.
func (is *insightsService) fetchDirectory(ctx context.Context) ([]identity.DirectoryUser, bool, error) {
	if is.directory == nil {
		return nil, false, fmt.Errorf("identity directory not configured")
	}

	maxPages := is.cfg.IdentityMaxPages
	if maxPages < 1 {
		maxPages = 1
	}

	var all []identity.DirectoryUser
	for page := 1; page <= maxPages; page++ {
		users, more, err := is.directory.ListUsers(ctx, page, is.cfg.IdentityPageSize)
		if err != nil {
			return nil, false, err
		}
		all = append(all, users...)
		if !more {
			return all, false, nil
		}
	}
	return all, true, nil
}

// mergeUsers joins the collected inputs. Pure: no I/O, no clock reads, no
// dependence on slice ordering beyond commutative accumulation.
func mergeUsers(in *mergeInputs, estimator CostEstimator) *InsightsResult {
	records := map[uuid.UUID]*UserActivityRecord{}

	get := func(id uuid.UUID) *UserActivityRecord {
		rec := records[id]
		if rec == nil {
			def := types.DefaultAccessControl(id)
			rec = &UserActivityRecord{
				ID:                id,
				Role:              types.RoleUser,
				AccountStatus:     def.AccountStatus,
				PurchaseState:     def.PurchaseState,
				SubscriptionPlan:  def.SubscriptionPlan,
				AIFeaturesEnabled: def.AIFeaturesEnabled,
			}
			records[id] = rec
		}
		return rec
	}

	// lastActiveAt only ever moves forward; every contributing source gets
	// max-merged, clock skew between sources included.
	advance := func(rec *UserActivityRecord, t time.Time) {
		if t.After(rec.LastActiveAt) {
			rec.LastActiveAt = t
		}
	}

	// User universe: profiles union directory.
	for _, p := range in.profiles {
		rec := get(p.ID)
		rec.Email = p.Email
		rec.FullName = p.FullName
		rec.Location = p.Location
		rec.TargetRole = p.TargetRole
		rec.CreatedAt = p.CreatedAt
		advance(rec, p.UpdatedAt)
	}
	for _, du := range in.directory {
		rec := get(du.ID)
		if rec.Email == "" {
			rec.Email = du.Email
		}
		if rec.FullName == "" {
			rec.FullName = du.UserMetadata.FullName
		}
		if rec.CreatedAt.IsZero() && du.CreatedAt != nil {
			rec.CreatedAt = *du.CreatedAt
		}
		rec.AuthProvider = du.AppMetadata.Provider
		rec.LastSignInAt = du.LastSignInAt
		rec.EmailConfirmedAt = du.EmailConfirmedAt
		rec.Banned = du.BannedUntil != nil && du.BannedUntil.After(in.now)
		if du.LastSignInAt != nil {
			advance(rec, *du.LastSignInAt)
		}
	}

	// Effective role: highest-priority row wins.
	for _, rr := range in.roles {
		rec := get(rr.UserID)
		if rr.Role.Priority() > rec.Role.Priority() {
			rec.Role = rr.Role
		}
	}

	for _, ac := range in.access {
		rec := get(ac.UserID)
		rec.AccountStatus = ac.AccountStatus
		rec.PurchaseState = ac.PurchaseState
		rec.SubscriptionPlan = ac.SubscriptionPlan
		rec.AIFeaturesEnabled = ac.AIFeaturesEnabled
		rec.BlockedReason = ac.BlockedReason
		rec.BlockedUntil = ac.BlockedUntil
	}

	activeByDay := map[string]map[uuid.UUID]struct{}{}
	touch := func(id uuid.UUID, t time.Time) {
		day := dayKey(t)
		set := activeByDay[day]
		if set == nil {
			set = map[uuid.UUID]struct{}{}
			activeByDay[day] = set
		}
		set[id] = struct{}{}
	}

	applyRows := func(rows []repousage.ActivityRow, bump func(rec *UserActivityRecord, row repousage.ActivityRow)) {
		for _, row := range rows {
			rec := get(row.UserID)
			bump(rec, row)
			advance(rec, row.UpdatedAt)
			touch(row.UserID, row.UpdatedAt)
		}
	}

	applyRows(in.conversations, func(rec *UserActivityRecord, _ repousage.ActivityRow) { rec.Conversations++ })
	applyRows(in.resumes, func(rec *UserActivityRecord, _ repousage.ActivityRow) { rec.Resumes++ })
	applyRows(in.trackedJobs, func(rec *UserActivityRecord, row repousage.ActivityRow) {
		rec.TrackedJobs++
		if row.Status != "" && row.Status != types.TrackedJobStatusSaved {
			rec.AppliedJobs++
		}
	})
	applyRows(in.coverLetters, func(rec *UserActivityRecord, _ repousage.ActivityRow) { rec.CoverLetters++ })
	applyRows(in.documents, func(rec *UserActivityRecord, _ repousage.ActivityRow) { rec.Documents++ })

	// Token accounting: each sampled message resolves to its owner through
	// the parent conversation. Assistant turns are output, everything else
	// input, approximated at ceil(len/4) with a floor of one token.
	owners := make(map[uuid.UUID]uuid.UUID, len(in.convOwners))
	for _, o := range in.convOwners {
		owners[o.ID] = o.UserID
	}
	for _, msg := range in.messages {
		ownerID, ok := owners[msg.ConversationID]
		if !ok {
			continue
		}
		rec := get(ownerID)
		rec.Messages++
		tokens := approxTokens(msg.Content)
		if strings.EqualFold(msg.Role, "assistant") {
			rec.OutputTokens += tokens
		} else {
			rec.InputTokens += tokens
		}
		advance(rec, msg.CreatedAt)
		touch(ownerID, msg.CreatedAt)
	}

	signupsByDay := map[string]int{}
	for _, p := range in.recentSignups {
		if !p.CreatedAt.Before(in.rangeStart) {
			signupsByDay[dayKey(p.CreatedAt)]++
		}
	}

	users := make([]*UserActivityRecord, 0, len(records))
	for _, rec := range records {
		rec.CostEstimate = estimator.PerUserCost(rec.InputTokens, rec.OutputTokens)
		users = append(users, rec)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID.String() < users[j].ID.String()
	})

	activeCounts := make(map[string]int, len(activeByDay))
	for day, set := range activeByDay {
		activeCounts[day] = len(set)
	}

	return &InsightsResult{
		Users:        users,
		SignupsByDay: signupsByDay,
		ActiveByDay:  activeCounts,
	}
}

// dedupeWarnings sorts and collapses repeats; two fetches against the same
// missing table must not warn twice.
func dedupeWarnings(warnings []string) []string {
	if len(warnings) == 0 {
		return warnings
	}
	sort.Strings(warnings)
	out := warnings[:1]
	for _, w := range warnings[1:] {
		if w != out[len(out)-1] {
			out = append(out, w)
		}
	}
	return out
}

// approxTokens is the fixed character-to-token approximation used across
// the product: ceil(len/4), minimum one token for a non-empty accounting.
func approxTokens(content string) int64 {
	n := int64(len(content))
	tokens := (n + 3) / 4
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
