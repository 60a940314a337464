package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/careerdesk/careerdesk-backend/internal/config"
	repoident "github.com/careerdesk/careerdesk-backend/internal/data/repos/identity"
	"github.com/careerdesk/careerdesk-backend/internal/data/repos/testutil"
	types "github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/careerdesk/careerdesk-backend/internal/identity"
	"github.com/careerdesk/careerdesk-backend/internal/platform/apierr"
)

// fakeDirectory records the identity-provider calls the guard issues.
type fakeDirectory struct {
	users        []identity.DirectoryUser
	banDurations map[uuid.UUID]string
	signedOut    []uuid.UUID
	banErr       error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{banDurations: map[uuid.UUID]string{}}
}

func (f *fakeDirectory) ListUsers(ctx context.Context, page, perPage int) ([]identity.DirectoryUser, bool, error) {
	return f.users, false, nil
}

func (f *fakeDirectory) SetBanDuration(ctx context.Context, userID uuid.UUID, duration string) error {
	if f.banErr != nil {
		return f.banErr
	}
	f.banDurations[userID] = duration
	return nil
}

func (f *fakeDirectory) SignOutUser(ctx context.Context, userID uuid.UUID) error {
	f.signedOut = append(f.signedOut, userID)
	return nil
}

func (f *fakeDirectory) GenerateRecoveryLink(ctx context.Context, email, redirectTo string) (string, error) {
	return "https://identity.example.com/verify?token=abc&redirect_to=" + redirectTo, nil
}

type testGuardDeps struct {
	roleRepo   repoident.RoleRepo
	accessRepo repoident.AccessRepo
}

func guardForTest(t *testing.T, ownerEmail string, dir identity.Directory) (GuardService, *testGuardDeps) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	cfg := &config.Config{
		OwnerEmails:              []string{ownerEmail},
		PasswordResetRedirectURL: "https://app.example.com/reset",
	}
	profileRepo := repoident.NewProfileRepo(db, log)
	roleRepo := repoident.NewRoleRepo(db, log)
	accessRepo := repoident.NewAccessRepo(db, log)
	svc := NewGuardService(db, log, cfg, profileRepo, roleRepo, accessRepo, dir)
	return svc, &testGuardDeps{roleRepo: roleRepo, accessRepo: accessRepo}
}

func seedGuardProfile(t *testing.T, email string) *types.Profile {
	t.Helper()
	db := testutil.DB(t)
	ctx := context.Background()
	p := &types.Profile{ID: uuid.New(), Email: email, FullName: "Guard Target"}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	t.Cleanup(func() {
		db.Unscoped().Where("id = ?", p.ID).Delete(&types.Profile{})
		db.Where("user_id = ?", p.ID).Delete(&types.UserRole{})
		db.Where("user_id = ?", p.ID).Delete(&types.UserAccessControl{})
	})
	return p
}

func TestSetRoleValidation(t *testing.T) {
	svc, _ := guardForTest(t, "owner@example.com", newFakeDirectory())
	ctx := context.Background()

	if _, err := svc.SetRole(ctx, "not-a-uuid", "admin"); apierr.From(err).Code != "invalid_user_id" {
		t.Fatalf("expected invalid_user_id, got %v", err)
	}
	if _, err := svc.SetRole(ctx, uuid.New().String(), "superuser"); apierr.From(err).Code != "invalid_role" {
		t.Fatalf("expected invalid_role, got %v", err)
	}
	if _, err := svc.SetRole(ctx, uuid.New().String(), "admin"); apierr.From(err).Code != "user_not_found" {
		t.Fatalf("expected user_not_found, got %v", err)
	}
}

func TestSetRoleAdditiveAndCollapse(t *testing.T) {
	dir := newFakeDirectory()
	svc, deps := guardForTest(t, "owner@example.com", dir)
	ctx := context.Background()

	p := seedGuardProfile(t, testutil.UniqueEmail("setrole"))

	role, err := svc.SetRole(ctx, p.ID.String(), "admin")
	if err != nil {
		t.Fatalf("SetRole admin: %v", err)
	}
	if role != types.RoleAdmin {
		t.Fatalf("expected admin, got %q", role)
	}

	rows, err := deps.roleRepo.ListByUser(ctx, nil, p.ID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("elevation is additive (admin + user baseline), got %d rows", len(rows))
	}

	// Setting back to "user" collapses {admin, user} to exactly {user}.
	if _, err := svc.SetRole(ctx, p.ID.String(), "user"); err != nil {
		t.Fatalf("SetRole user: %v", err)
	}
	rows, err = deps.roleRepo.ListByUser(ctx, nil, p.ID)
	if err != nil {
		t.Fatalf("ListByUser after collapse: %v", err)
	}
	if len(rows) != 1 || rows[0].Role != types.RoleUser {
		t.Fatalf("expected exactly the user row, got %+v", rows)
	}
}

func TestSetRoleOwnerProtected(t *testing.T) {
	ownerEmail := testutil.UniqueEmail("owner")
	svc, _ := guardForTest(t, ownerEmail, newFakeDirectory())
	ctx := context.Background()

	p := seedGuardProfile(t, ownerEmail)

	if _, err := svc.SetRole(ctx, p.ID.String(), "moderator"); apierr.From(err).Code != "owner_protected" {
		t.Fatalf("owner demotion must be rejected, got %v", err)
	}
	// Re-asserting admin on an owner is fine.
	if _, err := svc.SetRole(ctx, p.ID.String(), "admin"); err != nil {
		t.Fatalf("owner can stay admin: %v", err)
	}
}

func TestSetAccessControlOwnerProtected(t *testing.T) {
	ownerEmail := testutil.UniqueEmail("owner-access")
	dir := newFakeDirectory()
	svc, deps := guardForTest(t, ownerEmail, dir)
	ctx := context.Background()

	p := seedGuardProfile(t, ownerEmail)

	suspended := "suspended"
	if _, err := svc.SetAccessControl(ctx, p.ID.String(), AccessPatch{AccountStatus: &suspended}); apierr.From(err).Code != "owner_protected" {
		t.Fatalf("owner suspension must be rejected, got %v", err)
	}
	off := false
	if _, err := svc.SetAccessControl(ctx, p.ID.String(), AccessPatch{AIFeaturesEnabled: &off}); apierr.From(err).Code != "owner_protected" {
		t.Fatalf("owner AI-disable must be rejected, got %v", err)
	}

	// Nothing may have been written.
	rec, err := deps.accessRepo.Get(ctx, nil, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec != nil {
		t.Fatalf("rejected mutation must leave no row, got %+v", rec)
	}
	if len(dir.banDurations) != 0 {
		t.Fatalf("no provider call on rejection")
	}
}

func TestSetAccessControlBlockAndUnblock(t *testing.T) {
	dir := newFakeDirectory()
	svc, _ := guardForTest(t, "owner@example.com", dir)
	ctx := context.Background()

	p := seedGuardProfile(t, testutil.UniqueEmail("block"))

	blocked := "blocked"
	reason := "tos violation"
	rec, err := svc.SetAccessControl(ctx, p.ID.String(), AccessPatch{
		AccountStatus: &blocked,
		BlockedReason: &reason,
	})
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if rec.AccountStatus != types.AccountBlocked || rec.BlockedReason != "tos violation" {
		t.Fatalf("blocked record: %+v", rec)
	}
	if dir.banDurations[p.ID] != identity.BanPermanent {
		t.Fatalf("blocking with no until must ban permanently, got %q", dir.banDurations[p.ID])
	}

	// Timed block propagates a finite duration.
	until := time.Now().UTC().Add(2 * time.Hour)
	rec, err = svc.SetAccessControl(ctx, p.ID.String(), AccessPatch{
		AccountStatus: &blocked,
		BlockedUntil:  &until,
	})
	if err != nil {
		t.Fatalf("timed block: %v", err)
	}
	if dir.banDurations[p.ID] == identity.BanPermanent || dir.banDurations[p.ID] == identity.BanNone {
		t.Fatalf("timed block must send a finite duration, got %q", dir.banDurations[p.ID])
	}

	// Reactivation clears block fields and lifts the ban.
	active := "active"
	rec, err = svc.SetAccessControl(ctx, p.ID.String(), AccessPatch{AccountStatus: &active})
	if err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if rec.AccountStatus != types.AccountActive || rec.BlockedReason != "" || rec.BlockedUntil != nil {
		t.Fatalf("reactivation must clear block fields: %+v", rec)
	}
	if dir.banDurations[p.ID] != identity.BanNone {
		t.Fatalf("reactivation must lift the ban, got %q", dir.banDurations[p.ID])
	}
}

func TestSetAccessControlEnumFallbacks(t *testing.T) {
	svc, _ := guardForTest(t, "owner@example.com", newFakeDirectory())
	ctx := context.Background()

	p := seedGuardProfile(t, testutil.UniqueEmail("enums"))

	weirdStatus := "EXPLODED"
	weirdState := "comped"
	emptyPlan := "  "
	rec, err := svc.SetAccessControl(ctx, p.ID.String(), AccessPatch{
		AccountStatus:    &weirdStatus,
		PurchaseState:    &weirdState,
		SubscriptionPlan: &emptyPlan,
	})
	if err != nil {
		t.Fatalf("SetAccessControl: %v", err)
	}
	if rec.AccountStatus != types.AccountActive {
		t.Fatalf("unknown status falls back to active, got %q", rec.AccountStatus)
	}
	if rec.PurchaseState != types.PurchaseTrial {
		t.Fatalf("unknown purchase state falls back to trial, got %q", rec.PurchaseState)
	}
	if rec.SubscriptionPlan != "free" {
		t.Fatalf("blank plan falls back to free, got %q", rec.SubscriptionPlan)
	}
}

func TestSetAccessControlProviderFailureSurfaces(t *testing.T) {
	dir := newFakeDirectory()
	dir.banErr = errors.New("gotrue is down")
	svc, deps := guardForTest(t, "owner@example.com", dir)
	ctx := context.Background()

	p := seedGuardProfile(t, testutil.UniqueEmail("upstream"))

	suspended := "suspended"
	_, err := svc.SetAccessControl(ctx, p.ID.String(), AccessPatch{AccountStatus: &suspended})
	if err == nil {
		t.Fatalf("provider failure after local write must surface")
	}

	// The local row was written before the provider call failed; the caller
	// retries the whole mutation.
	rec, getErr := deps.accessRepo.Get(ctx, nil, p.ID)
	if getErr != nil {
		t.Fatalf("Get: %v", getErr)
	}
	if rec == nil || rec.AccountStatus != types.AccountSuspended {
		t.Fatalf("expected the local write to persist, got %+v", rec)
	}
}

func TestForceSignOut(t *testing.T) {
	dir := newFakeDirectory()
	svc, _ := guardForTest(t, "owner@example.com", dir)
	ctx := context.Background()

	p := seedGuardProfile(t, testutil.UniqueEmail("signout"))

	if err := svc.ForceSignOut(ctx, p.ID.String()); err != nil {
		t.Fatalf("ForceSignOut: %v", err)
	}
	if len(dir.signedOut) != 1 || dir.signedOut[0] != p.ID {
		t.Fatalf("expected a provider sign-out call for %s", p.ID)
	}
}

func TestPasswordResetLink(t *testing.T) {
	svc, _ := guardForTest(t, "owner@example.com", newFakeDirectory())
	ctx := context.Background()

	if _, err := svc.PasswordResetLink(ctx, "nonsense"); apierr.From(err).Code != "invalid_email" {
		t.Fatalf("expected invalid_email, got %v", err)
	}
	link, err := svc.PasswordResetLink(ctx, "Person@Example.com")
	if err != nil {
		t.Fatalf("PasswordResetLink: %v", err)
	}
	if link == "" {
		t.Fatalf("expected an action link")
	}
}
