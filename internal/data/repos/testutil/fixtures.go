package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/careerdesk/careerdesk-backend/internal/domain"
)

func SeedProfile(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.Profile {
	tb.Helper()
	p := &types.Profile{
		ID:         uuid.New(),
		Email:      email,
		FullName:   "Test User",
		TargetRole: "backend engineer",
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed profile: %v", err)
	}
	return p
}

func SeedRole(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, role types.Role) *types.UserRole {
	tb.Helper()
	r := &types.UserRole{
		ID:     uuid.New(),
		UserID: userID,
		Role:   role,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed role: %v", err)
	}
	return r
}

func SeedAccessControl(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, status types.AccountStatus) *types.UserAccessControl {
	tb.Helper()
	ac := types.DefaultAccessControl(userID)
	ac.AccountStatus = status
	if err := tx.WithContext(ctx).Create(ac).Error; err != nil {
		tb.Fatalf("seed access control: %v", err)
	}
	return ac
}

func SeedConversation(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, updatedAt time.Time) *types.Conversation {
	tb.Helper()
	c := &types.Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     "conversation",
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed conversation: %v", err)
	}
	return c
}

func SeedMessage(tb testing.TB, ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, role, content string, createdAt time.Time) *types.Message {
	tb.Helper()
	m := &types.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      createdAt,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}

func SeedTrackedJob(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string, updatedAt time.Time) *types.TrackedJob {
	tb.Helper()
	j := &types.TrackedJob{
		ID:        uuid.New(),
		UserID:    userID,
		Company:   "Acme",
		Status:    status,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}
	if err := tx.WithContext(ctx).Create(j).Error; err != nil {
		tb.Fatalf("seed tracked job: %v", err)
	}
	return j
}

func SeedPageEvent(tb testing.TB, ctx context.Context, tx *gorm.DB, sessionID, name, path, referrer string, createdAt time.Time) *types.PageEvent {
	tb.Helper()
	e := &types.PageEvent{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Name:       name,
		Path:       path,
		Referrer:   referrer,
		Properties: datatypes.JSON([]byte(`{"country":"US","device":"desktop"}`)),
		CreatedAt:  createdAt,
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed page event: %v", err)
	}
	return e
}

// UniqueEmail avoids collisions with rows left by other suites sharing the
// test database.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@example.com", prefix, uuid.New().String()[:8])
}
