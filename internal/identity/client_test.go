package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/careerdesk/careerdesk-backend/internal/platform/apierr"
	"github.com/careerdesk/careerdesk-backend/internal/platform/logger"
)

func testClient(t *testing.T, handler http.Handler) (Directory, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	dir, err := NewClient(srv.URL, "service-key", log)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return dir, srv
}

func TestNewClientRequiresConfig(t *testing.T) {
	log, _ := logger.New("test")
	if _, err := NewClient("", "key", log); err == nil {
		t.Fatalf("missing base URL must fail")
	}
	if _, err := NewClient("http://identity.local", "", log); err == nil {
		t.Fatalf("missing service key must fail")
	}
}

func TestListUsersPagination(t *testing.T) {
	perPage := 2
	pages := map[string][]DirectoryUser{
		"1": {{ID: uuid.New(), Email: "a@example.com"}, {ID: uuid.New(), Email: "b@example.com"}},
		"2": {{ID: uuid.New(), Email: "c@example.com"}},
	}

	dir, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/users" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer service-key" {
			t.Errorf("missing bearer header, got %q", got)
		}
		if got := r.Header.Get("apikey"); got != "service-key" {
			t.Errorf("missing apikey header, got %q", got)
		}
		page := r.URL.Query().Get("page")
		_ = json.NewEncoder(w).Encode(map[string]any{"users": pages[page]})
	}))

	ctx := context.Background()

	first, more, err := dir.ListUsers(ctx, 1, perPage)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(first) != 2 || !more {
		t.Fatalf("full page must report more: len=%d more=%v", len(first), more)
	}

	second, more, err := dir.ListUsers(ctx, 2, perPage)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(second) != 1 || more {
		t.Fatalf("short page means exhausted: len=%d more=%v", len(second), more)
	}
}

func TestSetBanDuration(t *testing.T) {
	userID := uuid.New()
	var gotMethod, gotPath, gotDuration string

	dir, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotDuration = body["ban_duration"]
		w.WriteHeader(http.StatusOK)
	}))

	if err := dir.SetBanDuration(context.Background(), userID, BanPermanent); err != nil {
		t.Fatalf("SetBanDuration: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != fmt.Sprintf("/admin/users/%s", userID) {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
	if gotDuration != BanPermanent {
		t.Fatalf("expected ban_duration %q, got %q", BanPermanent, gotDuration)
	}
}

func TestSignOutUser(t *testing.T) {
	userID := uuid.New()
	var gotPath string

	dir, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := dir.SignOutUser(context.Background(), userID); err != nil {
		t.Fatalf("SignOutUser: %v", err)
	}
	if gotPath != fmt.Sprintf("/admin/users/%s/logout", userID) {
		t.Fatalf("unexpected path %s", gotPath)
	}
}

func TestGenerateRecoveryLink(t *testing.T) {
	dir, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["type"] != "recovery" || body["email"] != "p@example.com" {
			t.Errorf("unexpected payload %v", body)
		}
		if body["redirect_to"] != "https://app.example.com/reset" {
			t.Errorf("redirect_to missing: %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"action_link": "https://identity.local/verify?token=x"})
	}))

	link, err := dir.GenerateRecoveryLink(context.Background(), "p@example.com", "https://app.example.com/reset")
	if err != nil {
		t.Fatalf("GenerateRecoveryLink: %v", err)
	}
	if link != "https://identity.local/verify?token=x" {
		t.Fatalf("unexpected link %q", link)
	}
}

func TestUpstreamErrorMapsToTaxonomy(t *testing.T) {
	dir, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, _, err := dir.ListUsers(context.Background(), 1, 10)
	if err == nil {
		t.Fatalf("expected error")
	}
	if apierr.From(err).Code != "upstream_failure" {
		t.Fatalf("expected upstream_failure, got %v", apierr.From(err).Code)
	}
}
