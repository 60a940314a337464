package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/careerdesk/careerdesk-backend/internal/domain"
)

func pageView(session string, at time.Time) *types.PageEvent {
	return &types.PageEvent{
		ID:        uuid.New(),
		SessionID: session,
		Name:      types.EventPageView,
		Path:      "/",
		CreatedAt: at,
	}
}

func TestReconstructSessionsEmpty(t *testing.T) {
	now := time.Now().UTC()
	out := ReconstructSessions(nil, 7, now)

	if out.UniqueVisitors != 0 || out.PageViews != 0 || out.BounceRate != 0 {
		t.Fatalf("empty input must yield zeroed metrics: %+v", out)
	}
	if len(out.Trend) != 7 {
		t.Fatalf("trend must be zero-filled to the range, got %d points", len(out.Trend))
	}
	for _, p := range out.Trend {
		if p.Visitors != 0 || p.PageViews != 0 {
			t.Fatalf("trend point must be zero: %+v", p)
		}
	}
	if out.Trend[len(out.Trend)-1].Date != now.Format("2006-01-02") {
		t.Fatalf("last trend point must be today, got %s", out.Trend[len(out.Trend)-1].Date)
	}
}

func TestReconstructSessionsAllBounces(t *testing.T) {
	now := time.Now().UTC()
	var events []*types.PageEvent
	for i := 0; i < 5; i++ {
		events = append(events, pageView(fmt.Sprintf("s%d", i), now.Add(-time.Hour)))
	}

	out := ReconstructSessions(events, 7, now)
	if out.UniqueVisitors != 5 {
		t.Fatalf("expected 5 sessions, got %d", out.UniqueVisitors)
	}
	if out.BounceRate != 100 {
		t.Fatalf("single-view sessions must all bounce, got %v", out.BounceRate)
	}
	if out.ViewsPerVisit != 1 {
		t.Fatalf("views per visit must be 1, got %v", out.ViewsPerVisit)
	}
}

func TestReconstructSessionsTwoViewSession(t *testing.T) {
	now := time.Now().UTC()
	start := now.Add(-time.Hour)
	events := []*types.PageEvent{
		pageView("s1", start),
		pageView("s1", start.Add(30*time.Second)),
	}

	out := ReconstructSessions(events, 7, now)
	if out.UniqueVisitors != 1 {
		t.Fatalf("expected one session, got %d", out.UniqueVisitors)
	}
	if out.PageViews != 2 {
		t.Fatalf("expected 2 page views, got %d", out.PageViews)
	}
	if out.BounceRate != 0 {
		t.Fatalf("two-view session must not bounce, got %v", out.BounceRate)
	}
	if out.AvgVisitDurationSec != 30 {
		t.Fatalf("expected 30s visit duration, got %v", out.AvgVisitDurationSec)
	}
}

func TestReconstructSessionsOnlineWindow(t *testing.T) {
	now := time.Now().UTC()
	events := []*types.PageEvent{
		pageView("fresh", now.Add(-time.Minute)),
		pageView("stale", now.Add(-time.Hour)),
	}

	out := ReconstructSessions(events, 7, now)
	if out.CurrentlyOnline != 1 {
		t.Fatalf("only the session active within 5 minutes counts as online, got %d", out.CurrentlyOnline)
	}
}

func TestReconstructSessionsSignedInVisitors(t *testing.T) {
	now := time.Now().UTC()
	userID := uuid.New()

	withUser := pageView("s1", now.Add(-time.Hour))
	withUser.UserID = &userID

	// Same user across two sessions still counts once.
	secondSession := pageView("s2", now.Add(-time.Hour))
	secondSession.UserID = &userID

	events := []*types.PageEvent{withUser, secondSession, pageView("anon", now.Add(-time.Hour))}
	out := ReconstructSessions(events, 7, now)
	if out.SignedInVisitors != 1 {
		t.Fatalf("expected 1 signed-in visitor, got %d", out.SignedInVisitors)
	}
}

func TestReconstructSessionsBreakdowns(t *testing.T) {
	now := time.Now().UTC()
	at := now.Add(-time.Hour)

	google := pageView("s1", at)
	google.Referrer = "https://www.google.com/search?q=jobs"
	google.Properties = []byte(`{"country":"DE","device":"mobile"}`)

	direct := pageView("s2", at)

	custom := pageView("s3", at)
	custom.Referrer = "https://blog.example.io/post"

	out := ReconstructSessions([]*types.PageEvent{google, direct, custom}, 7, now)

	labels := map[string]int{}
	for _, e := range out.TopSources {
		labels[e.Label] = e.Count
	}
	if labels["Google"] != 1 || labels["Direct"] != 1 || labels["blog.example.io"] != 1 {
		t.Fatalf("unexpected source breakdown: %+v", out.TopSources)
	}

	countries := map[string]int{}
	for _, e := range out.TopCountries {
		countries[e.Label] = e.Count
	}
	if countries["DE"] != 1 || countries["Unknown"] != 2 {
		t.Fatalf("unexpected country breakdown: %+v", out.TopCountries)
	}
}

func TestReconstructSessionsBreakdownCap(t *testing.T) {
	now := time.Now().UTC()
	var events []*types.PageEvent
	for i := 0; i < 20; i++ {
		ev := pageView(fmt.Sprintf("s%d", i), now.Add(-time.Hour))
		ev.Path = fmt.Sprintf("/page-%02d", i)
		events = append(events, ev)
	}

	out := ReconstructSessions(events, 7, now)
	if len(out.TopPages) != 12 {
		t.Fatalf("breakdowns cap at 12, got %d", len(out.TopPages))
	}
}

func TestReconstructSessionsDeterministic(t *testing.T) {
	now := time.Now().UTC()
	var events []*types.PageEvent
	for i := 0; i < 30; i++ {
		ev := pageView(fmt.Sprintf("s%d", i%7), now.Add(-time.Duration(i)*time.Minute))
		ev.Path = fmt.Sprintf("/p%d", i%3)
		events = append(events, ev)
	}

	a := ReconstructSessions(events, 14, now)
	b := ReconstructSessions(events, 14, now)
	if a.PageViews != b.PageViews || a.BounceRate != b.BounceRate || len(a.Trend) != len(b.Trend) {
		t.Fatalf("same input must produce identical analytics")
	}
	for i := range a.TopPages {
		if a.TopPages[i] != b.TopPages[i] {
			t.Fatalf("breakdown ordering must be stable: %+v vs %+v", a.TopPages, b.TopPages)
		}
	}
}

func TestClassifySource(t *testing.T) {
	tests := []struct {
		referrer string
		want     string
	}{
		{"", "Direct"},
		{"not a url", "Direct"},
		{"https://www.google.com/search", "Google"},
		{"https://t.co/abc", "Twitter/X"},
		{"https://news.ycombinator.com/", "news.ycombinator.com"},
	}
	for _, tc := range tests {
		if got := classifySource(tc.referrer); got != tc.want {
			t.Fatalf("classifySource(%q) = %q, want %q", tc.referrer, got, tc.want)
		}
	}
}
