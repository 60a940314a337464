package services

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/careerdesk/careerdesk-backend/internal/data/db"
	"github.com/careerdesk/careerdesk-backend/internal/data/repos"
	types "github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/careerdesk/careerdesk-backend/internal/platform/logger"
)

const (
	// Sessions whose last event falls inside this trailing window count as
	// currently online.
	onlineWindow = 5 * time.Minute

	breakdownLimit = 12

	sourceDirect   = "Direct"
	countryUnknown = "Unknown"
	deviceOther    = "Other"
)

type TrafficTrendPoint struct {
	Date      string `json:"date"`
	Visitors  int    `json:"visitors"`
	PageViews int    `json:"page_views"`
}

type BreakdownEntry struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type WebsiteAnalytics struct {
	UniqueVisitors      int     `json:"unique_visitors"`
	PageViews           int     `json:"page_views"`
	SignedInVisitors    int     `json:"signed_in_visitors"`
	CurrentlyOnline     int     `json:"currently_online"`
	ViewsPerVisit       float64 `json:"views_per_visit"`
	BounceRate          float64 `json:"bounce_rate"`
	AvgVisitDurationSec float64 `json:"avg_visit_duration_sec"`

	Trend        []TrafficTrendPoint `json:"trend"`
	TopSources   []BreakdownEntry    `json:"top_sources"`
	TopPages     []BreakdownEntry    `json:"top_pages"`
	TopCountries []BreakdownEntry    `json:"top_countries"`
	TopDevices   []BreakdownEntry    `json:"top_devices"`

	Warning string `json:"warning,omitempty"`
}

type TrafficService interface {
	// Analyze loads the event window and reconstructs sessions. A missing
	// event table yields a zeroed result with a warning, never an error.
	Analyze(ctx context.Context, tx *gorm.DB, rangeDays int) (WebsiteAnalytics, error)
}

type trafficService struct {
	log       *logger.Logger
	eventRepo repos.EventRepo
	limit     int
}

func NewTrafficService(baseLog *logger.Logger, eventRepo repos.EventRepo, sampleLimit int) TrafficService {
	return &trafficService{
		log:       baseLog.With("service", "TrafficService"),
		eventRepo: eventRepo,
		limit:     sampleLimit,
	}
}

func (ts *trafficService) Analyze(ctx context.Context, tx *gorm.DB, rangeDays int) (WebsiteAnalytics, error) {
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -rangeDays)

	events, err := ts.eventRepo.ListSince(ctx, tx, since, ts.limit)
	if err != nil {
		if db.IsUndefinedTable(err) {
			ts.log.Warn("page_event table not provisioned; returning empty analytics")
			out := ReconstructSessions(nil, rangeDays, now)
			out.Warning = "traffic data unavailable: page_event table is not provisioned yet"
			return out, nil
		}
		return WebsiteAnalytics{}, err
	}
	return ReconstructSessions(events, rangeDays, now), nil
}

type sessionAgg struct {
	first     time.Time
	last      time.Time
	pageViews int
	userID    string
	source    string
	country   string
	device    string
	days      map[string]struct{}
}

// ReconstructSessions is a pure function of the event window: identical
// inputs always produce identical analytics. Sessions are rebuilt from
// scratch on every call and never cached.
func ReconstructSessions(events []*types.PageEvent, rangeDays int, now time.Time) WebsiteAnalytics {
	sessions := map[string]*sessionAgg{}
	pageViewsByDay := map[string]int{}

	for _, ev := range events {
		if ev == nil || ev.SessionID == "" {
			continue
		}
		s := sessions[ev.SessionID]
		if s == nil {
			s = &sessionAgg{
				first:   ev.CreatedAt,
				last:    ev.CreatedAt,
				source:  classifySource(ev.Referrer),
				country: countryUnknown,
				device:  deviceOther,
				days:    map[string]struct{}{},
			}
			sessions[ev.SessionID] = s
		}
		if ev.CreatedAt.Before(s.first) {
			s.first = ev.CreatedAt
		}
		if ev.CreatedAt.After(s.last) {
			s.last = ev.CreatedAt
		}
		s.days[dayKey(ev.CreatedAt)] = struct{}{}
		if ev.UserID != nil {
			s.userID = ev.UserID.String()
		}
		if country, device, ok := parseEventProperties(ev.Properties); ok {
			if country != "" {
				s.country = country
			}
			if device != "" {
				s.device = device
			}
		}
		if ev.Name == types.EventPageView {
			s.pageViews++
			pageViewsByDay[dayKey(ev.CreatedAt)]++
		}
	}

	out := WebsiteAnalytics{
		UniqueVisitors: len(sessions),
	}

	signedIn := map[string]struct{}{}
	sources := map[string]int{}
	countries := map[string]int{}
	devices := map[string]int{}
	pages := map[string]int{}
	sessionsByDay := map[string]int{}

	var viewingSessions, bounced int
	var totalDuration time.Duration

	for _, ev := range events {
		if ev != nil && ev.Name == types.EventPageView && ev.Path != "" {
			pages[ev.Path]++
		}
	}

	for _, s := range sessions {
		out.PageViews += s.pageViews
		if s.userID != "" {
			signedIn[s.userID] = struct{}{}
		}
		if now.Sub(s.last) <= onlineWindow {
			out.CurrentlyOnline++
		}
		sources[s.source]++
		countries[s.country]++
		devices[s.device]++
		for day := range s.days {
			sessionsByDay[day]++
		}

		// Visit-quality metrics only consider sessions that actually
		// viewed a page.
		if s.pageViews > 0 {
			viewingSessions++
			totalDuration += s.last.Sub(s.first)
			if s.pageViews == 1 {
				bounced++
			}
		}
	}

	out.SignedInVisitors = len(signedIn)
	if viewingSessions > 0 {
		out.ViewsPerVisit = float64(out.PageViews) / float64(viewingSessions)
		out.BounceRate = float64(bounced) / float64(viewingSessions) * 100
		out.AvgVisitDurationSec = totalDuration.Seconds() / float64(viewingSessions)
	}

	out.Trend = make([]TrafficTrendPoint, 0, rangeDays)
	for i := rangeDays - 1; i >= 0; i-- {
		day := dayKey(now.AddDate(0, 0, -i))
		out.Trend = append(out.Trend, TrafficTrendPoint{
			Date:      day,
			Visitors:  sessionsByDay[day],
			PageViews: pageViewsByDay[day],
		})
	}

	out.TopSources = topEntries(sources, breakdownLimit)
	out.TopPages = topEntries(pages, breakdownLimit)
	out.TopCountries = topEntries(countries, breakdownLimit)
	out.TopDevices = topEntries(devices, breakdownLimit)

	return out
}

var knownSources = map[string]string{
	"google":     "Google",
	"bing":       "Bing",
	"duckduckgo": "DuckDuckGo",
	"yahoo":      "Yahoo",
	"facebook":   "Facebook",
	"instagram":  "Instagram",
	"linkedin":   "LinkedIn",
	"twitter":    "Twitter/X",
	"x":          "Twitter/X",
	"t":          "Twitter/X",
	"reddit":     "Reddit",
	"youtube":    "YouTube",
	"tiktok":     "TikTok",
}

func classifySource(referrer string) string {
	referrer = strings.TrimSpace(referrer)
	if referrer == "" {
		return sourceDirect
	}
	u, err := url.Parse(referrer)
	if err != nil || u.Host == "" {
		return sourceDirect
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		if label, ok := knownSources[parts[len(parts)-2]]; ok {
			return label
		}
	}
	return host
}

func parseEventProperties(raw []byte) (country, device string, ok bool) {
	if len(raw) == 0 {
		return "", "", false
	}
	var props struct {
		Country string `json:"country"`
		Device  string `json:"device"`
	}
	if err := json.Unmarshal(raw, &props); err != nil {
		return "", "", false
	}
	return strings.TrimSpace(props.Country), strings.TrimSpace(props.Device), true
}

func topEntries(counts map[string]int, limit int) []BreakdownEntry {
	entries := make([]BreakdownEntry, 0, len(counts))
	for label, count := range counts {
		entries = append(entries, BreakdownEntry{Label: label, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Label < entries[j].Label
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
