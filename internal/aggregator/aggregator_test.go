package aggregator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"ytnotify/internal/dedup"
	"ytnotify/internal/model"
)

type channelFeed struct {
	events []model.UploadEvent
	err    error
	delay  time.Duration
}

type mockFetcher struct {
	mu    sync.Mutex
	feeds map[string]channelFeed
	since map[string]time.Time
}

func (m *mockFetcher) RecentUploads(_ context.Context, channelID string, since time.Time) ([]model.UploadEvent, error) {
	m.mu.Lock()
	feed := m.feeds[channelID]
	if m.since == nil {
		m.since = make(map[string]time.Time)
	}
	m.since[channelID] = since
	m.mu.Unlock()

	if feed.delay > 0 {
		time.Sleep(feed.delay)
	}
	return feed.events, feed.err
}

func uploads(channelID string, ids ...string) []model.UploadEvent {
	var evs []model.UploadEvent
	for _, id := range ids {
		evs = append(evs, model.UploadEvent{ChannelID: channelID, VideoID: id})
	}
	return evs
}

func newAggregator(fetcher ActivityFetcher) *Aggregator {
	return New(fetcher, dedup.NewTracker(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRunCycle(t *testing.T) {
	channels := []model.Channel{
		{ID: "UCa", Title: "Alpha"},
		{ID: "UCb", Title: "Beta"},
		{ID: "UCc", Title: "Gamma"},
	}
	settings := model.DefaultSettings()

	tests := []struct {
		name         string
		feeds        map[string]channelFeed
		channels     []model.Channel
		cache        map[string][]model.Video
		wantCount    int
		wantMessages []string
	}{
		{
			name: "counts and messages across channels",
			feeds: map[string]channelFeed{
				"UCa": {events: uploads("UCa", "a1")},
				"UCb": {events: uploads("UCb", "b1", "b2")},
				"UCc": {events: nil},
			},
			channels:  channels,
			wantCount: 3,
			wantMessages: []string{
				"Alpha posted 1 recent video",
				"Beta posted 2 recent videos",
			},
		},
		{
			name: "failing channel is skipped, others keep counting",
			feeds: map[string]channelFeed{
				"UCa": {events: uploads("UCa", "a1")},
				"UCb": {err: errors.New("api unavailable")},
				"UCc": {events: uploads("UCc", "c1")},
			},
			channels:  channels,
			wantCount: 2,
			wantMessages: []string{
				"Alpha posted 1 recent video",
				"Gamma posted 1 recent video",
			},
		},
		{
			name: "hidden channels are not fetched",
			feeds: map[string]channelFeed{
				"UCa": {events: uploads("UCa", "a1")},
				"UCb": {events: uploads("UCb", "b1")},
			},
			channels: []model.Channel{
				{ID: "UCa", Title: "Alpha"},
				{ID: "UCb", Title: "Beta", Hidden: true},
			},
			wantCount:    1,
			wantMessages: []string{"Alpha posted 1 recent video"},
		},
		{
			name: "cached videos are not counted",
			feeds: map[string]channelFeed{
				"UCa": {events: uploads("UCa", "a1", "a2")},
			},
			channels: []model.Channel{{ID: "UCa", Title: "Alpha"}},
			cache: map[string][]model.Video{
				"UCa": {{ID: "a1", ChannelID: "UCa"}},
			},
			wantCount:    1,
			wantMessages: []string{"Alpha posted 1 recent video"},
		},
		{
			name:      "no channels",
			feeds:     map[string]channelFeed{},
			channels:  nil,
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := newAggregator(&mockFetcher{feeds: tt.feeds})
			count, messages := agg.RunCycle(context.Background(), tt.channels, settings, tt.cache)

			if diff := cmp.Diff(tt.wantCount, count); diff != "" {
				t.Errorf("count mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantMessages, messages); diff != "" {
				t.Errorf("messages mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunCycleDeterministicOrder(t *testing.T) {
	// The slowest channel comes first in the list; its message must still
	// lead regardless of fetch completion order.
	feeds := map[string]channelFeed{
		"UCa": {events: uploads("UCa", "a1"), delay: 50 * time.Millisecond},
		"UCb": {events: uploads("UCb", "b1")},
		"UCc": {events: uploads("UCc", "c1")},
	}
	channels := []model.Channel{
		{ID: "UCa", Title: "Alpha"},
		{ID: "UCb", Title: "Beta"},
		{ID: "UCc", Title: "Gamma"},
	}

	agg := newAggregator(&mockFetcher{feeds: feeds})
	_, messages := agg.RunCycle(context.Background(), channels, model.DefaultSettings(), nil)

	want := []string{
		"Alpha posted 1 recent video",
		"Beta posted 1 recent video",
		"Gamma posted 1 recent video",
	}
	if diff := cmp.Diff(want, messages); diff != "" {
		t.Errorf("messages order mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCycleNoDuplicatesAcrossCycles(t *testing.T) {
	feeds := map[string]channelFeed{
		"UCa": {events: uploads("UCa", "a1", "a2")},
	}
	channels := []model.Channel{{ID: "UCa", Title: "Alpha"}}

	agg := newAggregator(&mockFetcher{feeds: feeds})

	count, _ := agg.RunCycle(context.Background(), channels, model.DefaultSettings(), nil)
	if count != 2 {
		t.Fatalf("first cycle count = %d, want 2", count)
	}

	// Same feed window on the next cycle: nothing is new anymore.
	count, messages := agg.RunCycle(context.Background(), channels, model.DefaultSettings(), nil)
	if count != 0 {
		t.Errorf("second cycle count = %d, want 0", count)
	}
	if len(messages) != 0 {
		t.Errorf("second cycle messages = %v, want none", messages)
	}
}

func TestRunCycleAnteriorityWindow(t *testing.T) {
	fetcher := &mockFetcher{feeds: map[string]channelFeed{"UCa": {}}}
	agg := newAggregator(fetcher)

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return now }

	settings := model.DefaultSettings()
	settings.VideosAnteriorityDays = 3
	agg.RunCycle(context.Background(), []model.Channel{{ID: "UCa"}}, settings, nil)

	want := now.AddDate(0, 0, -3)
	if got := fetcher.since["UCa"]; !got.Equal(want) {
		t.Errorf("since = %v, want %v", got, want)
	}

	// Zero falls back to the default window.
	settings.VideosAnteriorityDays = 0
	agg.RunCycle(context.Background(), []model.Channel{{ID: "UCa"}}, settings, nil)
	want = now.AddDate(0, 0, -model.DefaultVideosAnteriorityDays)
	if got := fetcher.since["UCa"]; !got.Equal(want) {
		t.Errorf("default since = %v, want %v", got, want)
	}
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		title string
		count int
		want  string
	}{
		{"Tech Talks", 1, "Tech Talks posted 1 recent video"},
		{"Tech Talks", 2, "Tech Talks posted 2 recent videos"},
		{"Tech Talks", 10, "Tech Talks posted 10 recent videos"},
	}
	for _, tt := range tests {
		if got := FormatMessage(tt.title, tt.count); got != tt.want {
			t.Errorf("FormatMessage(%q, %d) = %q, want %q", tt.title, tt.count, got, tt.want)
		}
	}
}
