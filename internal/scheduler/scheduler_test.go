package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"ytnotify/internal/badge"
	"ytnotify/internal/model"
	"ytnotify/internal/storage"
)

type cycleResult struct {
	count    int
	messages []string
}

type mockAggregator struct {
	mu      sync.Mutex
	results []cycleResult
	calls   int
}

func (m *mockAggregator) RunCycle(_ context.Context, _ []model.Channel, _ model.Settings, _ map[string][]model.Video) (int, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := cycleResult{}
	if m.calls < len(m.results) {
		res = m.results[m.calls]
	}
	m.calls++
	return res.count, res.messages
}

func (m *mockAggregator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockNotifier) Notify(_ context.Context, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
}

func (m *mockNotifier) sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunCycleFoldsBadge(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	state := badge.NewState()
	agg := &mockAggregator{results: []cycleResult{
		{count: 2, messages: []string{"Alpha posted 2 recent videos"}},
		{count: 3, messages: []string{"Beta posted 3 recent videos"}},
		{count: 1, messages: []string{"Alpha posted 1 recent video"}},
	}}

	sched := New(store, agg, state, &mockNotifier{}, discardLogger())

	// First cycle: badge empty (never shown), total replaced with 2.
	sched.RunCycle(ctx)
	text, _ := state.Text(ctx)
	if text != "2" {
		t.Fatalf("after first cycle text = %q, want 2", text)
	}

	// Unacknowledged: the next count accumulates.
	sched.RunCycle(ctx)
	text, _ = state.Text(ctx)
	if text != "5" {
		t.Fatalf("after second cycle text = %q, want 5", text)
	}

	// Acknowledged: the next count replaces the total.
	state.Acknowledge()
	sched.RunCycle(ctx)
	text, _ = state.Text(ctx)
	if text != "1" {
		t.Fatalf("after acknowledged cycle text = %q, want 1", text)
	}
}

func TestRunCycleSendsNotifications(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	notifier := &mockNotifier{}
	agg := &mockAggregator{results: []cycleResult{
		{count: 3, messages: []string{"Alpha posted 1 recent video", "Beta posted 2 recent videos"}},
	}}

	sched := New(store, agg, badge.NewState(), notifier, discardLogger())
	sched.RunCycle(ctx)

	want := []string{"Alpha posted 1 recent video", "Beta posted 2 recent videos"}
	if diff := cmp.Diff(want, notifier.sent()); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCycleNotificationsDisabled(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	settings := model.DefaultSettings()
	settings.EnableNotifications = false
	if err := store.UpdateSettings(ctx, settings); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	notifier := &mockNotifier{}
	agg := &mockAggregator{results: []cycleResult{
		{count: 2, messages: []string{"Alpha posted 2 recent videos"}},
	}}

	sched := New(store, agg, badge.NewState(), notifier, discardLogger())
	sched.RunCycle(ctx)

	if got := notifier.sent(); len(got) != 0 {
		t.Errorf("expected no notifications when disabled, got %v", got)
	}
}

func TestRunCycleNoNewVideos(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	notifier := &mockNotifier{}

	sched := New(store, &mockAggregator{}, badge.NewState(), notifier, discardLogger())
	count, messages := sched.RunCycle(ctx)

	if count != 0 || len(messages) != 0 {
		t.Errorf("RunCycle = (%d, %v), want (0, [])", count, messages)
	}
	if got := notifier.sent(); len(got) != 0 {
		t.Errorf("expected no notifications, got %v", got)
	}
}

func TestNextIntervalHonorsLiveConfig(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sched := New(store, &mockAggregator{}, badge.NewState(), &mockNotifier{}, discardLogger())
	sched.SetIntervalScale(time.Millisecond)

	// Default when nothing is stored.
	if got := sched.nextInterval(ctx); got != model.DefaultCheckRateMinutes*time.Millisecond {
		t.Errorf("default interval = %v, want %v", got, model.DefaultCheckRateMinutes*time.Millisecond)
	}

	settings := model.DefaultSettings()
	settings.CheckRateMinutes = 30
	if err := store.UpdateSettings(ctx, settings); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if got := sched.nextInterval(ctx); got != 30*time.Millisecond {
		t.Errorf("interval = %v, want 30ms", got)
	}

	// An edit while a cycle runs must be picked up by the very next arm.
	settings.CheckRateMinutes = 5
	if err := store.UpdateSettings(ctx, settings); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if got := sched.nextInterval(ctx); got != 5*time.Millisecond {
		t.Errorf("interval after edit = %v, want 5ms", got)
	}
}

func TestRunDelaysFirstCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newTestStore(t)
	settings := model.DefaultSettings()
	settings.CheckRateMinutes = 2
	if err := store.UpdateSettings(context.Background(), settings); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	agg := &mockAggregator{}
	sched := New(store, agg, badge.NewState(), &mockNotifier{}, discardLogger())
	sched.SetIntervalScale(100 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	// Well before the first 200ms interval elapses: no cycle yet.
	time.Sleep(50 * time.Millisecond)
	if got := agg.callCount(); got != 0 {
		t.Errorf("expected no cycle before the first interval, got %d", got)
	}

	// After the interval the first cycle must have fired.
	time.Sleep(300 * time.Millisecond)
	if got := agg.callCount(); got == 0 {
		t.Error("expected at least one cycle after the first interval")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := newTestStore(t)
	sched := New(store, &mockAggregator{}, badge.NewState(), &mockNotifier{}, discardLogger())
	sched.SetIntervalScale(time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

type failingStore struct {
	storage.Storage
}

func (f *failingStore) ListChannels(_ context.Context) ([]model.Channel, error) {
	return nil, errors.New("database locked")
}

func TestRunCycleSurvivesStoreErrors(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Storage: newTestStore(t)}

	sched := New(store, &mockAggregator{}, badge.NewState(), &mockNotifier{}, discardLogger())

	count, messages := sched.RunCycle(ctx)
	if count != 0 || messages != nil {
		t.Errorf("RunCycle with failing store = (%d, %v), want (0, nil)", count, messages)
	}
}
