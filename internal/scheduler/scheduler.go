// Package scheduler drives the periodic new-video check cycle.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ytnotify/internal/badge"
	"ytnotify/internal/model"
	"ytnotify/internal/storage"
)

// Aggregator runs one check across all channels and returns the new-video
// count and the notification messages.
type Aggregator interface {
	RunCycle(ctx context.Context, channels []model.Channel, settings model.Settings, cache map[string][]model.Video) (int, []string)
}

// Notifier delivers a single notification message. Fire and forget:
// implementations log their own failures.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Scheduler owns the polling loop and the running total. Cycles run strictly
// one at a time; the timer is rearmed only after a cycle fully completes,
// using the interval freshly reloaded from storage so setting changes take
// effect on the next iteration.
type Scheduler struct {
	store    storage.Storage
	agg      Aggregator
	display  badge.Display
	notifier Notifier
	log      *slog.Logger

	mu    sync.Mutex
	total int

	// Duration of one configured interval minute. Shortened in tests.
	scale time.Duration
}

// New creates a Scheduler.
func New(store storage.Storage, agg Aggregator, display badge.Display, notifier Notifier, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		agg:      agg,
		display:  display,
		notifier: notifier,
		log:      log,
		scale:    time.Minute,
	}
}

// SetIntervalScale overrides the real-time length of one interval minute
// (useful for testing).
func (s *Scheduler) SetIntervalScale(d time.Duration) {
	s.scale = d
}

// Run starts the loop, blocking until ctx is cancelled. The first cycle
// fires only after a full interval: wait, then check.
func (s *Scheduler) Run(ctx context.Context) {
	if err := s.display.SetColors(ctx, "#666", "#fff"); err != nil {
		s.log.Error("set badge colors", "error", err)
	}

	for {
		d := s.nextInterval(ctx)
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		s.RunCycle(ctx)
	}
}

// nextInterval reloads the settings so an interval edit applies to the very
// next arming of the timer. Any load failure falls back to the defaults:
// the loop must always rearm.
func (s *Scheduler) nextInterval(ctx context.Context) time.Duration {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		s.log.Error("load settings", "error", err)
		settings = model.DefaultSettings()
	}
	minutes := settings.CheckRateMinutes
	if minutes <= 0 {
		minutes = model.DefaultCheckRateMinutes
	}
	return time.Duration(minutes) * s.scale
}

// RunCycle performs one full check: load state, aggregate new videos, fold
// the badge total, and dispatch notifications. It returns the cycle's
// new-video count and messages, and never fails; every error is logged and
// degraded to an undercount.
func (s *Scheduler) RunCycle(ctx context.Context) (int, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		s.log.Error("load channels", "error", err)
		return 0, nil
	}
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		s.log.Error("load settings", "error", err)
		settings = model.DefaultSettings()
	}
	cache, err := s.store.ListAllVideos(ctx)
	if err != nil {
		s.log.Error("load video cache", "error", err)
		cache = nil
	}

	count, messages := s.agg.RunCycle(ctx, channels, settings, cache)

	// Read the badge immediately before folding: an empty text means the
	// user has seen and dismissed the previous total.
	text, err := s.display.Text(ctx)
	if err != nil {
		s.log.Error("read badge text", "error", err)
		text = ""
	}
	s.total = badge.Fold(s.total, text == "", count)

	if err := s.display.SetText(ctx, s.total); err != nil {
		s.log.Error("set badge text", "error", err)
	}

	s.log.Info("cycle complete", "new_videos", count, "total", s.total)

	if settings.EnableNotifications && count > 0 {
		for _, message := range messages {
			s.notifier.Notify(ctx, message)
		}
	}
	return count, messages
}
