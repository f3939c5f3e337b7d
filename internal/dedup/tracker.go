// Package dedup computes which upload events are genuinely new for a channel.
package dedup

import (
	"sync"

	"ytnotify/internal/model"
)

// Tracker remembers video IDs already counted as new during the current
// process lifetime. It is never persisted: clearing the video cache must not
// cause videos already surfaced to the user to be re-counted. Entries are
// only ever added.
type Tracker struct {
	mu      sync.Mutex
	counted map[string]map[string]struct{}
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{counted: make(map[string]map[string]struct{})}
}

// ComputeNew returns the video IDs from events that are new for the channel:
// not already counted this process lifetime and not present among cachedIDs.
// Events with no video ID are dropped, duplicates within the batch keep their
// first occurrence, and at most limit IDs are considered, in feed order
// (limit <= 0 means no truncation).
//
// The surviving IDs are recorded as counted before returning, so a failure in
// any later step of the cycle cannot cause them to be re-counted on retry.
func (t *Tracker) ComputeNew(channelID string, events []model.UploadEvent, cachedIDs []string, limit int) []string {
	ids := make([]string, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	for _, ev := range events {
		if ev.VideoID == "" {
			continue
		}
		if _, ok := seen[ev.VideoID]; ok {
			continue
		}
		seen[ev.VideoID] = struct{}{}
		ids = append(ids, ev.VideoID)
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	cached := make(map[string]struct{}, len(cachedIDs))
	for _, id := range cachedIDs {
		cached[id] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	channelCounted := t.counted[channelID]
	if channelCounted == nil {
		channelCounted = make(map[string]struct{})
		t.counted[channelID] = channelCounted
	}

	var fresh []string
	for _, id := range ids {
		if _, ok := channelCounted[id]; ok {
			continue
		}
		if _, ok := cached[id]; ok {
			continue
		}
		channelCounted[id] = struct{}{}
		fresh = append(fresh, id)
	}
	return fresh
}

// CountedFor reports how many IDs have been counted for a channel so far.
func (t *Tracker) CountedFor(channelID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.counted[channelID])
}
