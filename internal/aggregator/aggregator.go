// Package aggregator runs one polling cycle across all tracked channels.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"

	"ytnotify/internal/dedup"
	"ytnotify/internal/model"
)

const maxConcurrentFetches = 8

// ActivityFetcher returns a channel's upload events since the given time.
type ActivityFetcher interface {
	RecentUploads(ctx context.Context, channelID string, since time.Time) ([]model.UploadEvent, error)
}

// Aggregator fans the dedup computation out across channels and merges
// the results of one cycle.
type Aggregator struct {
	fetcher ActivityFetcher
	tracker *dedup.Tracker
	log     *slog.Logger

	now func() time.Time
}

// New creates an Aggregator.
func New(fetcher ActivityFetcher, tracker *dedup.Tracker, log *slog.Logger) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		tracker: tracker,
		log:     log,
		now:     time.Now,
	}
}

type channelResult struct {
	newIDs []string
	err    error
}

// RunCycle checks every non-hidden channel for uploads newer than the
// anteriority window and returns the total new-video count plus one
// notification message per channel with news.
//
// Fetches run concurrently but results are merged in channel list order, so
// the count and messages are deterministic. A failing channel is logged and
// skipped; it never aborts the cycle.
func (a *Aggregator) RunCycle(ctx context.Context, channels []model.Channel, settings model.Settings, cache map[string][]model.Video) (int, []string) {
	visible := make([]model.Channel, 0, len(channels))
	for _, ch := range channels {
		if !ch.Hidden {
			visible = append(visible, ch)
		}
	}
	if len(visible) == 0 {
		return 0, nil
	}

	days := settings.VideosAnteriorityDays
	if days <= 0 {
		days = model.DefaultVideosAnteriorityDays
	}
	since := a.now().AddDate(0, 0, -days)

	results := make([]channelResult, len(visible))
	p := pool.New().WithMaxGoroutines(maxConcurrentFetches)
	for idx, ch := range visible {
		p.Go(func() {
			events, err := a.fetcher.RecentUploads(ctx, ch.ID, since)
			if err != nil {
				results[idx] = channelResult{err: err}
				return
			}
			cachedIDs := videoIDs(cache[ch.ID])
			results[idx] = channelResult{
				newIDs: a.tracker.ComputeNew(ch.ID, events, cachedIDs, settings.VideosPerChannel),
			}
		})
	}
	p.Wait()

	var total int
	var messages []string
	for i, res := range results {
		ch := visible[i]
		if res.err != nil {
			a.log.Error("fetch activities", "channel_id", ch.ID, "title", ch.Title, "error", res.err)
			continue
		}
		n := len(res.newIDs)
		if n == 0 {
			continue
		}
		a.log.Debug("recent videos found", "channel_id", ch.ID, "title", ch.Title, "count", n)
		messages = append(messages, FormatMessage(ch.Title, n))
		total += n
	}
	return total, messages
}

// FormatMessage builds the per-channel notification text.
func FormatMessage(title string, count int) string {
	suffix := ""
	if count > 1 {
		suffix = "s"
	}
	return fmt.Sprintf("%s posted %d recent video%s", title, count, suffix)
}

func videoIDs(videos []model.Video) []string {
	if len(videos) == 0 {
		return nil
	}
	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.ID
	}
	return ids
}
