// Package fetcher retrieves channel activity and video data from YouTube.
//
// Two implementations exist: YouTube, backed by the Data API v3, and RSS,
// backed by the public per-channel uploads feed. The RSS source needs no API
// key but cannot search channels or fetch video details.
package fetcher

import (
	"context"
	"errors"
	"time"

	"ytnotify/internal/model"
)

// ErrUnavailable is returned for operations the configured source cannot
// perform (the RSS fallback has no search or video-detail endpoint).
var ErrUnavailable = errors.New("operation requires a YouTube API key")

// Client is the full set of YouTube operations used by the application.
type Client interface {
	// RecentUploads returns the channel's upload events since the given
	// time, in feed order. An event may carry an empty VideoID when the
	// activity has no upload content.
	RecentUploads(ctx context.Context, channelID string, since time.Time) ([]model.UploadEvent, error)

	// ChannelTitle resolves a channel's display title.
	ChannelTitle(ctx context.Context, channelID string) (string, error)

	// SearchChannels finds channels matching a free-text query.
	SearchChannels(ctx context.Context, query string) ([]model.Channel, error)

	// VideoDetails fetches full video records for the given IDs.
	VideoDetails(ctx context.Context, ids []string) ([]model.Video, error)
}
