// Package model defines the domain types used across the application.
package model

import "time"

// Default settings applied when a field is absent or out of range.
const (
	DefaultCheckRateMinutes      = 30
	DefaultVideosAnteriorityDays = 7
	DefaultVideosPerChannel      = 6
)

// Channel represents a tracked YouTube channel.
type Channel struct {
	ID        string
	Title     string
	Hidden    bool
	Position  int
	CreatedAt time.Time
}

// Settings holds the user-adjustable polling configuration.
// The scheduler reloads it from storage before every cycle, so edits
// take effect on the next iteration without a restart.
type Settings struct {
	CheckRateMinutes      int
	VideosAnteriorityDays int
	VideosPerChannel      int
	EnableNotifications   bool
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		CheckRateMinutes:      DefaultCheckRateMinutes,
		VideosAnteriorityDays: DefaultVideosAnteriorityDays,
		VideosPerChannel:      DefaultVideosPerChannel,
		EnableNotifications:   true,
	}
}

// UploadEvent is a single upload-activity record for a channel.
// VideoID may be empty when the activity item carries no upload content;
// such events are filtered out during deduplication.
type UploadEvent struct {
	ChannelID string
	VideoID   string
}

// Video is a cached video record. A video's presence in the cache means
// it is already known and must never be counted as new again.
type Video struct {
	ID          string
	ChannelID   string
	Title       string
	PublishedAt time.Time
}
