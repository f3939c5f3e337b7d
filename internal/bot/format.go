package bot

import (
	"fmt"
	"strings"

	"ytnotify/internal/model"
)

// FormatChannelList renders tracked channels with their cached video counts.
func FormatChannelList(channels []model.Channel, videoCounts map[string]int) string {
	if len(channels) == 0 {
		return "No channels tracked yet. Use /track <channel_id> to add one."
	}

	var sb strings.Builder
	sb.WriteString("Tracked channels:\n")
	for _, ch := range channels {
		marker := ""
		if ch.Hidden {
			marker = " [hidden]"
		}
		fmt.Fprintf(&sb, "%d. %s (%s)%s - %d remembered video(s)\n",
			ch.Position, ch.Title, ch.ID, marker, videoCounts[ch.ID])
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatSettings renders the current settings.
func FormatSettings(s model.Settings) string {
	notifications := "off"
	if s.EnableNotifications {
		notifications = "on"
	}

	return fmt.Sprintf(
		"Settings:\nCheck interval: %d minute(s)\nLook back: %d day(s)\nVideos per channel: %d\nNotifications: %s",
		s.CheckRateMinutes, s.VideosAnteriorityDays, s.VideosPerChannel, notifications)
}

// FormatVideoList renders a channel's recent videos.
func FormatVideoList(ch *model.Channel, videos []model.Video) string {
	if len(videos) == 0 {
		return fmt.Sprintf("%q has no recent videos.", ch.Title)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Recent videos from %q:\n", ch.Title)
	for i, v := range videos {
		fmt.Fprintf(&sb, "%d. %s\nhttps://www.youtube.com/watch?v=%s\n", i+1, v.Title, v.ID)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatSearchResults renders channel search results.
func FormatSearchResults(query string, results []model.Channel) string {
	if len(results) == 0 {
		return fmt.Sprintf("No channels found for %q.", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Channels matching %q:\n", query)
	for i, ch := range results {
		fmt.Fprintf(&sb, "%d. %s\n/track %s\n", i+1, ch.Title, ch.ID)
	}
	return strings.TrimRight(sb.String(), "\n")
}
