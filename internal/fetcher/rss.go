package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"ytnotify/internal/model"
)

const uploadsFeedURL = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RSS implements Client using the public per-channel uploads feed.
// It requires no API key; search and video details are unavailable.
type RSS struct {
	client  HTTPClient
	timeout time.Duration
}

// NewRSS creates an RSS client with the given HTTP client.
func NewRSS(client HTTPClient) *RSS {
	return &RSS{
		client:  client,
		timeout: 30 * time.Second,
	}
}

// RecentUploads returns the channel's uploads published after since,
// in feed order.
func (r *RSS) RecentUploads(ctx context.Context, channelID string, since time.Time) ([]model.UploadEvent, error) {
	feed, err := r.fetchFeed(ctx, channelID)
	if err != nil {
		return nil, err
	}

	var events []model.UploadEvent
	for _, item := range feed.Items {
		if item.PublishedParsed != nil && item.PublishedParsed.Before(since) {
			continue
		}
		events = append(events, model.UploadEvent{
			ChannelID: channelID,
			VideoID:   videoIDOf(item),
		})
	}
	return events, nil
}

// ChannelTitle resolves a channel's display title from its uploads feed.
func (r *RSS) ChannelTitle(ctx context.Context, channelID string) (string, error) {
	feed, err := r.fetchFeed(ctx, channelID)
	if err != nil {
		return "", err
	}
	if feed.Title == "" {
		return "", fmt.Errorf("feed for %s has no title", channelID)
	}
	return feed.Title, nil
}

// SearchChannels is unavailable without an API key.
func (r *RSS) SearchChannels(_ context.Context, _ string) ([]model.Channel, error) {
	return nil, ErrUnavailable
}

// VideoDetails is unavailable without an API key.
func (r *RSS) VideoDetails(_ context.Context, _ []string) ([]model.Video, error) {
	return nil, ErrUnavailable
}

func (r *RSS) fetchFeed(ctx context.Context, channelID string) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	url := fmt.Sprintf(uploadsFeedURL, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "YTNotify/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// videoIDOf extracts the video ID from a feed entry's yt:videoId extension.
// Returns "" when the entry carries none.
func videoIDOf(item *gofeed.Item) string {
	exts, ok := item.Extensions["yt"]
	if !ok {
		return ""
	}
	ids, ok := exts["videoId"]
	if !ok || len(ids) == 0 {
		return ""
	}
	return ids[0].Value
}
