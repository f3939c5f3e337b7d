package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"ytnotify/internal/model"
)

const (
	maxActivityResults = 50
	maxSearchResults   = 10

	callTimeout    = 30 * time.Second
	maxRetries     = 2
	initialBackoff = 500 * time.Millisecond
)

// YouTube implements Client using the YouTube Data API v3.
type YouTube struct {
	service *youtube.Service
	timeout time.Duration
	backoff func() retry.Backoff
}

// NewYouTube creates a YouTube client authenticated with an API key.
func NewYouTube(ctx context.Context, apiKey string) (*YouTube, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube API key is required")
	}
	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return newYouTube(service), nil
}

func newYouTube(service *youtube.Service) *YouTube {
	return &YouTube{
		service: service,
		timeout: callTimeout,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(maxRetries, retry.NewExponential(initialBackoff))
		},
	}
}

// RecentUploads lists the channel's upload activities published after since.
func (y *YouTube) RecentUploads(ctx context.Context, channelID string, since time.Time) ([]model.UploadEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	var resp *youtube.ActivityListResponse
	err := retry.Do(ctx, y.backoff(), func(ctx context.Context) error {
		var err error
		resp, err = y.service.Activities.List([]string{"contentDetails"}).
			ChannelId(channelID).
			PublishedAfter(since.UTC().Format(time.RFC3339)).
			MaxResults(maxActivityResults).
			Context(ctx).Do()
		if err != nil {
			if isTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list activities for %s: %w", channelID, err)
	}

	events := make([]model.UploadEvent, 0, len(resp.Items))
	for _, item := range resp.Items {
		var videoID string
		if item.ContentDetails != nil && item.ContentDetails.Upload != nil {
			videoID = item.ContentDetails.Upload.VideoId
		}
		events = append(events, model.UploadEvent{ChannelID: channelID, VideoID: videoID})
	}
	return events, nil
}

// ChannelTitle resolves a channel's display title.
func (y *YouTube) ChannelTitle(ctx context.Context, channelID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	resp, err := y.service.Channels.List([]string{"snippet"}).
		Id(channelID).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get channel %s: %w", channelID, err)
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("channel %s not found", channelID)
	}
	return resp.Items[0].Snippet.Title, nil
}

// SearchChannels finds channels matching a free-text query.
func (y *YouTube) SearchChannels(ctx context.Context, query string) ([]model.Channel, error) {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	resp, err := y.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("channel").
		MaxResults(maxSearchResults).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("search channels %q: %w", query, err)
	}

	var channels []model.Channel
	for _, item := range resp.Items {
		if item.Snippet == nil {
			continue
		}
		channels = append(channels, model.Channel{
			ID:    item.Snippet.ChannelId,
			Title: item.Snippet.ChannelTitle,
		})
	}
	return channels, nil
}

// VideoDetails fetches full video records for the given IDs.
func (y *YouTube) VideoDetails(ctx context.Context, ids []string) ([]model.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	resp, err := y.service.Videos.List([]string{"snippet"}).
		Id(ids...).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get videos: %w", err)
	}

	var videos []model.Video
	for _, item := range resp.Items {
		if item.Snippet == nil {
			continue
		}
		published, _ := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		videos = append(videos, model.Video{
			ID:          item.Id,
			ChannelID:   item.Snippet.ChannelId,
			Title:       item.Snippet.Title,
			PublishedAt: published,
		})
	}
	return videos, nil
}

// isTransient reports whether an API error is worth retrying. Quota and
// server-side errors are transient; anything else (bad request, not found)
// is not. Plain network errors are always retried.
func isTransient(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	return true
}
