// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"ytnotify/internal/model"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	CreateChannel(ctx context.Context, ch *model.Channel) error
	GetChannel(ctx context.Context, id string) (*model.Channel, error)
	ListChannels(ctx context.Context) ([]model.Channel, error)
	UpdateChannel(ctx context.Context, ch *model.Channel) error
	DeleteChannel(ctx context.Context, id string) error

	GetSettings(ctx context.Context) (model.Settings, error)
	UpdateSettings(ctx context.Context, s model.Settings) error

	SaveVideos(ctx context.Context, channelID string, videos []model.Video) error
	ListVideos(ctx context.Context, channelID string) ([]model.Video, error)
	ListAllVideos(ctx context.Context) (map[string][]model.Video, error)
	ClearVideos(ctx context.Context, channelID string) error

	Close() error
}
