package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"ytnotify/internal/model"
	"ytnotify/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateChannel inserts a new tracked channel at the end of the list.
func (s *SQLite) CreateChannel(ctx context.Context, ch *model.Channel) error {
	now := time.Now().UTC().Format(timeLayout)
	var maxPos sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(position) FROM channels`).Scan(&maxPos); err != nil {
		return fmt.Errorf("max position: %w", err)
	}
	ch.Position = int(maxPos.Int64) + 1

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO channels (id, title, hidden, position, created_at) VALUES (?, ?, ?, ?, ?)`,
		ch.ID, ch.Title, boolToInt(ch.Hidden), ch.Position, now,
	)
	if err != nil {
		return fmt.Errorf("insert channel: %w", err)
	}
	ch.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetChannel returns a single channel by its ID.
func (s *SQLite) GetChannel(ctx context.Context, id string) (*model.Channel, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, hidden, position, created_at FROM channels WHERE id = ?`, id,
	)
	return scanChannel(row)
}

// ListChannels returns all tracked channels in display order.
func (s *SQLite) ListChannels(ctx context.Context) ([]model.Channel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, hidden, position, created_at FROM channels ORDER BY position, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var channels []model.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, *ch)
	}
	return channels, rows.Err()
}

// UpdateChannel persists changes to an existing channel.
func (s *SQLite) UpdateChannel(ctx context.Context, ch *model.Channel) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE channels SET title = ?, hidden = ?, position = ? WHERE id = ?`,
		ch.Title, boolToInt(ch.Hidden), ch.Position, ch.ID,
	)
	if err != nil {
		return fmt.Errorf("update channel: %w", err)
	}
	return nil
}

// DeleteChannel removes a channel and its cached videos.
func (s *SQLite) DeleteChannel(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM videos WHERE channel_id = ?`, id); err != nil {
		return fmt.Errorf("delete videos: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	return tx.Commit()
}

// GetSettings returns the stored settings, or the defaults when none
// have been saved yet.
func (s *SQLite) GetSettings(ctx context.Context) (model.Settings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT check_rate_minutes, videos_anteriority_days, videos_per_channel, enable_notifications
		 FROM settings WHERE id = 1`,
	)
	var st model.Settings
	var notify int
	err := row.Scan(&st.CheckRateMinutes, &st.VideosAnteriorityDays, &st.VideosPerChannel, &notify)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("scan settings: %w", err)
	}
	st.EnableNotifications = notify == 1
	return st, nil
}

// UpdateSettings saves the settings, creating the row if absent.
func (s *SQLite) UpdateSettings(ctx context.Context, st model.Settings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (id, check_rate_minutes, videos_anteriority_days, videos_per_channel, enable_notifications)
		 VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   check_rate_minutes = excluded.check_rate_minutes,
		   videos_anteriority_days = excluded.videos_anteriority_days,
		   videos_per_channel = excluded.videos_per_channel,
		   enable_notifications = excluded.enable_notifications`,
		st.CheckRateMinutes, st.VideosAnteriorityDays, st.VideosPerChannel, boolToInt(st.EnableNotifications),
	)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

// SaveVideos replaces the cached video list for a channel.
func (s *SQLite) SaveVideos(ctx context.Context, channelID string, videos []model.Video) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM videos WHERE channel_id = ?`, channelID); err != nil {
		return fmt.Errorf("clear videos: %w", err)
	}
	for i, v := range videos {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO videos (channel_id, id, title, published_at, position) VALUES (?, ?, ?, ?, ?)`,
			channelID, v.ID, v.Title, v.PublishedAt.UTC().Format(timeLayout), i,
		)
		if err != nil {
			return fmt.Errorf("insert video: %w", err)
		}
	}
	return tx.Commit()
}

// ListVideos returns the cached videos of a channel in stored order.
func (s *SQLite) ListVideos(ctx context.Context, channelID string) ([]model.Video, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel_id, id, title, published_at FROM videos WHERE channel_id = ? ORDER BY position`,
		channelID,
	)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanVideos(rows)
}

// ListAllVideos returns the whole video cache keyed by channel ID.
func (s *SQLite) ListAllVideos(ctx context.Context) (map[string][]model.Video, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel_id, id, title, published_at FROM videos ORDER BY channel_id, position`,
	)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer func() { _ = rows.Close() }()

	videos, err := scanVideos(rows)
	if err != nil {
		return nil, err
	}
	cache := make(map[string][]model.Video)
	for _, v := range videos {
		cache[v.ChannelID] = append(cache[v.ChannelID], v)
	}
	return cache, nil
}

// ClearVideos removes the cached videos of a channel. An empty channel ID
// clears the whole cache.
func (s *SQLite) ClearVideos(ctx context.Context, channelID string) error {
	var err error
	if channelID == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM videos`)
	} else {
		_, err = s.db.ExecContext(ctx, `DELETE FROM videos WHERE channel_id = ?`, channelID)
	}
	if err != nil {
		return fmt.Errorf("clear videos: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanChannel(row scannable) (*model.Channel, error) {
	var ch model.Channel
	var hidden int
	var created sql.NullString
	err := row.Scan(&ch.ID, &ch.Title, &hidden, &ch.Position, &created)
	if err != nil {
		return nil, fmt.Errorf("scan channel: %w", err)
	}
	ch.Hidden = hidden == 1
	if created.Valid {
		ch.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &ch, nil
}

func scanVideos(rows *sql.Rows) ([]model.Video, error) {
	var videos []model.Video
	for rows.Next() {
		var v model.Video
		var published string
		if err := rows.Scan(&v.ChannelID, &v.ID, &v.Title, &published); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		v.PublishedAt, _ = time.Parse(timeLayout, published)
		videos = append(videos, v)
	}
	return videos, rows.Err()
}
