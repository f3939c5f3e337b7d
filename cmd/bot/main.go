package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"ytnotify/internal/aggregator"
	"ytnotify/internal/badge"
	"ytnotify/internal/bot"
	"ytnotify/internal/config"
	"ytnotify/internal/dedup"
	"ytnotify/internal/fetcher"
	"ytnotify/internal/scheduler"
	"ytnotify/internal/server"
	"ytnotify/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var fetch fetcher.Client
	if cfg.YouTubeAPIKey != "" {
		fetch, err = fetcher.NewYouTube(ctx, cfg.YouTubeAPIKey)
		if err != nil {
			log.Error("create youtube client", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("no YOUTUBE_API_KEY set, using RSS feeds; /search and /videos are unavailable")
		fetch = fetcher.NewRSS(http.DefaultClient)
	}

	b, err := bot.New(cfg.TelegramBotToken, store, fetch, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	tracker := dedup.NewTracker()
	agg := aggregator.New(fetch, tracker, log)
	state := badge.NewState()

	sched := scheduler.New(store, agg, state, b, log)
	b.SetCycleRunner(sched)

	srv := server.New(state, store, log)

	log.Info("starting", "http_addr", cfg.HTTPAddr)

	go func() {
		if err := srv.Run(ctx, cfg.HTTPAddr); err != nil {
			log.Error("http server", "error", err)
		}
	}()
	go sched.Run(ctx)

	b.Run(ctx)

	log.Info("stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
