// Package server exposes the badge and tracked channels over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ytnotify/internal/badge"
	"ytnotify/internal/storage"
)

// Server is the HTTP status surface. Reading the badge and acknowledging it
// stand in for the browser badge and the popup-open reset.
type Server struct {
	state  *badge.State
	store  storage.Storage
	log    *slog.Logger
	router chi.Router
}

// New creates a Server.
func New(state *badge.State, store storage.Storage, log *slog.Logger) *Server {
	s := &Server{
		state: state,
		store: store,
		log:   log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/badge", s.handleBadge)
	r.Post("/badge/ack", s.handleBadgeAck)
	r.Get("/status", s.handleStatus)
	r.Get("/channels", s.handleChannels)

	s.router = r
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleBadge(w http.ResponseWriter, r *http.Request) {
	text, err := s.state.Text(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	background, color := s.state.Colors()
	s.writeJSON(w, map[string]string{
		"text":       text,
		"background": background,
		"color":      color,
	})
}

func (s *Server) handleBadgeAck(w http.ResponseWriter, _ *http.Request) {
	s.state.Acknowledge()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	hidden := 0
	for _, ch := range channels {
		if ch.Hidden {
			hidden++
		}
	}
	s.writeJSON(w, map[string]any{
		"channels":              len(channels),
		"hidden":                hidden,
		"check_rate_minutes":    settings.CheckRateMinutes,
		"notifications_enabled": settings.EnableNotifications,
	})
}

type channelView struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Hidden bool   `json:"hidden"`
	Videos int    `json:"cached_videos"`
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	cache, err := s.store.ListAllVideos(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	views := make([]channelView, 0, len(channels))
	for _, ch := range channels {
		views = append(views, channelView{
			ID:     ch.ID,
			Title:  ch.Title,
			Hidden: ch.Hidden,
			Videos: len(cache[ch.ID]),
		})
	}
	s.writeJSON(w, views)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("write response", "error", err)
	}
}

// Run serves HTTP on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("http server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
