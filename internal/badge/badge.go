// Package badge maintains the running new-video counter shown to the user.
package badge

import (
	"context"
	"strconv"
	"sync"
)

// Fold combines a cycle's new-video count with the previous running total.
// If the user has acknowledged the previous value the count replaces it;
// otherwise the user has not seen the pending total yet and the count is
// added on top.
func Fold(previousTotal int, acknowledged bool, newCount int) int {
	if acknowledged {
		return newCount
	}
	return previousTotal + newCount
}

// Display is the badge rendering collaborator. An empty text means the
// badge has been acknowledged (or never shown).
type Display interface {
	Text(ctx context.Context) (string, error)
	SetText(ctx context.Context, count int) error
	SetColors(ctx context.Context, background, text string) error
}

// State is an in-memory Display, exposed to the user through the HTTP
// badge endpoints. Acknowledging clears the text.
type State struct {
	mu         sync.Mutex
	text       string
	background string
	color      string
}

// NewState creates an empty (acknowledged) badge.
func NewState() *State {
	return &State{}
}

// Text returns the current badge text.
func (s *State) Text(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text, nil
}

// SetText renders a count. Zero clears the badge.
func (s *State) SetText(_ context.Context, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if count == 0 {
		s.text = ""
	} else {
		s.text = strconv.Itoa(count)
	}
	return nil
}

// SetColors records the badge colors.
func (s *State) SetColors(_ context.Context, background, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = background
	s.color = text
	return nil
}

// Acknowledge clears the badge text, marking the pending count as seen.
func (s *State) Acknowledge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = ""
}

// Colors returns the configured background and text colors.
func (s *State) Colors() (background, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.background, s.color
}
