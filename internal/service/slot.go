package service

import (
	"sync"
	"time"

	"github.com/praxislab/praxis-api/internal/models"
)

// StatusSlot is the single-message cousin of the notification feed: each Set
// replaces whatever was showing before, so at most one line is ever visible.
// Intake sessions use a slot for their progress readout.
type StatusSlot struct {
	mu        sync.Mutex
	message   string
	kind      models.NotificationKind
	expiresAt time.Time
	sticky    bool
	now       func() time.Time
}

func NewStatusSlot() *StatusSlot {
	return &StatusSlot{now: time.Now}
}

// Set replaces the current line. A zero or negative ttl keeps the line up
// until the next Set or Clear.
func (s *StatusSlot) Set(message string, kind models.NotificationKind, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.message = message
	s.kind = kind
	s.sticky = ttl <= 0
	if s.sticky {
		s.expiresAt = time.Time{}
	} else {
		s.expiresAt = s.now().Add(ttl)
	}
}

func (s *StatusSlot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.message = ""
	s.kind = ""
	s.sticky = false
	s.expiresAt = time.Time{}
}

// Current returns the visible line, or empty values once it has lapsed.
func (s *StatusSlot) Current() (string, models.NotificationKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.message == "" {
		return "", ""
	}
	if !s.sticky && s.now().After(s.expiresAt) {
		s.message = ""
		s.kind = ""
		s.expiresAt = time.Time{}
		return "", ""
	}
	return s.message, s.kind
}
