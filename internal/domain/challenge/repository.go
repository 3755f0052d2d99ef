package challenge

import (
	"context"
	"time"
)

// SessionStore persists challenge sessions. Active sessions live here
// until a terminal transition; terminal sessions remain readable for the
// review retention window and are evicted after it.
type SessionStore interface {
	// Save inserts or updates a session.
	Save(ctx context.Context, session *Session) error

	// Find returns a session by ID.
	// Returns shared.ErrSessionNotFound when unknown or already evicted.
	Find(ctx context.Context, id string) (*Session, error)

	// ActiveSessions returns all sessions still in the Active state.
	// Input for the lazy-expiry sweep.
	ActiveSessions(ctx context.Context) ([]*Session, error)

	// DeleteOlderThan evicts terminal sessions whose CompletedAt is before
	// the cutoff. Returns the number of evicted sessions.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// QuestionBank supplies questions for new sessions.
type QuestionBank interface {
	// Pick returns up to count questions for a category. An empty category
	// draws from the whole bank.
	Pick(ctx context.Context, category Category, count int) ([]Question, error)
}
