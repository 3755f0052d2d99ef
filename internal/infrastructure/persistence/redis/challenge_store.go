package redis

import (
	"context"
	"errors"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/challenge"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE SESSION STORE
// ══════════════════════════════════════════════════════════════════════════════

// SessionStore implements challenge.SessionStore backed by Redis.
// Active sessions are stored without a TTL; terminal sessions get a TTL
// equal to the review retention window, so Redis handles most of the
// eviction and DeleteOlderThan only mops up.
type SessionStore struct {
	cache     *Cache
	retention time.Duration
}

// NewSessionStore creates a new SessionStore. retention is how long a
// terminal session stays readable after completion.
func NewSessionStore(cache *Cache, retention time.Duration) *SessionStore {
	return &SessionStore{cache: cache, retention: retention}
}

// storedSession is the JSON shape of a persisted session.
type storedSession struct {
	ID           string               `json:"id"`
	StudentID    string               `json:"student_id"`
	Questions    []challenge.Question `json:"questions"`
	Answers      []int                `json:"answers"`
	StartTime    time.Time            `json:"start_time"`
	Duration     int64                `json:"duration_seconds"`
	State        string               `json:"state"`
	CompletedAt  time.Time            `json:"completed_at"`
	XPPerCorrect int                  `json:"xp_per_correct"`
}

// Save inserts or updates a session.
func (s *SessionStore) Save(ctx context.Context, session *challenge.Session) error {
	stored := storedSession{
		ID:           session.ID,
		StudentID:    string(session.StudentID),
		Questions:    session.Questions,
		Answers:      session.Answers,
		StartTime:    session.StartTime,
		Duration:     int64(session.Duration.Seconds()),
		State:        string(session.State),
		CompletedAt:  session.CompletedAt,
		XPPerCorrect: int(session.XPPerCorrect),
	}

	ttl := time.Duration(0)
	if session.IsTerminal() {
		ttl = s.retention
	}
	return s.cache.Set(ctx, SessionKey(session.ID), stored, ttl)
}

// Find returns a session by ID.
func (s *SessionStore) Find(ctx context.Context, id string) (*challenge.Session, error) {
	var stored storedSession
	err := s.cache.Get(ctx, SessionKey(id), &stored)
	if errors.Is(err, ErrCacheMiss) {
		return nil, shared.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return restoreSession(stored), nil
}

// ActiveSessions returns all sessions still in the Active state.
func (s *SessionStore) ActiveSessions(ctx context.Context) ([]*challenge.Session, error) {
	keys, err := s.cache.ScanKeys(ctx, PrefixSession+"*")
	if err != nil {
		return nil, err
	}

	var sessions []*challenge.Session
	for _, key := range keys {
		var stored storedSession
		err := s.cache.Get(ctx, key, &stored)
		if errors.Is(err, ErrCacheMiss) {
			continue // evicted between scan and read
		}
		if err != nil {
			return nil, err
		}
		if challenge.State(stored.State) == challenge.StateActive {
			sessions = append(sessions, restoreSession(stored))
		}
	}
	return sessions, nil
}

// DeleteOlderThan evicts terminal sessions completed before the cutoff.
// TTLs already handle the common case; this sweeps sessions written
// before a retention change.
func (s *SessionStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	keys, err := s.cache.ScanKeys(ctx, PrefixSession+"*")
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, key := range keys {
		var stored storedSession
		err := s.cache.Get(ctx, key, &stored)
		if errors.Is(err, ErrCacheMiss) {
			continue
		}
		if err != nil {
			return deleted, err
		}
		state := challenge.State(stored.State)
		if state != challenge.StateActive && stored.CompletedAt.Before(cutoff) {
			if err := s.cache.Delete(ctx, key); err != nil {
				return deleted, err
			}
			deleted++
		}
	}
	return deleted, nil
}

func restoreSession(stored storedSession) *challenge.Session {
	return &challenge.Session{
		ID:           stored.ID,
		StudentID:    shared.StudentID(stored.StudentID),
		Questions:    stored.Questions,
		Answers:      stored.Answers,
		StartTime:    stored.StartTime.UTC(),
		Duration:     time.Duration(stored.Duration) * time.Second,
		State:        challenge.State(stored.State),
		CompletedAt:  stored.CompletedAt.UTC(),
		XPPerCorrect: shared.XP(stored.XPPerCorrect),
	}
}
