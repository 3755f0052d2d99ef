package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/challenge"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ChallengeStore is an in-memory challenge.SessionStore.
type ChallengeStore struct {
	mu       sync.RWMutex
	sessions map[string]*challenge.Session
}

// NewChallengeStore creates an empty store.
func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{sessions: make(map[string]*challenge.Session)}
}

// Save implements challenge.SessionStore.
func (s *ChallengeStore) Save(_ context.Context, session *challenge.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	cp.Questions = append([]challenge.Question(nil), session.Questions...)
	cp.Answers = append([]int(nil), session.Answers...)
	s.sessions[session.ID] = &cp
	return nil
}

// Find implements challenge.SessionStore.
func (s *ChallengeStore) Find(_ context.Context, id string) (*challenge.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, shared.ErrSessionNotFound
	}
	cp := *session
	cp.Questions = append([]challenge.Question(nil), session.Questions...)
	cp.Answers = append([]int(nil), session.Answers...)
	return &cp, nil
}

// ActiveSessions implements challenge.SessionStore.
func (s *ChallengeStore) ActiveSessions(_ context.Context) ([]*challenge.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*challenge.Session
	for _, session := range s.sessions {
		if session.State == challenge.StateActive {
			cp := *session
			cp.Questions = append([]challenge.Question(nil), session.Questions...)
			cp.Answers = append([]int(nil), session.Answers...)
			out = append(out, &cp)
		}
	}
	return out, nil
}

// DeleteOlderThan implements challenge.SessionStore. Only terminal
// sessions are evicted; active sessions are never reaped here.
func (s *ChallengeStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, session := range s.sessions {
		if session.IsTerminal() && session.CompletedAt.Before(cutoff) {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// QUESTION BANK
// ══════════════════════════════════════════════════════════════════════════════

// QuestionBank is an in-memory challenge.QuestionBank with a seedable
// question list.
type QuestionBank struct {
	mu        sync.RWMutex
	questions []challenge.Question
	rng       *rand.Rand
}

// NewQuestionBank creates a bank over the given questions.
func NewQuestionBank(questions []challenge.Question) *QuestionBank {
	return &QuestionBank{
		questions: append([]challenge.Question(nil), questions...),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Add appends questions to the bank.
func (b *QuestionBank) Add(questions ...challenge.Question) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.questions = append(b.questions, questions...)
}

// Pick implements challenge.QuestionBank. Questions are drawn in random
// order without replacement; fewer than count questions in the matching
// pool is not an error.
func (b *QuestionBank) Pick(_ context.Context, category challenge.Category, count int) ([]challenge.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pool := make([]challenge.Question, 0, len(b.questions))
	for _, q := range b.questions {
		if category == "" || q.Category == category {
			pool = append(pool, q)
		}
	}
	b.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if count < len(pool) {
		pool = pool[:count]
	}
	return pool, nil
}
