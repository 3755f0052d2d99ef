package challenge

import (
	"time"

	"github.com/google/uuid"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// State is the session lifecycle state. Submitted and Expired are
// terminal: a session that reached either never mutates again.
type State string

const (
	StateActive    State = "active"
	StateSubmitted State = "submitted"
	StateExpired   State = "expired"
)

// DefaultXPPerCorrect is the reward per correct answer when the caller
// does not configure one.
const DefaultXPPerCorrect shared.XP = 150

// unanswered marks a question with no recorded answer.
const unanswered = -1

// Session is one timed quiz run for a student. All mutating methods take
// the current instant explicitly so the deadline is checked lazily at the
// moment of the call.
type Session struct {
	ID           string
	StudentID    shared.StudentID
	Questions    []Question
	Answers      []int // index per question; unanswered = -1
	StartTime    time.Time
	Duration     time.Duration
	State        State
	CompletedAt  time.Time // set on transition to a terminal state
	XPPerCorrect shared.XP
}

// Result is the scoring outcome of a submitted session.
type Result struct {
	SessionID      string
	StudentID      shared.StudentID
	Score          int
	TotalQuestions int
	XPAwarded      shared.XP
	Perfect        bool
}

// Start creates an Active session. Fails with shared.ErrInvalidConfig on
// an empty question set, a non-positive duration, or a malformed question.
func Start(studentID shared.StudentID, questions []Question, duration time.Duration, startTime time.Time, xpPerCorrect shared.XP) (*Session, error) {
	if !studentID.IsValid() {
		return nil, shared.WrapError("challenge", "Start", shared.ErrInvalidID, "invalid student ID", nil)
	}
	if len(questions) == 0 || duration <= 0 {
		return nil, shared.ErrInvalidConfig
	}
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, err
		}
	}
	if xpPerCorrect <= 0 {
		xpPerCorrect = DefaultXPPerCorrect
	}

	answers := make([]int, len(questions))
	for i := range answers {
		answers[i] = unanswered
	}

	return &Session{
		ID:           uuid.NewString(),
		StudentID:    studentID,
		Questions:    questions,
		Answers:      answers,
		StartTime:    startTime.UTC(),
		Duration:     duration,
		State:        StateActive,
		XPPerCorrect: xpPerCorrect,
	}, nil
}

// Deadline returns the instant after which the session is expired.
func (s *Session) Deadline() time.Time {
	return s.StartTime.Add(s.Duration)
}

// Remaining returns the time left until the deadline, clamped at zero.
func (s *Session) Remaining(now time.Time) time.Duration {
	left := s.Deadline().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// ExpireIfDue transitions an Active session past its deadline to Expired.
// Returns true if the transition happened on this call.
func (s *Session) ExpireIfDue(now time.Time) bool {
	if s.State != StateActive || now.Before(s.Deadline()) {
		return false
	}
	s.State = StateExpired
	s.CompletedAt = now.UTC()
	return true
}

// Answer records the student's choice for a question. Re-answering before
// submit overwrites the previous choice.
//
// Fails with shared.ErrSessionNotActive on a terminal session,
// shared.ErrSessionExpired when the deadline has passed (the session
// transitions to Expired as a side effect), and shared.ErrInvalidIndex on
// an out-of-range question or option index.
func (s *Session) Answer(questionIndex, optionIndex int, now time.Time) error {
	if s.State != StateActive {
		return shared.ErrSessionNotActive
	}
	if s.ExpireIfDue(now) {
		return shared.ErrSessionExpired
	}
	if questionIndex < 0 || questionIndex >= len(s.Questions) {
		return shared.ErrInvalidIndex
	}
	if optionIndex < 0 || optionIndex >= len(s.Questions[questionIndex].Options) {
		return shared.ErrInvalidIndex
	}
	s.Answers[questionIndex] = optionIndex
	return nil
}

// Submit scores the session and transitions it to Submitted. Unanswered
// questions count as incorrect. A session past its deadline transitions
// to Expired instead and awards nothing.
func (s *Session) Submit(now time.Time) (Result, error) {
	if s.State != StateActive {
		return Result{}, shared.ErrSessionNotActive
	}
	if s.ExpireIfDue(now) {
		return Result{}, shared.ErrSessionExpired
	}

	score := 0
	for i, q := range s.Questions {
		if s.Answers[i] == q.CorrectIndex {
			score++
		}
	}

	s.State = StateSubmitted
	s.CompletedAt = now.UTC()

	return Result{
		SessionID:      s.ID,
		StudentID:      s.StudentID,
		Score:          score,
		TotalQuestions: len(s.Questions),
		XPAwarded:      s.XPPerCorrect * shared.XP(score),
		Perfect:        score == len(s.Questions),
	}, nil
}

// IsTerminal returns true for Submitted and Expired sessions.
func (s *Session) IsTerminal() bool {
	return s.State == StateSubmitted || s.State == StateExpired
}
