package command

import (
	"context"
	"errors"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/challenge"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE SESSION COMMANDS
// Start, answer, and submit timed quiz sessions. The deadline is enforced
// lazily at each call; no background timers run for active sessions.
// ══════════════════════════════════════════════════════════════════════════════

// StartChallengeCommand starts a new timed quiz session.
type StartChallengeCommand struct {
	StudentID string

	// Category restricts the question draw ("" = whole bank).
	Category string

	// QuestionCount is the number of questions to draw.
	QuestionCount int

	// Duration is the time limit for the session.
	Duration time.Duration

	CorrelationID string
}

// Validate validates the command.
func (c StartChallengeCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("start_challenge: student_id is required")
	}
	if c.QuestionCount <= 0 {
		return errors.New("start_challenge: question_count must be positive")
	}
	if c.Duration <= 0 {
		return errors.New("start_challenge: duration must be positive")
	}
	return nil
}

// StartChallengeResult describes the created session.
type StartChallengeResult struct {
	SessionID     string
	QuestionCount int
	Deadline      time.Time
}

// AnswerChallengeCommand records one answer in an active session.
type AnswerChallengeCommand struct {
	SessionID     string
	StudentID     string
	QuestionIndex int
	OptionIndex   int
}

// Validate validates the command.
func (c AnswerChallengeCommand) Validate() error {
	if c.SessionID == "" {
		return errors.New("answer_challenge: session_id is required")
	}
	return nil
}

// SubmitChallengeCommand closes and scores a session.
type SubmitChallengeCommand struct {
	SessionID     string
	StudentID     string
	CorrelationID string
}

// Validate validates the command.
func (c SubmitChallengeCommand) Validate() error {
	if c.SessionID == "" {
		return errors.New("submit_challenge: session_id is required")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeHandler handles the three challenge session commands. One
// handler keeps the store/clock wiring in a single place.
type ChallengeHandler struct {
	store          challenge.SessionStore
	bank           challenge.QuestionBank
	clock          shared.Clock
	xpPerCorrect   shared.XP
	eventPublisher shared.EventPublisher
}

// NewChallengeHandler creates a new ChallengeHandler. xpPerCorrect <= 0
// falls back to the domain default.
func NewChallengeHandler(
	store challenge.SessionStore,
	bank challenge.QuestionBank,
	clock shared.Clock,
	xpPerCorrect shared.XP,
	eventPublisher shared.EventPublisher,
) *ChallengeHandler {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &ChallengeHandler{
		store:          store,
		bank:           bank,
		clock:          clock,
		xpPerCorrect:   xpPerCorrect,
		eventPublisher: eventPublisher,
	}
}

// HandleStart executes the start challenge command.
func (h *ChallengeHandler) HandleStart(ctx context.Context, cmd StartChallengeCommand) (*StartChallengeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("challenge", "Start", shared.ErrValidation, "invalid command", err)
	}

	questions, err := h.bank.Pick(ctx, challenge.Category(cmd.Category), cmd.QuestionCount)
	if err != nil {
		return nil, shared.WrapError("challenge", "Start", shared.ErrExternalService, "question draw failed", err)
	}

	session, err := challenge.Start(shared.StudentID(cmd.StudentID), questions, cmd.Duration, h.clock.Now(), h.xpPerCorrect)
	if err != nil {
		return nil, err
	}
	if err := h.store.Save(ctx, session); err != nil {
		return nil, shared.WrapError("challenge", "Start", shared.ErrExternalService, "session save failed", err)
	}

	return &StartChallengeResult{
		SessionID:     session.ID,
		QuestionCount: len(session.Questions),
		Deadline:      session.Deadline(),
	}, nil
}

// HandleAnswer executes the answer challenge command.
func (h *ChallengeHandler) HandleAnswer(ctx context.Context, cmd AnswerChallengeCommand) error {
	if err := cmd.Validate(); err != nil {
		return shared.WrapError("challenge", "Answer", shared.ErrValidation, "invalid command", err)
	}

	session, err := h.loadOwnedSession(ctx, cmd.SessionID, cmd.StudentID)
	if err != nil {
		return err
	}

	answerErr := session.Answer(cmd.QuestionIndex, cmd.OptionIndex, h.clock.Now())

	// A lazy expiry transition must be persisted even though the answer
	// itself was rejected.
	if answerErr == nil || session.State == challenge.StateExpired {
		if saveErr := h.store.Save(ctx, session); saveErr != nil {
			return shared.WrapError("challenge", "Answer", shared.ErrExternalService, "session save failed", saveErr)
		}
	}
	if errors.Is(answerErr, shared.ErrExpired) {
		h.publish(shared.NewChallengeExpiredEvent(session.ID, string(session.StudentID), session.Deadline()))
	}
	return answerErr
}

// HandleSubmit executes the submit challenge command.
func (h *ChallengeHandler) HandleSubmit(ctx context.Context, cmd SubmitChallengeCommand) (*challenge.Result, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("challenge", "Submit", shared.ErrValidation, "invalid command", err)
	}

	session, err := h.loadOwnedSession(ctx, cmd.SessionID, cmd.StudentID)
	if err != nil {
		return nil, err
	}

	result, submitErr := session.Submit(h.clock.Now())

	if session.IsTerminal() {
		if saveErr := h.store.Save(ctx, session); saveErr != nil {
			return nil, shared.WrapError("challenge", "Submit", shared.ErrExternalService, "session save failed", saveErr)
		}
	}
	if errors.Is(submitErr, shared.ErrExpired) {
		h.publish(shared.NewChallengeExpiredEvent(session.ID, string(session.StudentID), session.Deadline()))
		return nil, submitErr
	}
	if submitErr != nil {
		return nil, submitErr
	}

	submitted := shared.NewChallengeSubmittedEvent(
		session.ID, string(session.StudentID),
		result.Score, result.TotalQuestions, int(result.XPAwarded),
	)
	if cmd.CorrelationID != "" {
		submitted.BaseEvent = submitted.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	h.publish(submitted)

	return &result, nil
}

// loadOwnedSession fetches a session and checks the caller owns it. A
// session belonging to another student is reported as not found rather
// than leaking its existence.
func (h *ChallengeHandler) loadOwnedSession(ctx context.Context, sessionID, studentID string) (*challenge.Session, error) {
	session, err := h.store.Find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if studentID != "" && session.StudentID != shared.StudentID(studentID) {
		return nil, shared.ErrSessionNotFound
	}
	return session, nil
}

func (h *ChallengeHandler) publish(event shared.Event) {
	if h.eventPublisher != nil {
		_ = h.eventPublisher.Publish(event)
	}
}
