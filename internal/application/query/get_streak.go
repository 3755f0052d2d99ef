package query

import (
	"context"
	"errors"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/attendance"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STREAK QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetStreakQuery requests a student's consecutive-day attendance streak.
type GetStreakQuery struct {
	StudentID string
}

// Validate validates the query.
func (q GetStreakQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("get_streak: student_id is required")
	}
	return nil
}

// StreakDTO is the read model for a streak.
type StreakDTO struct {
	StudentID       string     `json:"student_id"`
	CurrentStreak   int        `json:"current_streak"`
	BestStreak      int        `json:"best_streak"`
	LastCountedDate *time.Time `json:"last_counted_date,omitempty"`
}

// GetStreakHandler handles the query.
type GetStreakHandler struct {
	tracker *attendance.Tracker
}

// NewGetStreakHandler creates a new handler.
func NewGetStreakHandler(tracker *attendance.Tracker) *GetStreakHandler {
	return &GetStreakHandler{tracker: tracker}
}

// Handle executes the query.
func (h *GetStreakHandler) Handle(ctx context.Context, q GetStreakQuery) (*StreakDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("attendance", "GetStreak", shared.ErrValidation, "invalid query", err)
	}

	state, err := h.tracker.Streak(ctx, shared.StudentID(q.StudentID))
	if err != nil {
		return nil, err
	}

	dto := &StreakDTO{
		StudentID:     string(state.StudentID),
		CurrentStreak: state.CurrentStreak,
		BestStreak:    state.BestStreak,
	}
	if !state.LastCountedDate.IsZero() {
		d := state.LastCountedDate
		dto.LastCountedDate = &d
	}
	return dto, nil
}
