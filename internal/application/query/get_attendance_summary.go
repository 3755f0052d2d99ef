// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"

	"github.com/campus-pulse/engagement-hub/internal/domain/attendance"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ATTENDANCE SUMMARY QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetAttendanceSummaryQuery requests a student's attendance aggregate.
type GetAttendanceSummaryQuery struct {
	// StudentID is the student to summarize.
	StudentID string

	// SubjectID restricts the summary to one subject ("" = all subjects).
	SubjectID string
}

// Validate validates the query.
func (q GetAttendanceSummaryQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("get_attendance_summary: student_id is required")
	}
	return nil
}

// AttendanceSummaryDTO is the read model for an attendance summary.
type AttendanceSummaryDTO struct {
	StudentID  string `json:"student_id"`
	SubjectID  string `json:"subject_id,omitempty"`
	Attended   int    `json:"attended"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

// GetAttendanceSummaryHandler handles the query.
type GetAttendanceSummaryHandler struct {
	ledger *attendance.Ledger
}

// NewGetAttendanceSummaryHandler creates a new handler.
func NewGetAttendanceSummaryHandler(ledger *attendance.Ledger) *GetAttendanceSummaryHandler {
	return &GetAttendanceSummaryHandler{ledger: ledger}
}

// Handle executes the query.
func (h *GetAttendanceSummaryHandler) Handle(ctx context.Context, q GetAttendanceSummaryQuery) (*AttendanceSummaryDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("attendance", "GetAttendanceSummary", shared.ErrValidation, "invalid query", err)
	}

	summary, err := h.ledger.Summary(ctx, shared.StudentID(q.StudentID), shared.SubjectID(q.SubjectID))
	if err != nil {
		return nil, err
	}

	return &AttendanceSummaryDTO{
		StudentID:  string(summary.StudentID),
		SubjectID:  string(summary.SubjectID),
		Attended:   summary.Attended,
		Total:      summary.Total,
		Percentage: int(summary.Percentage),
	}, nil
}
