package command

import (
	"context"
	"errors"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
	"github.com/campus-pulse/engagement-hub/internal/domain/studygroup"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDY GROUP MEMBERSHIP COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// JoinStudyGroupCommand adds a student to a group.
type JoinStudyGroupCommand struct {
	GroupID       string
	StudentID     string
	CorrelationID string
}

// Validate validates the command.
func (c JoinStudyGroupCommand) Validate() error {
	if c.GroupID == "" {
		return errors.New("join_study_group: group_id is required")
	}
	if c.StudentID == "" {
		return errors.New("join_study_group: student_id is required")
	}
	return nil
}

// LeaveStudyGroupCommand removes a student from a group.
type LeaveStudyGroupCommand struct {
	GroupID       string
	StudentID     string
	CorrelationID string
}

// Validate validates the command.
func (c LeaveStudyGroupCommand) Validate() error {
	if c.GroupID == "" {
		return errors.New("leave_study_group: group_id is required")
	}
	if c.StudentID == "" {
		return errors.New("leave_study_group: student_id is required")
	}
	return nil
}

// MembershipResult reports the group's occupancy after the change.
type MembershipResult struct {
	GroupID     string
	StudentID   string
	MemberCount int
	Capacity    int
}

// StudyGroupHandler handles join and leave commands.
type StudyGroupHandler struct {
	directory      *studygroup.Directory
	eventPublisher shared.EventPublisher
}

// NewStudyGroupHandler creates a new StudyGroupHandler.
func NewStudyGroupHandler(directory *studygroup.Directory, eventPublisher shared.EventPublisher) *StudyGroupHandler {
	return &StudyGroupHandler{directory: directory, eventPublisher: eventPublisher}
}

// HandleJoin executes the join command.
func (h *StudyGroupHandler) HandleJoin(ctx context.Context, cmd JoinStudyGroupCommand) (*MembershipResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("studygroup", "Join", shared.ErrValidation, "invalid command", err)
	}

	if err := h.directory.Join(ctx, shared.GroupID(cmd.GroupID), shared.StudentID(cmd.StudentID)); err != nil {
		return nil, err
	}

	result, err := h.occupancy(ctx, cmd.GroupID, cmd.StudentID)
	if err != nil {
		return nil, err
	}

	joined := shared.NewGroupMemberJoinedEvent(cmd.GroupID, cmd.StudentID, result.MemberCount, result.Capacity)
	if cmd.CorrelationID != "" {
		joined.BaseEvent = joined.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	h.publish(joined)
	return result, nil
}

// HandleLeave executes the leave command.
func (h *StudyGroupHandler) HandleLeave(ctx context.Context, cmd LeaveStudyGroupCommand) (*MembershipResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("studygroup", "Leave", shared.ErrValidation, "invalid command", err)
	}

	if err := h.directory.Leave(ctx, shared.GroupID(cmd.GroupID), shared.StudentID(cmd.StudentID)); err != nil {
		return nil, err
	}

	result, err := h.occupancy(ctx, cmd.GroupID, cmd.StudentID)
	if err != nil {
		return nil, err
	}

	left := shared.NewGroupMemberLeftEvent(cmd.GroupID, cmd.StudentID, result.MemberCount, result.Capacity)
	if cmd.CorrelationID != "" {
		left.BaseEvent = left.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	h.publish(left)
	return result, nil
}

func (h *StudyGroupHandler) occupancy(ctx context.Context, groupID, studentID string) (*MembershipResult, error) {
	group, err := h.directory.Get(ctx, shared.GroupID(groupID))
	if err != nil {
		return nil, err
	}
	return &MembershipResult{
		GroupID:     groupID,
		StudentID:   studentID,
		MemberCount: len(group.Members),
		Capacity:    group.Capacity,
	}, nil
}

func (h *StudyGroupHandler) publish(event shared.Event) {
	if h.eventPublisher != nil {
		_ = h.eventPublisher.Publish(event)
	}
}
