package command

import (
	"context"
	"errors"

	"github.com/campus-pulse/engagement-hub/internal/domain/gamification"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD XP COMMAND
// Single entry point for XP mutations. Publishes xp_gained, level_up, and
// achievement_unlocked events so read models and notifications can react.
// ══════════════════════════════════════════════════════════════════════════════

// AwardXPCommand contains the data for one XP award.
type AwardXPCommand struct {
	// StudentID is the student receiving XP.
	StudentID string

	// Amount must be positive.
	Amount int

	// Reason tags the award for audit ("attendance", "challenge", ...).
	Reason string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c AwardXPCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("award_xp: student_id is required")
	}
	if c.Amount <= 0 {
		return errors.New("award_xp: amount must be positive")
	}
	return nil
}

// AwardXPResult contains the outcome of an XP award.
type AwardXPResult struct {
	StudentID string
	NewTotal  int
	OldLevel  int
	NewLevel  int
	LeveledUp bool
	Unlocked  []gamification.Achievement
}

// AwardXPHandler handles the AwardXPCommand.
type AwardXPHandler struct {
	engine         *gamification.Engine
	eventPublisher shared.EventPublisher
}

// NewAwardXPHandler creates a new AwardXPHandler.
func NewAwardXPHandler(engine *gamification.Engine, eventPublisher shared.EventPublisher) *AwardXPHandler {
	return &AwardXPHandler{engine: engine, eventPublisher: eventPublisher}
}

// Handle executes the award XP command.
func (h *AwardXPHandler) Handle(ctx context.Context, cmd AwardXPCommand) (*AwardXPResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("gamification", "AwardXP", shared.ErrValidation, "invalid command", err)
	}

	award, err := h.engine.AwardXP(ctx, shared.StudentID(cmd.StudentID), shared.XP(cmd.Amount), gamification.AwardReason(cmd.Reason))
	if err != nil {
		return nil, err
	}

	gained := shared.NewXPGainedEvent(cmd.StudentID, int(award.Amount), int(award.NewXP), cmd.Reason)
	if cmd.CorrelationID != "" {
		gained.BaseEvent = gained.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	h.publish(gained)

	if award.LeveledUp() {
		h.publish(shared.NewLevelUpEvent(cmd.StudentID, award.OldLevel, award.NewLevel, int(award.NewXP)))
	}
	for _, a := range award.Unlocked {
		rarity := ""
		if def, ok := gamification.FindDefinition(gamification.DefaultDefinitions(), a.ID); ok {
			rarity = string(def.Rarity)
		}
		h.publish(shared.NewAchievementUnlockedEvent(cmd.StudentID, string(a.ID), rarity, a.EarnedAt))
	}

	return &AwardXPResult{
		StudentID: cmd.StudentID,
		NewTotal:  int(award.NewXP),
		OldLevel:  award.OldLevel,
		NewLevel:  award.NewLevel,
		LeveledUp: award.LeveledUp(),
		Unlocked:  award.Unlocked,
	}, nil
}

func (h *AwardXPHandler) publish(event shared.Event) {
	if h.eventPublisher != nil {
		_ = h.eventPublisher.Publish(event)
	}
}
