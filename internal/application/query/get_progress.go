package query

import (
	"context"
	"errors"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/gamification"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Level, XP within level, and the achievement list with presentation
// metadata resolved from the catalogue.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery requests a student's gamification progress.
type GetProgressQuery struct {
	StudentID string
}

// Validate validates the query.
func (q GetProgressQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("get_progress: student_id is required")
	}
	return nil
}

// AchievementDTO is the read model for one earned achievement.
type AchievementDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Emoji       string    `json:"emoji"`
	Rarity      string    `json:"rarity"`
	Color       string    `json:"color"`
	EarnedAt    time.Time `json:"earned_at"`
}

// ProgressDTO is the read model for student progress.
type ProgressDTO struct {
	StudentID     string           `json:"student_id"`
	TotalXP       int              `json:"total_xp"`
	Level         int              `json:"level"`
	XPIntoLevel   int              `json:"xp_into_level"`
	XPToNextLevel int              `json:"xp_to_next_level"`
	AtMaxLevel    bool             `json:"at_max_level"`
	Achievements  []AchievementDTO `json:"achievements"`
}

// GetProgressHandler handles the query.
type GetProgressHandler struct {
	engine *gamification.Engine
}

// NewGetProgressHandler creates a new handler.
func NewGetProgressHandler(engine *gamification.Engine) *GetProgressHandler {
	return &GetProgressHandler{engine: engine}
}

// Handle executes the query.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*ProgressDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("gamification", "GetProgress", shared.ErrValidation, "invalid query", err)
	}

	studentID := shared.StudentID(q.StudentID)
	progress, err := h.engine.Progress(ctx, studentID)
	if err != nil {
		return nil, err
	}
	earned, err := h.engine.Achievements(ctx, studentID)
	if err != nil {
		return nil, err
	}

	defs := gamification.DefaultDefinitions()
	achievements := make([]AchievementDTO, 0, len(earned))
	for _, a := range earned {
		dto := AchievementDTO{ID: string(a.ID), EarnedAt: a.EarnedAt}
		if def, ok := gamification.FindDefinition(defs, a.ID); ok {
			dto.Name = def.Name
			dto.Description = def.Description
			dto.Emoji = def.Emoji
			dto.Rarity = string(def.Rarity)
			dto.Color = gamification.RarityColor(def.Rarity)
		}
		achievements = append(achievements, dto)
	}

	return &ProgressDTO{
		StudentID:     q.StudentID,
		TotalXP:       int(progress.TotalXP),
		Level:         progress.Level,
		XPIntoLevel:   int(progress.XPIntoLevel),
		XPToNextLevel: int(progress.XPToNextLevel),
		AtMaxLevel:    progress.AtMaxLevel,
		Achievements:  achievements,
	}, nil
}
