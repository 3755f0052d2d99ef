package eventhandler

import (
	"context"
	"log/slog"

	"github.com/campus-pulse/engagement-hub/internal/application/command"
	"github.com/campus-pulse/engagement-hub/internal/domain/gamification"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON CHALLENGE SUBMITTED HANDLER
// Переносит заработанный в квизе XP в леджер студента. Нулевой результат
// ничего не начисляет: движок отвергает неположительные суммы.
// ═══════════════════════════════════════════════════════════════════════════

// OnChallengeSubmittedHandler обрабатывает событие сдачи квиза.
type OnChallengeSubmittedHandler struct {
	awardXP   *command.AwardXPHandler
	quizStats gamification.QuizStatsRepository
	logger    *slog.Logger
}

// NewOnChallengeSubmittedHandler создаёт обработчик.
func NewOnChallengeSubmittedHandler(
	awardXP *command.AwardXPHandler,
	quizStats gamification.QuizStatsRepository,
	logger *slog.Logger,
) *OnChallengeSubmittedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnChallengeSubmittedHandler{
		awardXP:   awardXP,
		quizStats: quizStats,
		logger:    logger.With("handler", "on_challenge_submitted"),
	}
}

// Handle обрабатывает событие. Реализует shared.EventHandler.
func (h *OnChallengeSubmittedHandler) Handle(event shared.Event) error {
	subEvent, ok := event.(shared.ChallengeSubmittedEvent)
	if !ok {
		h.logger.Warn("received non-ChallengeSubmittedEvent", "event_type", event.EventType())
		return nil
	}

	// Статистика учитывается до начисления: предикаты достижений
	// проверяются внутри AwardXP и должны видеть свежий квиз.
	if h.quizStats != nil {
		perfect := subEvent.Score == subEvent.TotalQuestions
		err := h.quizStats.RecordQuizResult(
			context.Background(),
			shared.StudentID(subEvent.StudentID),
			subEvent.TotalQuestions, subEvent.Score, perfect,
		)
		if err != nil {
			h.logger.Error("quiz stats update failed",
				"student_id", subEvent.StudentID,
				"error", err,
			)
		}
	}

	if subEvent.XPAwarded <= 0 {
		return nil
	}

	_, err := h.awardXP.Handle(context.Background(), command.AwardXPCommand{
		StudentID:     subEvent.StudentID,
		Amount:        subEvent.XPAwarded,
		Reason:        string(gamification.ReasonChallenge),
		CorrelationID: subEvent.CorrelationID,
	})
	if err != nil {
		h.logger.Error("challenge XP award failed",
			"student_id", subEvent.StudentID,
			"session_id", subEvent.SessionID,
			"error", err,
		)
		return err
	}

	h.logger.Debug("challenge XP awarded",
		"student_id", subEvent.StudentID,
		"score", subEvent.Score,
		"xp", subEvent.XPAwarded,
	)
	return nil
}
