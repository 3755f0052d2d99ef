// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"context"
	"log/slog"

	"github.com/campus-pulse/engagement-hub/internal/application/command"
	"github.com/campus-pulse/engagement-hub/internal/domain/gamification"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON ATTENDANCE RECORDED HANDLER
// Превращает отметку посещения в начисление XP: базовая награда за
// присутствие плюс бонус за приход вовремя. Отсутствие ничего не начисляет.
// ═══════════════════════════════════════════════════════════════════════════

// AttendanceRewardConfig содержит размеры наград за посещение.
type AttendanceRewardConfig struct {
	// BaseXP - награда за присутствие на занятии.
	BaseXP int

	// OnTimeBonus - бонус за отметку до начала занятия.
	OnTimeBonus int
}

// DefaultAttendanceRewardConfig возвращает конфигурацию по умолчанию.
func DefaultAttendanceRewardConfig() AttendanceRewardConfig {
	return AttendanceRewardConfig{
		BaseXP:      25,
		OnTimeBonus: 50,
	}
}

// OnAttendanceRecordedHandler обрабатывает событие отметки посещения.
type OnAttendanceRecordedHandler struct {
	awardXP *command.AwardXPHandler
	logger  *slog.Logger
	config  AttendanceRewardConfig
}

// NewOnAttendanceRecordedHandler создаёт обработчик.
func NewOnAttendanceRecordedHandler(
	awardXP *command.AwardXPHandler,
	logger *slog.Logger,
	config AttendanceRewardConfig,
) *OnAttendanceRecordedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BaseXP == 0 {
		config = DefaultAttendanceRewardConfig()
	}
	return &OnAttendanceRecordedHandler{
		awardXP: awardXP,
		logger:  logger.With("handler", "on_attendance_recorded"),
		config:  config,
	}
}

// Handle обрабатывает событие. Реализует shared.EventHandler.
func (h *OnAttendanceRecordedHandler) Handle(event shared.Event) error {
	attEvent, ok := event.(shared.AttendanceRecordedEvent)
	if !ok {
		h.logger.Warn("received non-AttendanceRecordedEvent", "event_type", event.EventType())
		return nil
	}
	if !attEvent.Present {
		return nil
	}

	amount := h.config.BaseXP
	reason := string(gamification.ReasonAttendance)
	if attEvent.OnTime {
		amount += h.config.OnTimeBonus
		reason = string(gamification.ReasonAttendanceOnTime)
	}

	_, err := h.awardXP.Handle(context.Background(), command.AwardXPCommand{
		StudentID:     attEvent.StudentID,
		Amount:        amount,
		Reason:        reason,
		CorrelationID: attEvent.CorrelationID,
	})
	if err != nil {
		h.logger.Error("attendance XP award failed",
			"student_id", attEvent.StudentID,
			"error", err,
		)
		return err
	}

	h.logger.Debug("attendance XP awarded",
		"student_id", attEvent.StudentID,
		"amount", amount,
		"on_time", attEvent.OnTime,
	)
	return nil
}
