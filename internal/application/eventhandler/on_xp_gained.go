package eventhandler

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/campus-pulse/engagement-hub/internal/domain/leaderboard"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON XP GAINED HANDLER
// Помечает рейтинг устаревшим: сбрасывает кеш топа и двигает счётчик
// версии, по которому воркер решает, пора ли пересобирать снапшот.
// ═══════════════════════════════════════════════════════════════════════════

// OnXPGainedHandler обрабатывает событие начисления XP.
type OnXPGainedHandler struct {
	cache  leaderboard.Cache
	logger *slog.Logger

	// version растёт при каждом начислении. Снимается воркером через
	// Version() и сравнивается с версией последней пересборки.
	version atomic.Int64
}

// NewOnXPGainedHandler создаёт обработчик. cache может быть nil.
func NewOnXPGainedHandler(cache leaderboard.Cache, logger *slog.Logger) *OnXPGainedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnXPGainedHandler{
		cache:  cache,
		logger: logger.With("handler", "on_xp_gained"),
	}
}

// Version возвращает текущую версию рейтинга.
func (h *OnXPGainedHandler) Version() int64 {
	return h.version.Load()
}

// Handle обрабатывает событие. Реализует shared.EventHandler.
func (h *OnXPGainedHandler) Handle(event shared.Event) error {
	xpEvent, ok := event.(shared.XPGainedEvent)
	if !ok {
		h.logger.Warn("received non-XPGainedEvent", "event_type", event.EventType())
		return nil
	}

	h.version.Add(1)

	if h.cache != nil {
		ctx := context.Background()
		for _, period := range []leaderboard.Period{
			leaderboard.PeriodDaily,
			leaderboard.PeriodWeekly,
			leaderboard.PeriodAllTime,
		} {
			if err := h.cache.Invalidate(ctx, period); err != nil {
				h.logger.Warn("leaderboard cache invalidation failed",
					"period", period,
					"error", err,
				)
			}
		}
	}

	h.logger.Debug("leaderboard marked stale",
		"student_id", xpEvent.StudentID,
		"new_total", xpEvent.NewTotal,
	)
	return nil
}
