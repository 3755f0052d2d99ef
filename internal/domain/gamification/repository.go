package gamification

import (
	"context"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// Repository - хранилище XP-леджеров и полученных достижений.
type Repository interface {
	// FindLedger возвращает леджер студента.
	// Возвращает shared.ErrLedgerNotFound, если студент ещё не начислялся.
	FindLedger(ctx context.Context, studentID shared.StudentID) (*XPLedger, error)

	// SaveLedger сохраняет леджер (вставка или обновление).
	SaveLedger(ctx context.Context, ledger *XPLedger) error

	// AllLedgers возвращает все леджеры - вход для построения рейтинга.
	AllLedgers(ctx context.Context) ([]*XPLedger, error)

	// Achievements возвращает полученные достижения студента
	// в порядке разблокировки.
	Achievements(ctx context.Context, studentID shared.StudentID) ([]Achievement, error)

	// SaveAchievement сохраняет разблокированное достижение.
	// Повторное сохранение того же ID - no-op.
	SaveAchievement(ctx context.Context, studentID shared.StudentID, a Achievement) error
}

// StatsSource собирает снимок показателей студента для проверки условий
// достижений. Поля TotalXP и Level заполняет сам движок.
type StatsSource interface {
	Evaluation(ctx context.Context, studentID shared.StudentID) (EvaluationContext, error)
}
