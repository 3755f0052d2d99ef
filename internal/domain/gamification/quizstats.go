package gamification

import (
	"context"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUIZ STATS
// ══════════════════════════════════════════════════════════════════════════════

// QuizStats - накопленная статистика квизов студента. Ведётся отдельно
// от сессий: сами сессии вычищаются после окна хранения, а статистика
// нужна достижениям бессрочно.
type QuizStats struct {
	StudentID         shared.StudentID
	QuizzesTaken      int
	PerfectQuizzes    int
	QuestionsAnswered int
	CorrectAnswers    int
}

// SuccessRate возвращает долю верных ответов в процентах.
func (s QuizStats) SuccessRate() shared.Percentage {
	return shared.RatioPercentage(s.CorrectAnswers, s.QuestionsAnswered)
}

// QuizStatsRepository - хранилище статистики квизов.
type QuizStatsRepository interface {
	// QuizStats возвращает статистику студента. Для студента без квизов
	// возвращается нулевая статистика без ошибки.
	QuizStats(ctx context.Context, studentID shared.StudentID) (QuizStats, error)

	// RecordQuizResult учитывает один сданный квиз.
	RecordQuizResult(ctx context.Context, studentID shared.StudentID, totalQuestions, correct int, perfect bool) error
}
