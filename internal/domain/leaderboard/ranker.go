package leaderboard

import (
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKER
// ══════════════════════════════════════════════════════════════════════════════

// Score - входная точка рейтинга: показатели одного студента.
// Вызывающая сторона собирает их из XP-леджеров.
type Score struct {
	StudentID  shared.StudentID
	XP         shared.XP
	Level      int
	AttainedAt time.Time
}

// BuildSnapshot строит новый снапшот из набора показателей и вычисляет
// дельты относительно предыдущего снапшота (nil допустим). Чистая
// функция без побочных эффектов: сохранение и публикация событий -
// забота вызывающей стороны.
func BuildSnapshot(id string, period Period, scores []Score, previous *Snapshot, at time.Time) (*Snapshot, *Diff, error) {
	if !period.IsValid() {
		return nil, nil, shared.ErrInvalidPeriod
	}

	ranking := NewRanking()
	for _, score := range scores {
		entry := &Entry{
			StudentID:  score.StudentID,
			XP:         score.XP,
			Level:      score.Level,
			AttainedAt: score.AttainedAt,
		}
		if err := ranking.Add(entry); err != nil {
			return nil, nil, err
		}
	}
	ranking.Sort()

	snapshot := NewSnapshot(id, period, ranking, at)
	diff := CalculateDiff(previous, snapshot)
	return snapshot, diff, nil
}
