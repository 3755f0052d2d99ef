package memory

import (
	"context"
	"sync"

	"github.com/campus-pulse/engagement-hub/internal/domain/gamification"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// GamificationRepo is an in-memory gamification.Repository plus
// gamification.QuizStatsRepository. The Engine serializes awards per
// student; the repo only needs to keep individual operations atomic.
type GamificationRepo struct {
	mu           sync.RWMutex
	ledgers      map[shared.StudentID]gamification.XPLedger
	achievements map[shared.StudentID][]gamification.Achievement
	quizStats    map[shared.StudentID]gamification.QuizStats
}

// NewGamificationRepo creates an empty repo.
func NewGamificationRepo() *GamificationRepo {
	return &GamificationRepo{
		ledgers:      make(map[shared.StudentID]gamification.XPLedger),
		achievements: make(map[shared.StudentID][]gamification.Achievement),
		quizStats:    make(map[shared.StudentID]gamification.QuizStats),
	}
}

// FindLedger implements gamification.Repository.
func (r *GamificationRepo) FindLedger(_ context.Context, studentID shared.StudentID) (*gamification.XPLedger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ledger, ok := r.ledgers[studentID]
	if !ok {
		return nil, shared.ErrLedgerNotFound
	}
	cp := ledger
	return &cp, nil
}

// SaveLedger implements gamification.Repository.
func (r *GamificationRepo) SaveLedger(_ context.Context, ledger *gamification.XPLedger) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ledgers[ledger.StudentID] = *ledger
	return nil
}

// AllLedgers implements gamification.Repository.
func (r *GamificationRepo) AllLedgers(_ context.Context) ([]*gamification.XPLedger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*gamification.XPLedger, 0, len(r.ledgers))
	for _, ledger := range r.ledgers {
		cp := ledger
		out = append(out, &cp)
	}
	return out, nil
}

// Achievements implements gamification.Repository.
func (r *GamificationRepo) Achievements(_ context.Context, studentID shared.StudentID) ([]gamification.Achievement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]gamification.Achievement(nil), r.achievements[studentID]...), nil
}

// SaveAchievement implements gamification.Repository. Saving an already
// earned achievement is a no-op, keeping EarnedAt first-write-wins.
func (r *GamificationRepo) SaveAchievement(_ context.Context, studentID shared.StudentID, a gamification.Achievement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, have := range r.achievements[studentID] {
		if have.ID == a.ID {
			return nil
		}
	}
	r.achievements[studentID] = append(r.achievements[studentID], a)
	return nil
}

// QuizStats implements gamification.QuizStatsRepository.
func (r *GamificationRepo) QuizStats(_ context.Context, studentID shared.StudentID) (gamification.QuizStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats, ok := r.quizStats[studentID]
	if !ok {
		return gamification.QuizStats{StudentID: studentID}, nil
	}
	return stats, nil
}

// RecordQuizResult implements gamification.QuizStatsRepository.
func (r *GamificationRepo) RecordQuizResult(_ context.Context, studentID shared.StudentID, totalQuestions, correct int, perfect bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := r.quizStats[studentID]
	stats.StudentID = studentID
	stats.QuizzesTaken++
	stats.QuestionsAnswered += totalQuestions
	stats.CorrectAnswers += correct
	if perfect {
		stats.PerfectQuizzes++
	}
	r.quizStats[studentID] = stats
	return nil
}
