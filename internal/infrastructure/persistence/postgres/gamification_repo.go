package postgres

import (
	"context"
	"fmt"

	"github.com/campus-pulse/engagement-hub/internal/domain/gamification"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GAMIFICATION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// GamificationRepository implements gamification.Repository and
// gamification.QuizStatsRepository for PostgreSQL.
type GamificationRepository struct {
	conn *Connection
}

// NewGamificationRepository creates a new GamificationRepository.
func NewGamificationRepository(conn *Connection) *GamificationRepository {
	return &GamificationRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// XP LEDGERS
// ─────────────────────────────────────────────────────────────────────────────

// FindLedger returns the XP ledger for a student.
func (r *GamificationRepository) FindLedger(ctx context.Context, studentID shared.StudentID) (*gamification.XPLedger, error) {
	var ledger gamification.XPLedger
	var id string
	var totalXP int

	err := r.conn.QueryRow(ctx, `
		SELECT student_id, total_xp, level, attained_at
		FROM xp_ledgers
		WHERE student_id = $1
	`, string(studentID)).Scan(&id, &totalXP, &ledger.Level, &ledger.AttainedAt)

	if IsNoRows(err) {
		return nil, shared.ErrLedgerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ledger: %w", err)
	}

	ledger.StudentID = shared.StudentID(id)
	ledger.TotalXP = shared.XP(totalXP)
	return &ledger, nil
}

// SaveLedger inserts or updates a ledger.
func (r *GamificationRepository) SaveLedger(ctx context.Context, ledger *gamification.XPLedger) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO xp_ledgers (student_id, total_xp, level, attained_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (student_id) DO UPDATE SET
			total_xp = EXCLUDED.total_xp,
			level = EXCLUDED.level,
			attained_at = EXCLUDED.attained_at,
			updated_at = NOW()
	`,
		string(ledger.StudentID),
		int(ledger.TotalXP),
		ledger.Level,
		ledger.AttainedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}
	return nil
}

// AllLedgers returns all ledgers, highest XP first.
func (r *GamificationRepository) AllLedgers(ctx context.Context) ([]*gamification.XPLedger, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT student_id, total_xp, level, attained_at
		FROM xp_ledgers
		ORDER BY total_xp DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledgers: %w", err)
	}
	defer rows.Close()

	var ledgers []*gamification.XPLedger
	for rows.Next() {
		var ledger gamification.XPLedger
		var id string
		var totalXP int

		if err := rows.Scan(&id, &totalXP, &ledger.Level, &ledger.AttainedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger: %w", err)
		}

		ledger.StudentID = shared.StudentID(id)
		ledger.TotalXP = shared.XP(totalXP)
		ledgers = append(ledgers, &ledger)
	}

	return ledgers, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// ACHIEVEMENTS
// ─────────────────────────────────────────────────────────────────────────────

// Achievements returns a student's unlocked achievements in unlock order.
func (r *GamificationRepository) Achievements(ctx context.Context, studentID shared.StudentID) ([]gamification.Achievement, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT achievement_id, earned_at
		FROM achievements
		WHERE student_id = $1
		ORDER BY earned_at
	`, string(studentID))
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements: %w", err)
	}
	defer rows.Close()

	var achievements []gamification.Achievement
	for rows.Next() {
		var a gamification.Achievement
		var id string

		if err := rows.Scan(&id, &a.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}

		a.ID = gamification.AchievementID(id)
		achievements = append(achievements, a)
	}

	return achievements, rows.Err()
}

// SaveAchievement records an unlock. Duplicate unlocks are a no-op.
func (r *GamificationRepository) SaveAchievement(ctx context.Context, studentID shared.StudentID, a gamification.Achievement) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO achievements (student_id, achievement_id, earned_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (student_id, achievement_id) DO NOTHING
	`,
		string(studentID),
		string(a.ID),
		a.EarnedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save achievement: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// QUIZ STATS
// ─────────────────────────────────────────────────────────────────────────────

// QuizStats returns a student's quiz statistics. A student with no
// quizzes yet gets zero-value stats without an error.
func (r *GamificationRepository) QuizStats(ctx context.Context, studentID shared.StudentID) (gamification.QuizStats, error) {
	stats := gamification.QuizStats{StudentID: studentID}

	err := r.conn.QueryRow(ctx, `
		SELECT quizzes_taken, perfect_quizzes, questions_answered, correct_answers
		FROM quiz_stats
		WHERE student_id = $1
	`, string(studentID)).Scan(
		&stats.QuizzesTaken,
		&stats.PerfectQuizzes,
		&stats.QuestionsAnswered,
		&stats.CorrectAnswers,
	)

	if IsNoRows(err) {
		return stats, nil
	}
	if err != nil {
		return gamification.QuizStats{}, fmt.Errorf("failed to get quiz stats: %w", err)
	}
	return stats, nil
}

// RecordQuizResult accumulates one submitted quiz into the counters.
func (r *GamificationRepository) RecordQuizResult(ctx context.Context, studentID shared.StudentID, totalQuestions, correct int, perfect bool) error {
	perfectInc := 0
	if perfect {
		perfectInc = 1
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO quiz_stats (student_id, quizzes_taken, perfect_quizzes, questions_answered, correct_answers, updated_at)
		VALUES ($1, 1, $2, $3, $4, NOW())
		ON CONFLICT (student_id) DO UPDATE SET
			quizzes_taken = quiz_stats.quizzes_taken + 1,
			perfect_quizzes = quiz_stats.perfect_quizzes + EXCLUDED.perfect_quizzes,
			questions_answered = quiz_stats.questions_answered + EXCLUDED.questions_answered,
			correct_answers = quiz_stats.correct_answers + EXCLUDED.correct_answers,
			updated_at = NOW()
	`,
		string(studentID),
		perfectInc,
		totalQuestions,
		correct,
	)
	if err != nil {
		return fmt.Errorf("failed to record quiz result: %w", err)
	}
	return nil
}
