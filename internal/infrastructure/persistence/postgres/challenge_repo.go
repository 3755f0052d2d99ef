package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/challenge"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE SESSION STORE IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeStore implements challenge.SessionStore for PostgreSQL.
// Questions and answers are stored as JSONB: a session is read and
// written whole.
type ChallengeStore struct {
	conn *Connection
}

// NewChallengeStore creates a new ChallengeStore.
func NewChallengeStore(conn *Connection) *ChallengeStore {
	return &ChallengeStore{conn: conn}
}

// storedQuestion is the JSONB shape of a question.
type storedQuestion struct {
	ID           string   `json:"id"`
	Category     string   `json:"category"`
	Difficulty   string   `json:"difficulty"`
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

// Save inserts or updates a session.
func (s *ChallengeStore) Save(ctx context.Context, session *challenge.Session) error {
	stored := make([]storedQuestion, len(session.Questions))
	for i, q := range session.Questions {
		stored[i] = storedQuestion{
			ID:           q.ID,
			Category:     string(q.Category),
			Difficulty:   string(q.Difficulty),
			Prompt:       q.Prompt,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
		}
	}

	questionsJSON, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}
	answersJSON, err := json.Marshal(session.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}

	var completedAt *time.Time
	if !session.CompletedAt.IsZero() {
		t := session.CompletedAt
		completedAt = &t
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO challenge_sessions
		(id, student_id, questions, answers, start_time, duration_seconds, state, completed_at, xp_per_correct)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			answers = EXCLUDED.answers,
			state = EXCLUDED.state,
			completed_at = EXCLUDED.completed_at
	`,
		session.ID,
		string(session.StudentID),
		questionsJSON,
		answersJSON,
		session.StartTime,
		int(session.Duration.Seconds()),
		string(session.State),
		completedAt,
		int(session.XPPerCorrect),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Find returns a session by ID.
func (s *ChallengeStore) Find(ctx context.Context, id string) (*challenge.Session, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT id, student_id, questions, answers, start_time, duration_seconds, state, completed_at, xp_per_correct
		FROM challenge_sessions
		WHERE id = $1
	`, id)

	session, err := scanSession(row)
	if IsNoRows(err) {
		return nil, shared.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// ActiveSessions returns all sessions still in the Active state.
func (s *ChallengeStore) ActiveSessions(ctx context.Context) ([]*challenge.Session, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, student_id, questions, answers, start_time, duration_seconds, state, completed_at, xp_per_correct
		FROM challenge_sessions
		WHERE state = 'active'
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*challenge.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// DeleteOlderThan evicts terminal sessions completed before the cutoff.
func (s *ChallengeStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.conn.Exec(ctx, `
		DELETE FROM challenge_sessions
		WHERE state IN ('submitted', 'expired') AND completed_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*challenge.Session, error) {
	var session challenge.Session
	var studentID, state string
	var questionsJSON, answersJSON []byte
	var durationSeconds, xpPerCorrect int
	var completedAt *time.Time

	err := row.Scan(
		&session.ID,
		&studentID,
		&questionsJSON,
		&answersJSON,
		&session.StartTime,
		&durationSeconds,
		&state,
		&completedAt,
		&xpPerCorrect,
	)
	if err != nil {
		return nil, err
	}

	var stored []storedQuestion
	if err := json.Unmarshal(questionsJSON, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
	}
	session.Questions = make([]challenge.Question, len(stored))
	for i, q := range stored {
		session.Questions[i] = challenge.Question{
			ID:           q.ID,
			Category:     challenge.Category(q.Category),
			Difficulty:   challenge.Difficulty(q.Difficulty),
			Prompt:       q.Prompt,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
		}
	}

	if err := json.Unmarshal(answersJSON, &session.Answers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
	}

	session.StudentID = shared.StudentID(studentID)
	session.StartTime = session.StartTime.UTC()
	session.Duration = time.Duration(durationSeconds) * time.Second
	session.State = challenge.State(state)
	session.XPPerCorrect = shared.XP(xpPerCorrect)
	if completedAt != nil {
		session.CompletedAt = completedAt.UTC()
	}

	return &session, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// QUESTION BANK IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// QuestionBank implements challenge.QuestionBank backed by the
// challenge_questions table.
type QuestionBank struct {
	conn *Connection
}

// NewQuestionBank creates a new QuestionBank.
func NewQuestionBank(conn *Connection) *QuestionBank {
	return &QuestionBank{conn: conn}
}

// Pick returns up to count random questions for a category. An empty
// category draws from the whole bank.
func (b *QuestionBank) Pick(ctx context.Context, category challenge.Category, count int) ([]challenge.Question, error) {
	query := `
		SELECT id, category, difficulty, prompt, options, correct_index
		FROM challenge_questions
		ORDER BY random()
		LIMIT $1
	`
	args := []interface{}{count}
	if category != "" {
		query = `
			SELECT id, category, difficulty, prompt, options, correct_index
			FROM challenge_questions
			WHERE category = $1
			ORDER BY random()
			LIMIT $2
		`
		args = []interface{}{string(category), count}
	}

	rows, err := b.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []challenge.Question
	for rows.Next() {
		var q challenge.Question
		var cat, diff string
		var optionsJSON []byte

		if err := rows.Scan(&q.ID, &cat, &diff, &q.Prompt, &optionsJSON, &q.CorrectIndex); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
			return nil, fmt.Errorf("failed to unmarshal options: %w", err)
		}

		q.Category = challenge.Category(cat)
		q.Difficulty = challenge.Difficulty(diff)
		questions = append(questions, q)
	}

	return questions, rows.Err()
}
