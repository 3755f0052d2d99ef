package challenge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

var testStart = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func twoQuestions() []Question {
	return []Question{
		{ID: "q1", Category: CategoryAlgorithms, Difficulty: DifficultyEasy, Prompt: "Big-O of binary search?", Options: []string{"O(n)", "O(log n)", "O(1)"}, CorrectIndex: 1},
		{ID: "q2", Category: CategoryDataStructures, Difficulty: DifficultyMedium, Prompt: "LIFO structure?", Options: []string{"Queue", "Stack"}, CorrectIndex: 1},
	}
}

func startSession(t *testing.T) *Session {
	t.Helper()
	s, err := Start("s1", twoQuestions(), 10*time.Minute, testStart, 0)
	require.NoError(t, err)
	return s
}

func TestStart_Validation(t *testing.T) {
	_, err := Start("s1", nil, time.Minute, testStart, 0)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = Start("s1", twoQuestions(), 0, testStart, 0)
	assert.ErrorIs(t, err, shared.ErrValidation)

	bad := twoQuestions()
	bad[0].CorrectIndex = 9
	_, err = Start("s1", bad, time.Minute, testStart, 0)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestStart_Defaults(t *testing.T) {
	s := startSession(t)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, StateActive, s.State)
	assert.Equal(t, DefaultXPPerCorrect, s.XPPerCorrect)
	assert.Equal(t, []int{-1, -1}, s.Answers)
}

func TestSession_AnswerAndOverwrite(t *testing.T) {
	s := startSession(t)
	now := testStart.Add(time.Minute)

	require.NoError(t, s.Answer(0, 0, now))
	require.NoError(t, s.Answer(0, 1, now)) // overwrite allowed before submit
	assert.Equal(t, 1, s.Answers[0])

	assert.ErrorIs(t, s.Answer(5, 0, now), shared.ErrValueOutOfRange)
	assert.ErrorIs(t, s.Answer(0, 7, now), shared.ErrValueOutOfRange)
}

func TestSession_SubmitScoresUnansweredAsIncorrect(t *testing.T) {
	s := startSession(t)
	now := testStart.Add(time.Minute)

	require.NoError(t, s.Answer(0, 1, now)) // correct

	result, err := s.Submit(now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Score)
	assert.Equal(t, 2, result.TotalQuestions)
	assert.Equal(t, shared.XP(150), result.XPAwarded)
	assert.False(t, result.Perfect)
	assert.Equal(t, StateSubmitted, s.State)
	assert.False(t, s.CompletedAt.IsZero())
}

func TestSession_PerfectScore(t *testing.T) {
	s := startSession(t)
	now := testStart.Add(time.Minute)

	require.NoError(t, s.Answer(0, 1, now))
	require.NoError(t, s.Answer(1, 1, now))

	result, err := s.Submit(now)
	require.NoError(t, err)
	assert.True(t, result.Perfect)
	assert.Equal(t, shared.XP(300), result.XPAwarded)
}

func TestSession_SubmitAfterDeadlineAwardsNothing(t *testing.T) {
	s := startSession(t)

	require.NoError(t, s.Answer(0, 1, testStart.Add(time.Minute)))

	_, err := s.Submit(testStart.Add(11 * time.Minute))
	assert.ErrorIs(t, err, shared.ErrExpired)
	assert.Equal(t, StateExpired, s.State)

	// Terminal states are immutable.
	assert.ErrorIs(t, s.Answer(1, 0, testStart.Add(12*time.Minute)), shared.ErrInvalidState)
	_, err = s.Submit(testStart.Add(12 * time.Minute))
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestSession_AnswerAfterDeadlineExpires(t *testing.T) {
	s := startSession(t)

	err := s.Answer(0, 1, testStart.Add(10*time.Minute)) // deadline is inclusive-exclusive
	assert.ErrorIs(t, err, shared.ErrExpired)
	assert.Equal(t, StateExpired, s.State)
}

func TestSession_DoubleSubmitRejected(t *testing.T) {
	s := startSession(t)

	_, err := s.Submit(testStart.Add(time.Minute))
	require.NoError(t, err)

	_, err = s.Submit(testStart.Add(2 * time.Minute))
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestSession_Remaining(t *testing.T) {
	s := startSession(t)

	assert.Equal(t, 10*time.Minute, s.Remaining(testStart))
	assert.Equal(t, 4*time.Minute, s.Remaining(testStart.Add(6*time.Minute)))
	assert.Equal(t, time.Duration(0), s.Remaining(testStart.Add(time.Hour)))
}

func TestSession_ExpireIfDue(t *testing.T) {
	s := startSession(t)

	assert.False(t, s.ExpireIfDue(testStart.Add(9*time.Minute)))
	assert.Equal(t, StateActive, s.State)

	assert.True(t, s.ExpireIfDue(testStart.Add(10*time.Minute)))
	assert.Equal(t, StateExpired, s.State)

	// Already terminal: no second transition.
	assert.False(t, s.ExpireIfDue(testStart.Add(20*time.Minute)))
}
