package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/engagement-hub/internal/application/command"
	"github.com/campus-pulse/engagement-hub/internal/application/query"
	"github.com/campus-pulse/engagement-hub/internal/domain/attendance"
	"github.com/campus-pulse/engagement-hub/internal/domain/challenge"
	"github.com/campus-pulse/engagement-hub/internal/domain/gamification"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
	"github.com/campus-pulse/engagement-hub/internal/domain/studygroup"
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/external/roster"
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/persistence/memory"
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/service"
)

// newTestServer wires a server over in-memory storage.
func newTestServer(t *testing.T, clock shared.Clock) (*Server, *memory.StudyGroupRepo) {
	t.Helper()

	eventStore := memory.NewAttendanceStore()
	ledger := attendance.NewLedger(eventStore, roster.NewPermissive())
	tracker := attendance.NewTracker(eventStore, clock)

	gamRepo := memory.NewGamificationRepo()
	stats := service.NewStatsAdapter(eventStore, tracker, gamRepo, clock)
	engine, err := gamification.NewEngine(gamRepo, stats, nil, clock)
	require.NoError(t, err)

	sessionStore := memory.NewChallengeStore()
	bank := memory.NewQuestionBank([]challenge.Question{
		{
			ID:           "q1",
			Category:     challenge.CategoryGeneral,
			Difficulty:   challenge.DifficultyEasy,
			Prompt:       "Which keyword starts a goroutine?",
			Options:      []string{"go", "run", "spawn"},
			CorrectIndex: 0,
		},
		{
			ID:           "q2",
			Category:     challenge.CategoryGeneral,
			Difficulty:   challenge.DifficultyEasy,
			Prompt:       "What is the zero value of a pointer?",
			Options:      []string{"0", "nil", "undefined"},
			CorrectIndex: 1,
		},
	})

	groupRepo := memory.NewStudyGroupRepo()
	directory := studygroup.NewDirectory(groupRepo)

	lbRepo := memory.NewLeaderboardRepo()

	config := DefaultConfig()
	config.RateLimitPerMinute = 0

	server := NewServer(config, Dependencies{
		RecordAttendance:     command.NewRecordAttendanceHandler(ledger, tracker, clock, nil),
		AwardXP:              command.NewAwardXPHandler(engine, nil),
		Challenges:           command.NewChallengeHandler(sessionStore, bank, clock, 150, nil),
		StudyGroups:          command.NewStudyGroupHandler(directory, nil),
		GetAttendanceSummary: query.NewGetAttendanceSummaryHandler(ledger),
		GetStreak:            query.NewGetStreakHandler(tracker),
		GetProgress:          query.NewGetProgressHandler(engine),
		GetLeaderboard:       query.NewGetLeaderboardHandler(lbRepo, nil, 0),
		SearchStudyGroups:    query.NewSearchStudyGroupsHandler(directory),
	})
	return server, groupRepo
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var resp struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data
}

func TestAttendanceEndpoints(t *testing.T) {
	clock := &shared.FixedClock{Instant: time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)}
	server, _ := newTestServer(t, clock)
	h := server.Handler()

	for day := 3; day <= 5; day++ {
		ts := time.Date(2025, 3, day, 10, 0, 0, 0, time.UTC)
		rec := doJSON(t, h, http.MethodPost, "/api/v1/attendance", map[string]interface{}{
			"student_id": "stud-1",
			"subject_id": "algebra",
			"timestamp":  ts,
			"present":    true,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := doJSON(t, h, http.MethodGet, "/api/v1/students/stud-1/attendance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeData(t, rec)
	assert.EqualValues(t, 3, summary["attended"])
	assert.EqualValues(t, 100, summary["percentage"])

	rec = doJSON(t, h, http.MethodGet, "/api/v1/students/stud-1/streak", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	streak := decodeData(t, rec)
	assert.EqualValues(t, 3, streak["current_streak"])
}

func TestRecordAttendanceRejectsMissingStudent(t *testing.T) {
	clock := &shared.FixedClock{Instant: time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)}
	server, _ := newTestServer(t, clock)

	rec := doJSON(t, server.Handler(), http.MethodPost, "/api/v1/attendance", map[string]interface{}{
		"subject_id": "algebra",
		"present":    true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAwardXPAndProgress(t *testing.T) {
	clock := &shared.FixedClock{Instant: time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)}
	server, _ := newTestServer(t, clock)
	h := server.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/v1/students/stud-1/xp", map[string]interface{}{
		"amount": 250,
		"reason": "attendance",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/api/v1/students/stud-1/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	progress := decodeData(t, rec)
	assert.EqualValues(t, 250, progress["total_xp"])

	// Negative amounts are rejected before any mutation.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/students/stud-1/xp", map[string]interface{}{
		"amount": -10,
		"reason": "oops",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChallengeLifecycle(t *testing.T) {
	clock := &shared.FixedClock{Instant: time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)}
	server, _ := newTestServer(t, clock)
	h := server.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/v1/challenges", map[string]interface{}{
		"student_id":       "stud-1",
		"question_count":   2,
		"duration_seconds": 300,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	started := decodeData(t, rec)
	sessionID, _ := started["SessionID"].(string)
	require.NotEmpty(t, sessionID)

	for i := 0; i < 2; i++ {
		rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/v1/challenges/%s/answers", sessionID), map[string]interface{}{
			"student_id":     "stud-1",
			"question_index": i,
			"option_index":   0,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/v1/challenges/%s/submit", sessionID), map[string]interface{}{
		"student_id": "stud-1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Submitting twice is a state conflict.
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/v1/challenges/%s/submit", sessionID), map[string]interface{}{
		"student_id": "stud-1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestChallengeNotFound(t *testing.T) {
	clock := &shared.FixedClock{Instant: time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)}
	server, _ := newTestServer(t, clock)

	rec := doJSON(t, server.Handler(), http.MethodPost, "/api/v1/challenges/no-such-session/submit", map[string]interface{}{
		"student_id": "stud-1",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStudyGroupEndpoints(t *testing.T) {
	clock := &shared.FixedClock{Instant: time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)}
	server, groupRepo := newTestServer(t, clock)
	h := server.Handler()

	group := &studygroup.StudyGroup{
		ID:       "grp-1",
		Name:     "Evening Algorithms",
		Subject:  "algorithms",
		Capacity: 2,
		Level:    studygroup.LevelIntermediate,
		IsOnline: true,
	}
	require.NoError(t, groupRepo.Save(context.Background(), group))

	rec := doJSON(t, h, http.MethodGet, "/api/v1/groups?online_only=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/groups/grp-1/join", map[string]interface{}{
		"student_id": "stud-1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	occupancy := decodeData(t, rec)
	assert.EqualValues(t, 1, occupancy["MemberCount"])

	// Joining twice is a conflict.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/groups/grp-1/join", map[string]interface{}{
		"student_id": "stud-1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/groups/grp-1/leave", map[string]interface{}{
		"student_id": "stud-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Leaving again: not a member.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/groups/grp-1/leave", map[string]interface{}{
		"student_id": "stud-1",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIKeyProtectsWrites(t *testing.T) {
	clock := &shared.FixedClock{Instant: time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)}

	config := DefaultConfig()
	config.RateLimitPerMinute = 0
	config.APIKeys = []string{"sekret"}

	unprotected, _ := newTestServer(t, clock)
	server := NewServer(config, unprotected.deps)
	h := server.Handler()

	body := map[string]interface{}{
		"student_id": "stud-1",
		"subject_id": "algebra",
		"present":    true,
	}

	rec := doJSON(t, h, http.MethodPost, "/api/v1/attendance", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance", &buf)
	req.Header.Set("X-API-Key", "sekret")
	recorder := httptest.NewRecorder()
	h.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
}

func TestHealthEndpoint(t *testing.T) {
	clock := &shared.FixedClock{Instant: time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)}
	server, _ := newTestServer(t, clock)

	rec := doJSON(t, server.Handler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
