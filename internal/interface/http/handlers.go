package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/application/command"
	"github.com/campus-pulse/engagement-hub/internal/application/query"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
	"github.com/campus-pulse/engagement-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Campus Pulse Engagement API",
		"version":     "v1",
		"description": "REST API for attendance, streaks, XP, challenges, leaderboards, and study groups",
		"endpoints": map[string]string{
			"health":      "/health",
			"attendance":  "/api/v1/attendance",
			"leaderboard": "/api/v1/leaderboard",
			"challenges":  "/api/v1/challenges",
			"groups":      "/api/v1/groups",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleMetrics returns basic server metrics as JSON.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := map[string]interface{}{
		"uptime_seconds": s.Uptime().Seconds(),
		"running":        s.IsRunning(),
	}

	writeJSON(w, http.StatusOK, metrics)
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// recordAttendanceRequest is the body of POST /api/v1/attendance.
type recordAttendanceRequest struct {
	StudentID string     `json:"student_id"`
	SubjectID string     `json:"subject_id"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Present   bool       `json:"present"`
	OnTime    bool       `json:"on_time"`
}

// handleRecordAttendance handles POST /api/v1/attendance
func (s *Server) handleRecordAttendance(w http.ResponseWriter, r *http.Request) {
	if s.deps.RecordAttendance == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Attendance handler not configured")
		return
	}

	var req recordAttendanceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cmd := command.RecordAttendanceCommand{
		StudentID:     req.StudentID,
		SubjectID:     req.SubjectID,
		Present:       req.Present,
		OnTime:        req.OnTime,
		CorrelationID: getRequestID(r.Context()),
	}
	if req.Timestamp != nil {
		cmd.Timestamp = *req.Timestamp
	}

	result, err := s.deps.RecordAttendance.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// handleGetAttendanceSummary handles GET /api/v1/students/{id}/attendance
func (s *Server) handleGetAttendanceSummary(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetAttendanceSummary == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Attendance summary handler not configured")
		return
	}

	q := query.GetAttendanceSummaryQuery{
		StudentID: r.PathValue("id"),
		SubjectID: getQueryParam(r, "subject", ""),
	}

	summary, err := s.deps.GetAttendanceSummary.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleGetStreak handles GET /api/v1/students/{id}/streak
func (s *Server) handleGetStreak(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetStreak == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Streak handler not configured")
		return
	}

	streak, err := s.deps.GetStreak.Handle(r.Context(), query.GetStreakQuery{
		StudentID: r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, streak)
}

// ══════════════════════════════════════════════════════════════════════════════
// GAMIFICATION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetProgress handles GET /api/v1/students/{id}/progress
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetProgress == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Progress handler not configured")
		return
	}

	progress, err := s.deps.GetProgress.Handle(r.Context(), query.GetProgressQuery{
		StudentID: r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

// awardXPRequest is the body of POST /api/v1/students/{id}/xp.
type awardXPRequest struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

// handleAwardXP handles POST /api/v1/students/{id}/xp
func (s *Server) handleAwardXP(w http.ResponseWriter, r *http.Request) {
	if s.deps.AwardXP == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Award XP handler not configured")
		return
	}

	var req awardXPRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.AwardXP.Handle(r.Context(), command.AwardXPCommand{
		StudentID:     r.PathValue("id"),
		Amount:        req.Amount,
		Reason:        req.Reason,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// startChallengeRequest is the body of POST /api/v1/challenges.
type startChallengeRequest struct {
	StudentID       string `json:"student_id"`
	Category        string `json:"category,omitempty"`
	QuestionCount   int    `json:"question_count"`
	DurationSeconds int    `json:"duration_seconds"`
}

// handleStartChallenge handles POST /api/v1/challenges
func (s *Server) handleStartChallenge(w http.ResponseWriter, r *http.Request) {
	if s.deps.Challenges == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Challenge handler not configured")
		return
	}

	var req startChallengeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.Challenges.HandleStart(r.Context(), command.StartChallengeCommand{
		StudentID:     req.StudentID,
		Category:      req.Category,
		QuestionCount: req.QuestionCount,
		Duration:      time.Duration(req.DurationSeconds) * time.Second,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// answerChallengeRequest is the body of POST /api/v1/challenges/{id}/answers.
type answerChallengeRequest struct {
	StudentID     string `json:"student_id"`
	QuestionIndex int    `json:"question_index"`
	OptionIndex   int    `json:"option_index"`
}

// handleAnswerChallenge handles POST /api/v1/challenges/{id}/answers
func (s *Server) handleAnswerChallenge(w http.ResponseWriter, r *http.Request) {
	if s.deps.Challenges == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Challenge handler not configured")
		return
	}

	var req answerChallengeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := s.deps.Challenges.HandleAnswer(r.Context(), command.AnswerChallengeCommand{
		SessionID:     r.PathValue("id"),
		StudentID:     req.StudentID,
		QuestionIndex: req.QuestionIndex,
		OptionIndex:   req.OptionIndex,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// submitChallengeRequest is the body of POST /api/v1/challenges/{id}/submit.
type submitChallengeRequest struct {
	StudentID string `json:"student_id"`
}

// handleSubmitChallenge handles POST /api/v1/challenges/{id}/submit
func (s *Server) handleSubmitChallenge(w http.ResponseWriter, r *http.Request) {
	if s.deps.Challenges == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Challenge handler not configured")
		return
	}

	var req submitChallengeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.Challenges.HandleSubmit(r.Context(), command.SubmitChallengeCommand{
		SessionID:     r.PathValue("id"),
		StudentID:     req.StudentID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard handles GET /api/v1/leaderboard
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetLeaderboard == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Leaderboard handler not configured")
		return
	}

	q := query.GetLeaderboardQuery{
		Period:    getQueryParam(r, "period", ""),
		Page:      getQueryParamInt(r, "page", 1),
		PageSize:  getQueryParamInt(r, "page_size", 20),
		StudentID: getQueryParam(r, "student_id", ""),
	}

	board, err := s.deps.GetLeaderboard.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, board, &ResponseMeta{
		TotalCount: board.TotalStudents,
		Page:       board.Page,
		PageSize:   board.PageSize,
		HasMore:    board.Page*board.PageSize < board.TotalStudents,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDY GROUP HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleSearchGroups handles GET /api/v1/groups
func (s *Server) handleSearchGroups(w http.ResponseWriter, r *http.Request) {
	if s.deps.SearchStudyGroups == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Study group handler not configured")
		return
	}

	groups, err := s.deps.SearchStudyGroups.Handle(r.Context(), query.SearchStudyGroupsQuery{
		Text:       getQueryParam(r, "q", ""),
		Level:      getQueryParam(r, "level", ""),
		OnlineOnly: getQueryParamBool(r, "online_only"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, groups, &ResponseMeta{
		TotalCount: len(groups),
	})
}

// membershipRequest is the body of join/leave endpoints.
type membershipRequest struct {
	StudentID string `json:"student_id"`
}

// handleJoinGroup handles POST /api/v1/groups/{id}/join
func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	if s.deps.StudyGroups == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Study group handler not configured")
		return
	}

	var req membershipRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.StudyGroups.HandleJoin(r.Context(), command.JoinStudyGroupCommand{
		GroupID:       r.PathValue("id"),
		StudentID:     req.StudentID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleLeaveGroup handles POST /api/v1/groups/{id}/leave
func (s *Server) handleLeaveGroup(w http.ResponseWriter, r *http.Request) {
	if s.deps.StudyGroups == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Study group handler not configured")
		return
	}

	var req membershipRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.StudyGroups.HandleLeave(r.Context(), command.LeaveStudyGroupCommand{
		GroupID:       r.PathValue("id"),
		StudentID:     req.StudentID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody decodes a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body is not valid JSON: "+err.Error())
		return false
	}
	return true
}

// writeDomainError maps a domain error to an HTTP status. Validation
// failures reject the input, state conflicts reject the transition, and
// external-service failures surface as 503 so callers can retry.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsStateConflict(err):
		writeJSONError(w, http.StatusConflict, "state_conflict", err.Error())
	case shared.IsExternalService(err):
		writeJSONError(w, http.StatusServiceUnavailable, "upstream_unavailable", err.Error())
	default:
		s.logger.Error("unhandled domain error",
			logger.Err(err),
			logger.String("path", r.URL.Path),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
