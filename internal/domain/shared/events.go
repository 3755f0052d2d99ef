// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Attendance events
	EventAttendanceRecorded EventType = "attendance.recorded"
	EventStreakUpdated      EventType = "attendance.streak_updated"
	EventStreakBroken       EventType = "attendance.streak_broken"

	// Progress events
	EventXPGained            EventType = "progress.xp_gained"
	EventLevelUp             EventType = "progress.level_up"
	EventAchievementUnlocked EventType = "progress.achievement_unlocked"

	// Challenge events
	EventChallengeStarted   EventType = "challenge.started"
	EventChallengeSubmitted EventType = "challenge.submitted"
	EventChallengeExpired   EventType = "challenge.expired"

	// Leaderboard events
	EventRankChanged        EventType = "leaderboard.rank_changed"
	EventLeaderboardRebuilt EventType = "leaderboard.rebuilt"

	// Study group events
	EventGroupMemberJoined EventType = "studygroup.member_joined"
	EventGroupMemberLeft   EventType = "studygroup.member_left"

	// System events
	EventSnapshotPruned EventType = "system.snapshot_pruned"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Attendance Events
// ═══════════════════════════════════════════════════════════════════════════

// AttendanceRecordedEvent is emitted when an attendance check-in is appended.
type AttendanceRecordedEvent struct {
	BaseEvent
	StudentID string    `json:"student_id"`
	SubjectID string    `json:"subject_id"`
	Present   bool      `json:"present"`
	OnTime    bool      `json:"on_time"`
	CheckInAt time.Time `json:"check_in_at"`
}

// Payload implements Event interface.
func (e AttendanceRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":  e.StudentID,
		"subject_id":  e.SubjectID,
		"present":     e.Present,
		"on_time":     e.OnTime,
		"check_in_at": e.CheckInAt,
	}
}

// NewAttendanceRecordedEvent creates a new AttendanceRecordedEvent.
func NewAttendanceRecordedEvent(studentID, subjectID string, present, onTime bool, checkInAt time.Time) AttendanceRecordedEvent {
	return AttendanceRecordedEvent{
		BaseEvent: NewBaseEvent(EventAttendanceRecorded, studentID),
		StudentID: studentID,
		SubjectID: subjectID,
		Present:   present,
		OnTime:    onTime,
		CheckInAt: checkInAt,
	}
}

// StreakUpdatedEvent is emitted when a student's attendance streak grows.
type StreakUpdatedEvent struct {
	BaseEvent
	StudentID     string `json:"student_id"`
	CurrentStreak int    `json:"current_streak"`
	BestStreak    int    `json:"best_streak"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":     e.StudentID,
		"current_streak": e.CurrentStreak,
		"best_streak":    e.BestStreak,
	}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(studentID string, currentStreak, bestStreak int) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent:     NewBaseEvent(EventStreakUpdated, studentID),
		StudentID:     studentID,
		CurrentStreak: currentStreak,
		BestStreak:    bestStreak,
	}
}

// StreakBrokenEvent is emitted when a calendar-day gap resets a streak.
type StreakBrokenEvent struct {
	BaseEvent
	StudentID      string `json:"student_id"`
	PreviousStreak int    `json:"previous_streak"`
	DaysMissed     int    `json:"days_missed"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":      e.StudentID,
		"previous_streak": e.PreviousStreak,
		"days_missed":     e.DaysMissed,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(studentID string, previousStreak, daysMissed int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, studentID),
		StudentID:      studentID,
		PreviousStreak: previousStreak,
		DaysMissed:     daysMissed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent is emitted when a student gains XP.
type XPGainedEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	Amount    int    `json:"amount"`
	NewTotal  int    `json:"new_total"`
	Reason    string `json:"reason"` // e.g., "attendance", "challenge"
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"amount":     e.Amount,
		"new_total":  e.NewTotal,
		"reason":     e.Reason,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(studentID string, amount, newTotal int, reason string) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, studentID),
		StudentID: studentID,
		Amount:    amount,
		NewTotal:  newTotal,
		Reason:    reason,
	}
}

// LevelUpEvent is emitted when accumulated XP crosses a level threshold.
type LevelUpEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	OldLevel  int    `json:"old_level"`
	NewLevel  int    `json:"new_level"`
	TotalXP   int    `json:"total_xp"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"old_level":  e.OldLevel,
		"new_level":  e.NewLevel,
		"total_xp":   e.TotalXP,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(studentID string, oldLevel, newLevel, totalXP int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, studentID),
		StudentID: studentID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		TotalXP:   totalXP,
	}
}

// AchievementUnlockedEvent is emitted when an achievement condition is newly met.
type AchievementUnlockedEvent struct {
	BaseEvent
	StudentID     string    `json:"student_id"`
	AchievementID string    `json:"achievement_id"`
	Rarity        string    `json:"rarity"`
	EarnedAt      time.Time `json:"earned_at"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":     e.StudentID,
		"achievement_id": e.AchievementID,
		"rarity":         e.Rarity,
		"earned_at":      e.EarnedAt,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(studentID, achievementID, rarity string, earnedAt time.Time) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, studentID),
		StudentID:     studentID,
		AchievementID: achievementID,
		Rarity:        rarity,
		EarnedAt:      earnedAt,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Challenge Events
// ═══════════════════════════════════════════════════════════════════════════

// ChallengeSubmittedEvent is emitted when a challenge session is submitted.
type ChallengeSubmittedEvent struct {
	BaseEvent
	SessionID      string `json:"session_id"`
	StudentID      string `json:"student_id"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"total_questions"`
	XPAwarded      int    `json:"xp_awarded"`
}

// Payload implements Event interface.
func (e ChallengeSubmittedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":      e.SessionID,
		"student_id":      e.StudentID,
		"score":           e.Score,
		"total_questions": e.TotalQuestions,
		"xp_awarded":      e.XPAwarded,
	}
}

// NewChallengeSubmittedEvent creates a new ChallengeSubmittedEvent.
func NewChallengeSubmittedEvent(sessionID, studentID string, score, totalQuestions, xpAwarded int) ChallengeSubmittedEvent {
	return ChallengeSubmittedEvent{
		BaseEvent:      NewBaseEvent(EventChallengeSubmitted, sessionID),
		SessionID:      sessionID,
		StudentID:      studentID,
		Score:          score,
		TotalQuestions: totalQuestions,
		XPAwarded:      xpAwarded,
	}
}

// ChallengeExpiredEvent is emitted when a session is discovered past its deadline.
type ChallengeExpiredEvent struct {
	BaseEvent
	SessionID string    `json:"session_id"`
	StudentID string    `json:"student_id"`
	Deadline  time.Time `json:"deadline"`
}

// Payload implements Event interface.
func (e ChallengeExpiredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id": e.SessionID,
		"student_id": e.StudentID,
		"deadline":   e.Deadline,
	}
}

// NewChallengeExpiredEvent creates a new ChallengeExpiredEvent.
func NewChallengeExpiredEvent(sessionID, studentID string, deadline time.Time) ChallengeExpiredEvent {
	return ChallengeExpiredEvent{
		BaseEvent: NewBaseEvent(EventChallengeExpired, sessionID),
		SessionID: sessionID,
		StudentID: studentID,
		Deadline:  deadline,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Leaderboard Events
// ═══════════════════════════════════════════════════════════════════════════

// RankChangedEvent is emitted when a student's rank changes between snapshots.
type RankChangedEvent struct {
	BaseEvent
	StudentID  string `json:"student_id"`
	OldRank    int    `json:"old_rank"`
	NewRank    int    `json:"new_rank"`
	RankChange int    `json:"rank_change"` // Positive = moved up, Negative = moved down
	Period     string `json:"period"`
}

// Payload implements Event interface.
func (e RankChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":  e.StudentID,
		"old_rank":    e.OldRank,
		"new_rank":    e.NewRank,
		"rank_change": e.RankChange,
		"period":      e.Period,
	}
}

// NewRankChangedEvent creates a new RankChangedEvent.
func NewRankChangedEvent(studentID string, oldRank, newRank int, period string) RankChangedEvent {
	return RankChangedEvent{
		BaseEvent:  NewBaseEvent(EventRankChanged, studentID),
		StudentID:  studentID,
		OldRank:    oldRank,
		NewRank:    newRank,
		RankChange: oldRank - newRank,
		Period:     period,
	}
}

// LeaderboardRebuiltEvent is emitted after a snapshot rebuild completes.
type LeaderboardRebuiltEvent struct {
	BaseEvent
	SnapshotID    string `json:"snapshot_id"`
	Period        string `json:"period"`
	TotalStudents int    `json:"total_students"`
	RankChanges   int    `json:"rank_changes"`
}

// Payload implements Event interface.
func (e LeaderboardRebuiltEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"snapshot_id":    e.SnapshotID,
		"period":         e.Period,
		"total_students": e.TotalStudents,
		"rank_changes":   e.RankChanges,
	}
}

// NewLeaderboardRebuiltEvent creates a new LeaderboardRebuiltEvent.
func NewLeaderboardRebuiltEvent(snapshotID, period string, totalStudents, rankChanges int) LeaderboardRebuiltEvent {
	return LeaderboardRebuiltEvent{
		BaseEvent:     NewBaseEvent(EventLeaderboardRebuilt, snapshotID),
		SnapshotID:    snapshotID,
		Period:        period,
		TotalStudents: totalStudents,
		RankChanges:   rankChanges,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Study Group Events
// ═══════════════════════════════════════════════════════════════════════════

// GroupMembershipEvent is emitted on join and leave.
type GroupMembershipEvent struct {
	BaseEvent
	GroupID     string `json:"group_id"`
	StudentID   string `json:"student_id"`
	MemberCount int    `json:"member_count"`
	Capacity    int    `json:"capacity"`
}

// Payload implements Event interface.
func (e GroupMembershipEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"group_id":     e.GroupID,
		"student_id":   e.StudentID,
		"member_count": e.MemberCount,
		"capacity":     e.Capacity,
	}
}

// NewGroupMemberJoinedEvent creates a membership event for a join.
func NewGroupMemberJoinedEvent(groupID, studentID string, memberCount, capacity int) GroupMembershipEvent {
	return GroupMembershipEvent{
		BaseEvent:   NewBaseEvent(EventGroupMemberJoined, groupID),
		GroupID:     groupID,
		StudentID:   studentID,
		MemberCount: memberCount,
		Capacity:    capacity,
	}
}

// NewGroupMemberLeftEvent creates a membership event for a leave.
func NewGroupMemberLeftEvent(groupID, studentID string, memberCount, capacity int) GroupMembershipEvent {
	return GroupMembershipEvent{
		BaseEvent:   NewBaseEvent(EventGroupMemberLeft, groupID),
		GroupID:     groupID,
		StudentID:   studentID,
		MemberCount: memberCount,
		Capacity:    capacity,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// System Events
// ═══════════════════════════════════════════════════════════════════════════

// SnapshotPrunedEvent is emitted when old leaderboard snapshots are removed.
type SnapshotPrunedEvent struct {
	BaseEvent
	Removed int       `json:"removed"`
	Cutoff  time.Time `json:"cutoff"`
}

// Payload implements Event interface.
func (e SnapshotPrunedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"removed": e.Removed,
		"cutoff":  e.Cutoff,
	}
}

// NewSnapshotPrunedEvent creates a new SnapshotPrunedEvent.
func NewSnapshotPrunedEvent(removed int, cutoff time.Time) SnapshotPrunedEvent {
	return SnapshotPrunedEvent{
		BaseEvent: NewBaseEvent(EventSnapshotPruned, "leaderboard"),
		Removed:   removed,
		Cutoff:    cutoff,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
