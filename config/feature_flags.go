package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles and A/B testing.
// Supports gradual rollout, cohort targeting, and per-student overrides.
type FeatureFlags struct {
	mu sync.RWMutex

	// Core features
	features map[string]*Feature

	// Override rules (for testing/debugging)
	studentOverrides map[string]map[string]bool // studentID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Students are assigned based on hash of their ID
	RolloutPercent int

	// Cohort targeting (e.g., "2025-spring", "2025-fall")
	// Empty means all cohorts
	TargetCohorts []string

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time

	// A/B test variant (for experiments)
	Variants []string
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	StudentID string // Student identifier
	Cohort    string // Student cohort (e.g., "2025-spring")
	IsAdmin   bool   // Is admin user
}

// Predefined feature flag names.
const (
	// === Leaderboard Features ===
	FeatureLeaderboardRankChange = "leaderboard.rank_change" // Show rank changes (+2, -1)
	FeatureLeaderboardDaily      = "leaderboard.daily"       // Daily period board
	FeatureLeaderboardWeekly     = "leaderboard.weekly"      // Weekly period board
	FeatureLeaderboardViewerRank = "leaderboard.viewer_rank" // "Your position" block

	// === Attendance & Streak Features ===
	FeatureStreaks           = "attendance.streaks"        // Daily attendance streaks
	FeatureOnTimeBonus       = "attendance.on_time_bonus"  // Extra XP for punctuality
	FeatureAttendanceSummary = "attendance.subject_filter" // Per-subject summaries

	// === Gamification Features ===
	FeatureAchievements     = "gamification.achievements"  // Badges/achievements
	FeatureLevelUpEvents    = "gamification.level_up"      // Level-up notifications
	FeatureAttendanceReward = "gamification.attendance_xp" // XP for showing up

	// === Challenge Features ===
	FeatureChallenges       = "challenge.sessions"  // Timed quiz sessions
	FeatureChallengeCategories = "challenge.category" // Category-restricted draws
	FeatureChallengeRetakes = "challenge.retakes"   // Allow repeat sessions
	FeatureChallengeExpiry  = "challenge.expiry"    // Background expiry sweeps

	// === Study Group Features ===
	FeatureStudyGroups      = "studygroup.directory" // Group search and membership
	FeatureStudyGroupOnline = "studygroup.online"    // Online-only filter

	// === Experimental Features ===
	FeatureExperimentalAnalytics = "experimental.analytics" // Advanced analytics
	FeatureExperimentalWebhooks  = "experimental.webhooks"  // Real-time webhooks
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:         make(map[string]*Feature),
		studentOverrides: make(map[string]map[string]bool),
	}

	// Initialize all features with defaults
	ff.initializeDefaults()

	// Load overrides from environment
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	// Leaderboard features - mostly enabled by default
	ff.features[FeatureLeaderboardRankChange] = &Feature{
		Name:           FeatureLeaderboardRankChange,
		Description:    "Show rank changes in leaderboard",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLeaderboardDaily] = &Feature{
		Name:           FeatureLeaderboardDaily,
		Description:    "Daily leaderboard period",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLeaderboardWeekly] = &Feature{
		Name:           FeatureLeaderboardWeekly,
		Description:    "Weekly leaderboard period",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLeaderboardViewerRank] = &Feature{
		Name:           FeatureLeaderboardViewerRank,
		Description:    "Show the requesting student's own position",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Attendance features - core of the product
	ff.features[FeatureStreaks] = &Feature{
		Name:           FeatureStreaks,
		Description:    "Track daily attendance streaks",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureOnTimeBonus] = &Feature{
		Name:           FeatureOnTimeBonus,
		Description:    "Bonus XP for on-time check-ins",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureAttendanceSummary] = &Feature{
		Name:           FeatureAttendanceSummary,
		Description:    "Per-subject attendance summaries",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Gamification features
	ff.features[FeatureAchievements] = &Feature{
		Name:           FeatureAchievements,
		Description:    "Unlock achievements",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLevelUpEvents] = &Feature{
		Name:           FeatureLevelUpEvents,
		Description:    "Emit level-up events",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureAttendanceReward] = &Feature{
		Name:           FeatureAttendanceReward,
		Description:    "Award XP for recorded attendance",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Challenge features
	ff.features[FeatureChallenges] = &Feature{
		Name:           FeatureChallenges,
		Description:    "Timed quiz challenge sessions",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureChallengeCategories] = &Feature{
		Name:           FeatureChallengeCategories,
		Description:    "Category-restricted question draws",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureChallengeRetakes] = &Feature{
		Name:           FeatureChallengeRetakes,
		Description:    "Allow repeat challenge sessions",
		Enabled:        true,
		RolloutPercent: 50, // A/B test
	}

	ff.features[FeatureChallengeExpiry] = &Feature{
		Name:           FeatureChallengeExpiry,
		Description:    "Background expiry of overdue sessions",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Study group features
	ff.features[FeatureStudyGroups] = &Feature{
		Name:           FeatureStudyGroups,
		Description:    "Study group directory and membership",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureStudyGroupOnline] = &Feature{
		Name:           FeatureStudyGroupOnline,
		Description:    "Online-only group filter",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Experimental features - disabled by default
	ff.features[FeatureExperimentalAnalytics] = &Feature{
		Name:           FeatureExperimentalAnalytics,
		Description:    "Advanced analytics dashboard",
		Enabled:        false,
		RolloutPercent: 0,
	}

	ff.features[FeatureExperimentalWebhooks] = &Feature{
		Name:           FeatureExperimentalWebhooks,
		Description:    "Real-time webhook updates",
		Enabled:        false,
		RolloutPercent: 0,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_CHALLENGE_RETAKES=true
// Example: FEATURE_GAMIFICATION_ACHIEVEMENTS=50 (50% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "challenge.retakes" -> "FEATURE_CHALLENGE_RETAKES"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check student overrides first
	if ctx != nil && ctx.StudentID != "" {
		if overrides, ok := ff.studentOverrides[ctx.StudentID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Admin users get all features
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	// Check if feature is enabled at all
	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check cohort targeting
	if len(feature.TargetCohorts) > 0 && ctx != nil && ctx.Cohort != "" {
		cohortMatch := false
		for _, c := range feature.TargetCohorts {
			if c == ctx.Cohort {
				cohortMatch = true
				break
			}
		}
		if !cohortMatch {
			return false
		}
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.StudentID != "" {
		return ff.isInRollout(ctx.StudentID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a student is in the rollout percentage.
// Uses consistent hashing so students stay in their bucket.
func (ff *FeatureFlags) isInRollout(studentID, featureName string, percent int) bool {
	// Create a consistent hash for this student+feature combination
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(studentID))
	hash := h.Sum32()

	// Map to 0-99 range
	bucket := int(hash % 100)

	return bucket < percent
}

// GetVariant returns the A/B test variant for a student.
// Returns empty string if no variants defined or feature disabled.
func (ff *FeatureFlags) GetVariant(featureName string, ctx *FeatureContext) string {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok || !ff.IsEnabled(featureName, ctx) {
		return ""
	}

	if len(feature.Variants) == 0 {
		return ""
	}

	// Use consistent hashing to assign variant
	h := fnv.New32a()
	h.Write([]byte(featureName + "_variant"))
	h.Write([]byte(ctx.StudentID))
	hash := h.Sum32()

	variantIndex := int(hash % uint32(len(feature.Variants)))
	return feature.Variants[variantIndex]
}

// SetStudentOverride sets a feature override for a specific student.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetStudentOverride(studentID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.studentOverrides[studentID]; !ok {
		ff.studentOverrides[studentID] = make(map[string]bool)
	}
	ff.studentOverrides[studentID][featureName] = enabled
}

// ClearStudentOverrides removes all overrides for a student.
func (ff *FeatureFlags) ClearStudentOverrides(studentID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.studentOverrides, studentID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		// Return a copy
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Convenience methods for common checks ---

// GamificationEnabled checks if the XP loop is active.
func (ff *FeatureFlags) GamificationEnabled(ctx *FeatureContext) bool {
	return ff.IsEnabled(FeatureAttendanceReward, ctx) ||
		ff.IsEnabled(FeatureAchievements, ctx) ||
		ff.IsEnabled(FeatureLevelUpEvents, ctx)
}

// LeaderboardPeriodsEnabled returns which leaderboard periods are active.
func (ff *FeatureFlags) LeaderboardPeriodsEnabled(ctx *FeatureContext) (daily, weekly bool) {
	return ff.IsEnabled(FeatureLeaderboardDaily, ctx), ff.IsEnabled(FeatureLeaderboardWeekly, ctx)
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
