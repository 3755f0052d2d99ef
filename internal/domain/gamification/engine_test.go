package gamification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

type fakeRepo struct {
	mu           sync.Mutex
	ledgers      map[shared.StudentID]*XPLedger
	achievements map[shared.StudentID][]Achievement
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		ledgers:      make(map[shared.StudentID]*XPLedger),
		achievements: make(map[shared.StudentID][]Achievement),
	}
}

func (r *fakeRepo) FindLedger(_ context.Context, studentID shared.StudentID) (*XPLedger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.ledgers[studentID]
	if !ok {
		return nil, shared.ErrLedgerNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *fakeRepo) SaveLedger(_ context.Context, ledger *XPLedger) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ledger
	r.ledgers[ledger.StudentID] = &cp
	return nil
}

func (r *fakeRepo) AllLedgers(_ context.Context) ([]*XPLedger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*XPLedger, 0, len(r.ledgers))
	for _, l := range r.ledgers {
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeRepo) Achievements(_ context.Context, studentID shared.StudentID) ([]Achievement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Achievement(nil), r.achievements[studentID]...), nil
}

func (r *fakeRepo) SaveAchievement(_ context.Context, studentID shared.StudentID, a Achievement) error {
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

type staticStats struct {
	ctx EvaluationContext
}

func (s staticStats) Evaluation(context.Context, shared.StudentID) (EvaluationContext, error) {
	return s.ctx, nil
}

func newTestEngine(t *testing.T, repo Repository, stats StatsSource, thresholds Thresholds) *Engine {
	t.Helper()
	engine, err := NewEngine(repo, stats, thresholds, &shared.FixedClock{Instant: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	return engine
}

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
	assert.Error(t, Thresholds{}.Validate())
	assert.Error(t, Thresholds{100, 200}.Validate())    // не начинается с нуля
	assert.Error(t, Thresholds{0, 500, 500}.Validate()) // не строго возрастает
}

func TestThresholds_LevelFor(t *testing.T) {
	thresholds := Thresholds{0, 1000, 2500, 4500}

	tests := []struct {
		xp    shared.XP
		level int
	}{
		{0, 1},
		{999, 1},
		{1000, 2},
		{2499, 2},
		{2500, 3},
		{4499, 3},
		{4500, 4},
		{99999, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.level, thresholds.LevelFor(tt.xp), "xp=%d", tt.xp)
	}
}

func TestEngine_AwardXPProgress(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(t, repo, staticStats{}, Thresholds{0, 1000, 2500, 4500})
	ctx := context.Background()

	result, err := engine.AwardXP(ctx, "s1", 2450, ReasonChallenge)
	require.NoError(t, err)
	assert.Equal(t, 1, result.OldLevel)
	assert.Equal(t, 2, result.NewLevel)
	assert.True(t, result.LeveledUp())

	progress, err := engine.Progress(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, progress.Level)
	assert.Equal(t, shared.XP(1450), progress.XPIntoLevel)
	assert.Equal(t, shared.XP(50), progress.XPToNextLevel)
	assert.False(t, progress.AtMaxLevel)
}

func TestEngine_ProgressAtMaxLevel(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(t, repo, staticStats{}, Thresholds{0, 1000})
	ctx := context.Background()

	_, err := engine.AwardXP(ctx, "s1", 5000, ReasonManual)
	require.NoError(t, err)

	progress, err := engine.Progress(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, progress.Level)
	assert.True(t, progress.AtMaxLevel)
	assert.Equal(t, shared.XP(0), progress.XPToNextLevel)
}

func TestEngine_ProgressWithoutLedger(t *testing.T) {
	engine := newTestEngine(t, newFakeRepo(), staticStats{}, nil)

	progress, err := engine.Progress(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 1, progress.Level)
	assert.Equal(t, shared.XP(0), progress.TotalXP)
}

func TestEngine_RejectsNonPositiveAmount(t *testing.T) {
	engine := newTestEngine(t, newFakeRepo(), staticStats{}, nil)

	_, err := engine.AwardXP(context.Background(), "s1", 0, ReasonManual)
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)

	_, err = engine.AwardXP(context.Background(), "s1", -100, ReasonManual)
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)
}

func TestEngine_UnlocksAchievementsOnce(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(t, repo, staticStats{ctx: EvaluationContext{CurrentStreak: 15}}, nil)
	ctx := context.Background()

	result, err := engine.AwardXP(ctx, "s1", 1200, ReasonAttendance)
	require.NoError(t, err)

	ids := make([]AchievementID, 0, len(result.Unlocked))
	for _, a := range result.Unlocked {
		ids = append(ids, a.ID)
	}
	assert.Contains(t, ids, AchievementStreakMaster)
	assert.Contains(t, ids, AchievementFirstThousand)

	// Повторное начисление не разблокирует те же достижения снова.
	result, err = engine.AwardXP(ctx, "s1", 100, ReasonAttendance)
	require.NoError(t, err)
	assert.Empty(t, result.Unlocked)

	earned, err := engine.Achievements(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, earned, 2)
}

func TestEngine_ConcurrentAwardsAreAtomic(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(t, repo, staticStats{}, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.AwardXP(ctx, "s1", 10, ReasonAttendance)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	progress, err := engine.Progress(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, shared.XP(500), progress.TotalXP)
}

func TestRarityColor(t *testing.T) {
	assert.Equal(t, "#f59e0b", RarityColor(RarityLegendary))
	assert.Equal(t, "#9ca3af", RarityColor(RarityCommon))
	assert.True(t, RarityEpic.IsValid())
	assert.False(t, Rarity("mythic").IsValid())
}
