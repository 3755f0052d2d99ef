package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/engagement-hub/internal/domain/challenge"
	"github.com/campus-pulse/engagement-hub/internal/domain/gamification"
	"github.com/campus-pulse/engagement-hub/internal/domain/leaderboard"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/persistence/memory"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) byType(t shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type staticVersion int64

func (v staticVersion) Version() int64 { return int64(v) }

func seedLedger(t *testing.T, repo gamification.Repository, studentID string, xp shared.XP, at time.Time) {
	t.Helper()
	require.NoError(t, repo.SaveLedger(context.Background(), &gamification.XPLedger{
		StudentID:  shared.StudentID(studentID),
		TotalXP:    xp,
		Level:      1,
		AttainedAt: at,
	}))
}

func TestRebuildLeaderboardJob(t *testing.T) {
	now := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	clock := &shared.FixedClock{Instant: now}

	ledgers := memory.NewGamificationRepo()
	seedLedger(t, ledgers, "stud-1", 300, now.Add(-time.Hour))
	seedLedger(t, ledgers, "stud-2", 500, now.Add(-2*time.Hour))
	// Inactive this week: only ranks on the all-time board.
	seedLedger(t, ledgers, "stud-3", 900, now.AddDate(0, -1, 0))

	repo := memory.NewLeaderboardRepo()
	cache := memory.NewLeaderboardCache(clock)
	publisher := &capturingPublisher{}

	job := NewRebuildLeaderboardJob(ledgers, repo, cache, publisher, nil, clock, nil, DefaultRebuildLeaderboardConfig())
	require.NoError(t, job.Run(context.Background()))

	stats := job.LastRebuildStats()
	require.NotNil(t, stats)
	assert.Equal(t, 3, stats.SnapshotsCreated)
	assert.Equal(t, 3, stats.TotalStudents)

	allTime, err := repo.LatestSnapshot(context.Background(), leaderboard.PeriodAllTime)
	require.NoError(t, err)
	assert.Equal(t, 3, allTime.TotalStudents)
	assert.Equal(t, shared.StudentID("stud-3"), allTime.Entries[0].StudentID)

	daily, err := repo.LatestSnapshot(context.Background(), leaderboard.PeriodDaily)
	require.NoError(t, err)
	assert.Equal(t, 2, daily.TotalStudents)
	assert.Equal(t, shared.StudentID("stud-2"), daily.Entries[0].StudentID)

	assert.Len(t, publisher.byType(shared.EventLeaderboardRebuilt), 3)

	cached, err := cache.CachedTop(context.Background(), leaderboard.PeriodAllTime, 3)
	require.NoError(t, err)
	require.Len(t, cached, 3)
}

func TestRebuildLeaderboardJobPublishesRankChanges(t *testing.T) {
	now := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	clock := &shared.FixedClock{Instant: now}

	ledgers := memory.NewGamificationRepo()
	seedLedger(t, ledgers, "stud-1", 300, now)
	seedLedger(t, ledgers, "stud-2", 500, now)

	repo := memory.NewLeaderboardRepo()
	publisher := &capturingPublisher{}
	config := DefaultRebuildLeaderboardConfig()
	config.Periods = []leaderboard.Period{leaderboard.PeriodAllTime}

	job := NewRebuildLeaderboardJob(ledgers, repo, nil, publisher, nil, clock, nil, config)
	require.NoError(t, job.Run(context.Background()))

	// stud-1 overtakes stud-2.
	seedLedger(t, ledgers, "stud-1", 800, now)
	require.NoError(t, job.Run(context.Background()))

	changes := publisher.byType(shared.EventRankChanged)
	require.Len(t, changes, 2)
	for _, e := range changes {
		change, ok := e.(shared.RankChangedEvent)
		require.True(t, ok)
		switch change.StudentID {
		case "stud-1":
			assert.Equal(t, 2, change.OldRank)
			assert.Equal(t, 1, change.NewRank)
		case "stud-2":
			assert.Equal(t, 1, change.OldRank)
			assert.Equal(t, 2, change.NewRank)
		default:
			t.Fatalf("unexpected student %s", change.StudentID)
		}
	}
}

func TestRebuildLeaderboardJobSkipsWhenFresh(t *testing.T) {
	clock := &shared.FixedClock{Instant: time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)}
	ledgers := memory.NewGamificationRepo()
	repo := memory.NewLeaderboardRepo()

	job := NewRebuildLeaderboardJob(ledgers, repo, nil, nil, staticVersion(7), clock, nil, DefaultRebuildLeaderboardConfig())

	require.NoError(t, job.Run(context.Background()))
	first := job.LastRebuildStats()
	require.NotNil(t, first)
	assert.False(t, first.Skipped)

	// Version unchanged: the second run is a no-op.
	require.NoError(t, job.Run(context.Background()))
	second := job.LastRebuildStats()
	require.NotNil(t, second)
	assert.True(t, second.Skipped)
}

func TestExpireChallengesJob(t *testing.T) {
	start := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	questions := []challenge.Question{{
		ID:           "q1",
		Category:     challenge.CategoryGeneral,
		Difficulty:   challenge.DifficultyEasy,
		Prompt:       "What does the blank identifier discard?",
		Options:      []string{"a value", "a type"},
		CorrectIndex: 0,
	}}

	overdue, err := challenge.Start("stud-1", questions, 5*time.Minute, start, 10)
	require.NoError(t, err)
	running, err := challenge.Start("stud-2", questions, time.Hour, start, 10)
	require.NoError(t, err)

	store := memory.NewChallengeStore()
	require.NoError(t, store.Save(context.Background(), overdue))
	require.NoError(t, store.Save(context.Background(), running))

	clock := &shared.FixedClock{Instant: start.Add(10 * time.Minute)}
	publisher := &capturingPublisher{}

	job := NewExpireChallengesJob(store, publisher, clock, nil, DefaultExpireChallengesConfig())
	require.NoError(t, job.Run(context.Background()))

	stats := job.LastSweepStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.Scanned)
	assert.Equal(t, 1, stats.Expired)

	expired, err := store.Find(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, challenge.StateExpired, expired.State)

	stillActive, err := store.Find(context.Background(), running.ID)
	require.NoError(t, err)
	assert.Equal(t, challenge.StateActive, stillActive.State)

	assert.Len(t, publisher.byType(shared.EventChallengeExpired), 1)
}

func TestExpireChallengesJobEvictsOldTerminalSessions(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	questions := []challenge.Question{{
		ID:           "q1",
		Category:     challenge.CategoryGeneral,
		Difficulty:   challenge.DifficultyEasy,
		Prompt:       "Is nil a valid map read receiver?",
		Options:      []string{"yes", "no"},
		CorrectIndex: 0,
	}}

	session, err := challenge.Start("stud-1", questions, 5*time.Minute, start, 10)
	require.NoError(t, err)
	session.ExpireIfDue(start.Add(time.Hour))

	store := memory.NewChallengeStore()
	require.NoError(t, store.Save(context.Background(), session))

	clock := &shared.FixedClock{Instant: start.AddDate(0, 0, 3)}
	job := NewExpireChallengesJob(store, nil, clock, nil, DefaultExpireChallengesConfig())
	require.NoError(t, job.Run(context.Background()))

	stats := job.LastSweepStats()
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.Evicted)

	_, err = store.Find(context.Background(), session.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPruneSnapshotsJobKeepsLatestPerPeriod(t *testing.T) {
	now := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	clock := &shared.FixedClock{Instant: now}
	repo := memory.NewLeaderboardRepo()

	old, _, err := leaderboard.BuildSnapshot("snap-old", leaderboard.PeriodWeekly, nil, nil, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.NoError(t, repo.SaveSnapshot(context.Background(), old))
	fresh, _, err := leaderboard.BuildSnapshot("snap-new", leaderboard.PeriodWeekly, nil, old, now.AddDate(0, 0, -20))
	require.NoError(t, err)
	require.NoError(t, repo.SaveSnapshot(context.Background(), fresh))

	publisher := &capturingPublisher{}
	job := NewPruneSnapshotsJob(repo, publisher, clock, nil, 7*24*time.Hour)
	require.NoError(t, job.Run(context.Background()))

	// The newest weekly snapshot survives even though it is past retention.
	latest, err := repo.LatestSnapshot(context.Background(), leaderboard.PeriodWeekly)
	require.NoError(t, err)
	assert.Equal(t, "snap-new", latest.ID)

	assert.Len(t, publisher.byType(shared.EventSnapshotPruned), 1)
}
