package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

var snapAt = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func at(h int) time.Time {
	return time.Date(2025, 3, 9, h, 0, 0, 0, time.UTC)
}

func TestBuildSnapshot_OrdersByXPDescending(t *testing.T) {
	scores := []Score{
		{StudentID: "a", XP: 100, AttainedAt: at(1)},
		{StudentID: "b", XP: 300, AttainedAt: at(2)},
		{StudentID: "c", XP: 200, AttainedAt: at(3)},
	}

	snapshot, _, err := BuildSnapshot("snap-1", PeriodAllTime, scores, nil, snapAt)
	require.NoError(t, err)

	assert.Equal(t, Rank(1), snapshot.GetRank("b"))
	assert.Equal(t, Rank(2), snapshot.GetRank("c"))
	assert.Equal(t, Rank(3), snapshot.GetRank("a"))
}

func TestBuildSnapshot_TieBrokenByEarliestAttainment(t *testing.T) {
	// A и B с одинаковым XP; A набрал сумму раньше и стоит выше,
	// независимо от порядка на входе.
	scores := []Score{
		{StudentID: "b", XP: 500, AttainedAt: at(12)},
		{StudentID: "a", XP: 500, AttainedAt: at(9)},
	}

	snapshot, _, err := BuildSnapshot("snap-1", PeriodAllTime, scores, nil, snapAt)
	require.NoError(t, err)

	assert.Equal(t, Rank(1), snapshot.GetRank("a"))
	assert.Equal(t, Rank(2), snapshot.GetRank("b"))

	// Ранги образуют полный порядок 1..N, общих рангов нет.
	for i, entry := range snapshot.Entries {
		assert.Equal(t, Rank(i+1), entry.Rank)
	}
}

func TestBuildSnapshot_FullTieKeepsRecordOrder(t *testing.T) {
	// Полная ничья (XP и AttainedAt совпадают): сохраняется порядок
	// записей, а не порядок идентификаторов.
	scores := []Score{
		{StudentID: "zoe", XP: 500, AttainedAt: at(9)},
		{StudentID: "abe", XP: 500, AttainedAt: at(9)},
	}

	snapshot, _, err := BuildSnapshot("snap-1", PeriodAllTime, scores, nil, snapAt)
	require.NoError(t, err)

	assert.Equal(t, Rank(1), snapshot.GetRank("zoe"))
	assert.Equal(t, Rank(2), snapshot.GetRank("abe"))
}

func TestBuildSnapshot_DeltaUnavailableWithoutPrevious(t *testing.T) {
	scores := []Score{
		{StudentID: "a", XP: 100, AttainedAt: at(1)},
		{StudentID: "b", XP: 200, AttainedAt: at(2)},
	}

	snapshot, diff, err := BuildSnapshot("snap-1", PeriodAllTime, scores, nil, snapAt)
	require.NoError(t, err)
	assert.Len(t, diff.NewEntries, 2)

	for _, entry := range snapshot.Entries {
		assert.Equal(t, RankDirectionNew, entry.Direction())
		assert.False(t, entry.ChangeKnown)
	}
}

func TestBuildSnapshot_DeltasAgainstPreviousSnapshot(t *testing.T) {
	first := []Score{
		{StudentID: "a", XP: 300, AttainedAt: at(1)},
		{StudentID: "b", XP: 200, AttainedAt: at(2)},
		{StudentID: "c", XP: 100, AttainedAt: at(3)},
	}
	prev, _, err := BuildSnapshot("snap-1", PeriodAllTime, first, nil, snapAt)
	require.NoError(t, err)

	// C обгоняет всех; D появляется впервые.
	second := []Score{
		{StudentID: "a", XP: 300, AttainedAt: at(1)},
		{StudentID: "b", XP: 200, AttainedAt: at(2)},
		{StudentID: "c", XP: 500, AttainedAt: at(5)},
		{StudentID: "d", XP: 50, AttainedAt: at(6)},
	}
	snapshot, diff, err := BuildSnapshot("snap-2", PeriodAllTime, second, prev, snapAt.Add(time.Hour))
	require.NoError(t, err)

	c := snapshot.GetByID("c")
	require.NotNil(t, c)
	assert.Equal(t, Rank(1), c.Rank)
	assert.Equal(t, RankChange(2), c.RankChange)
	assert.Equal(t, RankDirectionUp, c.Direction())

	a := snapshot.GetByID("a")
	assert.Equal(t, RankChange(-1), a.RankChange)
	assert.Equal(t, RankDirectionDown, a.Direction())

	d := snapshot.GetByID("d")
	assert.Equal(t, RankDirectionNew, d.Direction())
	require.Len(t, diff.NewEntries, 1)
	assert.Equal(t, shared.StudentID("d"), diff.NewEntries[0].StudentID)
}

func TestBuildSnapshot_RejectsInvalidPeriod(t *testing.T) {
	_, _, err := BuildSnapshot("snap-1", Period("monthly"), nil, nil, snapAt)
	assert.ErrorIs(t, err, shared.ErrInvalidPeriod)
}

func TestBuildSnapshot_RejectsDuplicateStudent(t *testing.T) {
	scores := []Score{
		{StudentID: "a", XP: 100},
		{StudentID: "a", XP: 200},
	}
	_, _, err := BuildSnapshot("snap-1", PeriodAllTime, scores, nil, snapAt)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestSnapshot_PageAndNeighbors(t *testing.T) {
	scores := make([]Score, 0, 10)
	for i := 0; i < 10; i++ {
		scores = append(scores, Score{
			StudentID:  shared.StudentID(string(rune('a' + i))),
			XP:         shared.XP(1000 - i*100),
			AttainedAt: at(i + 1),
		})
	}
	snapshot, _, err := BuildSnapshot("snap-1", PeriodWeekly, scores, nil, snapAt)
	require.NoError(t, err)

	page := snapshot.Page(2, 3)
	require.Len(t, page, 3)
	assert.Equal(t, Rank(4), page[0].Rank)

	neighbors := snapshot.Neighbors("e", 1)
	require.Len(t, neighbors, 3)
	assert.Equal(t, shared.StudentID("d"), neighbors[0].StudentID)
	assert.Equal(t, shared.StudentID("e"), neighbors[1].StudentID)
	assert.Equal(t, shared.StudentID("f"), neighbors[2].StudentID)

	assert.Nil(t, snapshot.Page(5, 3))
	assert.Nil(t, snapshot.Neighbors("zz", 1))
}

func TestPeriod_WindowStart(t *testing.T) {
	now := time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC) // среда

	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), PeriodDaily.WindowStart(now))
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), PeriodWeekly.WindowStart(now))
	assert.True(t, PeriodAllTime.WindowStart(now).IsZero())
}
