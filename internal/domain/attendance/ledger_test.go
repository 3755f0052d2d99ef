package attendance

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// fakeStore is a minimal in-memory EventStore for domain tests. The full
// concurrent implementation lives in the memory persistence package.
type fakeStore struct {
	mu        sync.Mutex
	events    []Event
	readCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (s *fakeStore) add(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *fakeStore) Append(_ context.Context, e Event) error {
	s.add(e)
	return nil
}

func (s *fakeStore) LastTimestamp(_ context.Context, studentID shared.StudentID, subjectID shared.SubjectID) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last time.Time
	found := false
	for _, e := range s.events {
		if e.StudentID == studentID && e.SubjectID == subjectID && e.Timestamp.After(last) {
			last = e.Timestamp
			found = true
		}
	}
	return last, found, nil
}

func (s *fakeStore) EventsByStudent(_ context.Context, studentID shared.StudentID, subjectID shared.SubjectID) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readCalls++
	var out []Event
	for _, e := range s.events {
		if e.StudentID != studentID {
			continue
		}
		if subjectID != "" && e.SubjectID != subjectID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *fakeStore) CountByStudent(_ context.Context, studentID shared.StudentID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.StudentID == studentID {
			n++
		}
	}
	return n, nil
}

// allKnownRoster accepts every ID; denyRoster knows nothing.
type allKnownRoster struct{}

func (allKnownRoster) KnowsStudent(context.Context, shared.StudentID) (bool, error) { return true, nil }
func (allKnownRoster) KnowsSubject(context.Context, shared.SubjectID) (bool, error) { return true, nil }

type denyRoster struct{}

func (denyRoster) KnowsStudent(context.Context, shared.StudentID) (bool, error) { return false, nil }
func (denyRoster) KnowsSubject(context.Context, shared.SubjectID) (bool, error) { return false, nil }

func TestLedger_RecordAndSummarize(t *testing.T) {
	store := newFakeStore()
	ledger := NewLedger(store, allKnownRoster{})
	ctx := context.Background()

	// 4 of 5 sessions attended.
	for i := 0; i < 5; i++ {
		e, err := NewEvent("s1", "cs-201", day(1).Add(time.Duration(i)*time.Hour), i != 2)
		require.NoError(t, err)
		require.NoError(t, ledger.Record(ctx, e))
	}

	summary, err := ledger.Summary(ctx, "s1", "cs-201")
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Attended)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, shared.Percentage(80), summary.Percentage)
}

func TestLedger_SummaryAggregatesAcrossSubjects(t *testing.T) {
	store := newFakeStore()
	ledger := NewLedger(store, allKnownRoster{})
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, Event{StudentID: "s1", SubjectID: "cs-201", Timestamp: day(1), Present: true}))
	require.NoError(t, ledger.Record(ctx, Event{StudentID: "s1", SubjectID: "db-101", Timestamp: day(1), Present: false}))

	summary, err := ledger.Summary(ctx, "s1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Attended)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, shared.Percentage(50), summary.Percentage)
}

func TestLedger_SummaryEmpty(t *testing.T) {
	ledger := NewLedger(newFakeStore(), allKnownRoster{})

	summary, err := ledger.Summary(context.Background(), "nobody", "")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, shared.Percentage(0), summary.Percentage)
}

func TestLedger_RejectsOutOfOrderTimestamp(t *testing.T) {
	store := newFakeStore()
	ledger := NewLedger(store, allKnownRoster{})
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, Event{StudentID: "s1", SubjectID: "cs-201", Timestamp: day(2), Present: true}))

	// Equal timestamp: rejected.
	err := ledger.Record(ctx, Event{StudentID: "s1", SubjectID: "cs-201", Timestamp: day(2), Present: true})
	assert.ErrorIs(t, err, shared.ErrStaleTimestamp)

	// Earlier timestamp: rejected.
	err = ledger.Record(ctx, Event{StudentID: "s1", SubjectID: "cs-201", Timestamp: day(1), Present: true})
	assert.ErrorIs(t, err, shared.ErrStaleTimestamp)

	// Other subject is an independent sequence.
	err = ledger.Record(ctx, Event{StudentID: "s1", SubjectID: "db-101", Timestamp: day(1), Present: true})
	assert.NoError(t, err)

	count, err := store.CountByStudent(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLedger_RejectsUnknownRosterIDs(t *testing.T) {
	ledger := NewLedger(newFakeStore(), denyRoster{})

	err := ledger.Record(context.Background(), Event{StudentID: "ghost", SubjectID: "cs-201", Timestamp: day(1), Present: true})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLedger_RejectsMalformedEvent(t *testing.T) {
	ledger := NewLedger(newFakeStore(), allKnownRoster{})

	err := ledger.Record(context.Background(), Event{SubjectID: "cs-201", Timestamp: day(1)})
	assert.ErrorIs(t, err, shared.ErrValidation)

	err = ledger.Record(context.Background(), Event{StudentID: "s1", SubjectID: "cs-201"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestLedger_ConcurrentAppendsSameKeyStayOrdered(t *testing.T) {
	store := newFakeStore()
	ledger := NewLedger(store, allKnownRoster{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ts := day(1).Add(time.Duration(i) * time.Minute)
			_ = ledger.Record(ctx, Event{StudentID: "s1", SubjectID: "cs-201", Timestamp: ts, Present: true})
		}(i)
	}
	wg.Wait()

	// Whatever subset was accepted, the stored sequence must be strictly
	// increasing.
	events, err := store.EventsByStudent(ctx, "s1", "cs-201")
	require.NoError(t, err)
	for i := 1; i < len(events); i++ {
		assert.True(t, events[i].Timestamp.After(events[i-1].Timestamp))
	}
}
