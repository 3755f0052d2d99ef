package studygroup

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

type fakeGroupRepo struct {
	mu     sync.Mutex
	groups map[shared.GroupID]*StudyGroup
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{groups: make(map[shared.GroupID]*StudyGroup)}
}

func (r *fakeGroupRepo) Save(_ context.Context, group *StudyGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[group.ID] = group.Clone()
	return nil
}

func (r *fakeGroupRepo) Find(_ context.Context, id shared.GroupID) (*StudyGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return nil, shared.ErrUnknownGroup
	}
	return g.Clone(), nil
}

func (r *fakeGroupRepo) All(_ context.Context) ([]*StudyGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*StudyGroup, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g.Clone())
	}
	return out, nil
}

func (r *fakeGroupRepo) Update(_ context.Context, id shared.GroupID, fn func(*StudyGroup) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return shared.ErrUnknownGroup
	}
	cp := g.Clone()
	if err := fn(cp); err != nil {
		return err
	}
	r.groups[id] = cp
	return nil
}

func seedGroups(t *testing.T, repo Repository) {
	t.Helper()
	groups := []*StudyGroup{
		{ID: "g1", Name: "Алгоритмы по вторникам", Subject: "Algorithms", Capacity: 12, Level: LevelIntermediate, Tags: []string{"graphs", "dp"}},
		{ID: "g2", Name: "SQL для начинающих", Subject: "Databases", Capacity: 8, Level: LevelBeginner, IsOnline: true, Tags: []string{"sql"}},
		{ID: "g3", Name: "Сети продвинутый", Subject: "Networking", Capacity: 6, Level: LevelAdvanced, IsOnline: true},
	}
	for _, g := range groups {
		require.NoError(t, repo.Save(context.Background(), g))
	}
}

func TestDirectory_SearchFiltersAreANDed(t *testing.T) {
	repo := newFakeGroupRepo()
	seedGroups(t, repo)
	dir := NewDirectory(repo)
	ctx := context.Background()

	all, err := dir.Search(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	online, err := dir.Search(ctx, Filter{OnlineOnly: true})
	require.NoError(t, err)
	assert.Len(t, online, 2)

	onlineBeginner, err := dir.Search(ctx, Filter{OnlineOnly: true, Level: LevelBeginner})
	require.NoError(t, err)
	require.Len(t, onlineBeginner, 1)
	assert.Equal(t, shared.GroupID("g2"), onlineBeginner[0].ID)

	byTag, err := dir.Search(ctx, Filter{Text: "SQL"})
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, shared.GroupID("g2"), byTag[0].ID)

	none, err := dir.Search(ctx, Filter{Text: "sql", Level: LevelAdvanced})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDirectory_SearchReturnsIndependentCopies(t *testing.T) {
	repo := newFakeGroupRepo()
	seedGroups(t, repo)
	dir := NewDirectory(repo)
	ctx := context.Background()

	first, err := dir.Search(ctx, Filter{})
	require.NoError(t, err)
	first[0].Members = append(first[0].Members, "intruder")

	second, err := dir.Search(ctx, Filter{})
	require.NoError(t, err)
	for _, g := range second {
		assert.Empty(t, g.Members)
	}
}

func TestDirectory_JoinAndLeave(t *testing.T) {
	repo := newFakeGroupRepo()
	seedGroups(t, repo)
	dir := NewDirectory(repo)
	ctx := context.Background()

	require.NoError(t, dir.Join(ctx, "g1", "s1"))

	err := dir.Join(ctx, "g1", "s1")
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	err = dir.Join(ctx, "missing", "s1")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, dir.Leave(ctx, "g1", "s1"))

	err = dir.Leave(ctx, "g1", "s1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDirectory_JoinFullGroup(t *testing.T) {
	repo := newFakeGroupRepo()
	group := &StudyGroup{ID: "full", Name: "Полная группа", Subject: "Math", Capacity: 12}
	for i := 0; i < 12; i++ {
		group.Members = append(group.Members, shared.StudentID(string(rune('a'+i))))
	}
	require.NoError(t, repo.Save(context.Background(), group))
	dir := NewDirectory(repo)

	err := dir.Join(context.Background(), "full", "late")
	assert.ErrorIs(t, err, shared.ErrCapacityReached)

	got, findErr := dir.Get(context.Background(), "full")
	require.NoError(t, findErr)
	assert.Len(t, got.Members, 12)
}

func TestDirectory_ConcurrentJoinLastSeat(t *testing.T) {
	repo := newFakeGroupRepo()
	group := &StudyGroup{ID: "g", Name: "Одно место", Subject: "Go", Capacity: 1}
	require.NoError(t, repo.Save(context.Background(), group))
	dir := NewDirectory(repo)

	const contenders = 20
	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = dir.Join(context.Background(), "g", shared.StudentID(string(rune('a'+i))))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, shared.ErrCapacityReached)
		}
	}
	assert.Equal(t, 1, succeeded)

	got, err := dir.Get(context.Background(), "g")
	require.NoError(t, err)
	assert.Len(t, got.Members, 1)
}

func TestStudyGroup_Validate(t *testing.T) {
	valid := &StudyGroup{ID: "g", Name: "n", Subject: "s", Capacity: 5, Level: LevelBeginner}
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&StudyGroup{Name: "n", Subject: "s", Capacity: 5}).Validate())
	assert.Error(t, (&StudyGroup{ID: "g", Name: "n", Subject: "s", Capacity: 0}).Validate())
	assert.Error(t, (&StudyGroup{ID: "g", Name: "n", Subject: "s", Capacity: 5, Level: "expert"}).Validate())
}
