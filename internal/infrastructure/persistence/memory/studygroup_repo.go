package memory

import (
	"context"
	"sync"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
	"github.com/campus-pulse/engagement-hub/internal/domain/studygroup"
)

// StudyGroupRepo хранит учебные группы в памяти процесса.
//
// Update выполняет мутацию под блокировкой хранилища по схеме
// clone → fn → commit: состязание за последнее место разрешается
// атомарно, и ровно один участник успевает его занять.
type StudyGroupRepo struct {
	mu     sync.RWMutex
	groups map[shared.GroupID]*studygroup.StudyGroup
}

// NewStudyGroupRepo создаёт пустой репозиторий.
func NewStudyGroupRepo() *StudyGroupRepo {
	return &StudyGroupRepo{groups: make(map[shared.GroupID]*studygroup.StudyGroup)}
}

// Save реализует studygroup.Repository.
func (r *StudyGroupRepo) Save(_ context.Context, group *studygroup.StudyGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[group.ID] = group.Clone()
	return nil
}

// Find реализует studygroup.Repository.
func (r *StudyGroupRepo) Find(_ context.Context, id shared.GroupID) (*studygroup.StudyGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	group, ok := r.groups[id]
	if !ok {
		return nil, shared.ErrUnknownGroup
	}
	return group.Clone(), nil
}

// All реализует studygroup.Repository.
func (r *StudyGroupRepo) All(_ context.Context) ([]*studygroup.StudyGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*studygroup.StudyGroup, 0, len(r.groups))
	for _, group := range r.groups {
		out = append(out, group.Clone())
	}
	return out, nil
}

// Update реализует studygroup.Repository. Если fn возвращает ошибку,
// состояние группы не меняется.
func (r *StudyGroupRepo) Update(_ context.Context, id shared.GroupID, fn func(*studygroup.StudyGroup) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.groups[id]
	if !ok {
		return shared.ErrUnknownGroup
	}
	working := group.Clone()
	if err := fn(working); err != nil {
		return err
	}
	r.groups[id] = working
	return nil
}
