package studygroup

import (
	"context"
	"sort"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY
// ══════════════════════════════════════════════════════════════════════════════

// Directory - каталог учебных групп: поиск, вступление, выход.
type Directory struct {
	repo Repository
}

// NewDirectory создаёт каталог над хранилищем групп.
func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

// Search возвращает группы, подходящие под фильтр, отсортированные по
// названию. Каждый вызов возвращает свежий срез копий: результат можно
// перебирать заново и менять, не трогая каталог.
func (d *Directory) Search(ctx context.Context, filter Filter) ([]*StudyGroup, error) {
	groups, err := d.repo.All(ctx)
	if err != nil {
		return nil, shared.WrapError("studygroup", "Search", shared.ErrExternalService, "group read failed", err)
	}

	result := make([]*StudyGroup, 0, len(groups))
	for _, g := range groups {
		if filter.Matches(g) {
			result = append(result, g.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Get возвращает копию группы по ID.
func (d *Directory) Get(ctx context.Context, id shared.GroupID) (*StudyGroup, error) {
	group, err := d.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	return group.Clone(), nil
}

// Join добавляет студента в группу. Проверка вместимости и вставка
// выполняются атомарно: при одновременной борьбе за последнее место
// ровно один вызов завершается успехом, остальные получают
// shared.ErrCapacityExceeded.
func (d *Directory) Join(ctx context.Context, groupID shared.GroupID, studentID shared.StudentID) error {
	if !studentID.IsValid() {
		return shared.WrapError("studygroup", "Join", shared.ErrInvalidID, "invalid student ID", nil)
	}
	return d.repo.Update(ctx, groupID, func(g *StudyGroup) error {
		return g.AddMember(studentID)
	})
}

// Leave удаляет студента из группы.
func (d *Directory) Leave(ctx context.Context, groupID shared.GroupID, studentID shared.StudentID) error {
	return d.repo.Update(ctx, groupID, func(g *StudyGroup) error {
		return g.RemoveMember(studentID)
	})
}
