package leaderboard

import (
	"fmt"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot представляет состояние рейтинга в определённый момент времени.
// Снапшоты используются для:
// 1. Отслеживания изменений позиций (RankChange)
// 2. Аналитики и истории
// 3. Быстрого чтения (CQRS Read Model)
//
// Снапшот неизменяем после создания и безопасен для конкурентного чтения.
type Snapshot struct {
	// ID - уникальный идентификатор снапшота.
	ID string

	// Period - окно рейтинга, для которого создан снапшот.
	Period Period

	// SnapshotAt - время создания снапшота.
	SnapshotAt time.Time

	// TotalStudents - количество студентов в снапшоте.
	TotalStudents int

	// Entries - записи рейтинга, отсортированные по рангу.
	Entries []*Entry

	// byID - индекс для быстрого поиска по ID.
	byID map[shared.StudentID]*Entry
}

// NewSnapshot создаёт снапшот из отсортированного Ranking.
func NewSnapshot(id string, period Period, ranking *Ranking, at time.Time) *Snapshot {
	entries := ranking.All()
	byID := make(map[shared.StudentID]*Entry, len(entries))
	for _, entry := range entries {
		byID[entry.StudentID] = entry
	}
	return &Snapshot{
		ID:            id,
		Period:        period,
		SnapshotAt:    at.UTC(),
		TotalStudents: len(entries),
		Entries:       entries,
		byID:          byID,
	}
}

// GetByID возвращает запись по ID студента.
func (s *Snapshot) GetByID(studentID shared.StudentID) *Entry {
	if s.byID == nil {
		return nil
	}
	return s.byID[studentID]
}

// GetRank возвращает ранг студента. 0, если студент не найден.
func (s *Snapshot) GetRank(studentID shared.StudentID) Rank {
	entry := s.GetByID(studentID)
	if entry == nil {
		return 0
	}
	return entry.Rank
}

// Top возвращает топ-N записей.
func (s *Snapshot) Top(n int) []*Entry {
	if n <= 0 {
		return nil
	}
	if n > len(s.Entries) {
		n = len(s.Entries)
	}
	result := make([]*Entry, n)
	copy(result, s.Entries[:n])
	return result
}

// Page возвращает страницу рейтинга. page начинается с 1.
func (s *Snapshot) Page(page, pageSize int) []*Entry {
	if page < 1 || pageSize <= 0 {
		return nil
	}
	from := (page - 1) * pageSize
	to := from + pageSize
	if from >= len(s.Entries) {
		return nil
	}
	if to > len(s.Entries) {
		to = len(s.Entries)
	}
	result := make([]*Entry, to-from)
	copy(result, s.Entries[from:to])
	return result
}

// Neighbors возвращает соседей студента по рангу (±rangeSize),
// включая самого студента.
func (s *Snapshot) Neighbors(studentID shared.StudentID, rangeSize int) []*Entry {
	entry := s.GetByID(studentID)
	if entry == nil {
		return nil
	}
	idx := int(entry.Rank) - 1
	from := idx - rangeSize
	to := idx + rangeSize + 1
	if from < 0 {
		from = 0
	}
	if to > len(s.Entries) {
		to = len(s.Entries)
	}
	result := make([]*Entry, to-from)
	copy(result, s.Entries[from:to])
	return result
}

// IsEmpty возвращает true, если снапшот пуст.
func (s *Snapshot) IsEmpty() bool {
	return len(s.Entries) == 0
}

// Contains проверяет, есть ли студент в снапшоте.
func (s *Snapshot) Contains(studentID shared.StudentID) bool {
	return s.GetByID(studentID) != nil
}

// RebuildIndex перестраивает внутренний индекс byID.
// Используется после десериализации из БД.
func (s *Snapshot) RebuildIndex() {
	s.byID = make(map[shared.StudentID]*Entry, len(s.Entries))
	for _, entry := range s.Entries {
		s.byID[entry.StudentID] = entry
	}
}

// String возвращает строковое представление для логирования.
func (s *Snapshot) String() string {
	return fmt.Sprintf("Snapshot{ID: %s, Period: %s, Students: %d, At: %s}",
		s.ID, s.Period, s.TotalStudents, s.SnapshotAt.Format(time.RFC3339))
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT DIFF
// ══════════════════════════════════════════════════════════════════════════════

// Diff представляет различия между двумя снапшотами. Используется для
// проставления RankChange и генерации событий об изменении позиций.
type Diff struct {
	// Old - предыдущий снапшот (nil, если его не было).
	Old *Snapshot

	// New - новый снапшот.
	New *Snapshot

	// RankChanges - карта изменений рангов (studentID -> RankChange).
	RankChanges map[shared.StudentID]RankChange

	// NewEntries - студенты, которых не было в старом снапшоте.
	NewEntries []*Entry

	// RemovedEntries - студенты, выпавшие из рейтинга.
	RemovedEntries []*Entry
}

// CalculateDiff вычисляет разницу между двумя снапшотами и проставляет
// RankChange в записях нового. oldSnapshot может быть nil - тогда дельты
// всех записей помечаются недоступными (direction "new"), а не нулевыми.
func CalculateDiff(oldSnapshot, newSnapshot *Snapshot) *Diff {
	diff := &Diff{
		Old:         oldSnapshot,
		New:         newSnapshot,
		RankChanges: make(map[shared.StudentID]RankChange),
	}
	if newSnapshot == nil {
		return diff
	}

	if oldSnapshot == nil || oldSnapshot.IsEmpty() {
		for _, entry := range newSnapshot.Entries {
			entry.ChangeKnown = false
			diff.NewEntries = append(diff.NewEntries, entry)
		}
		return diff
	}

	for _, newEntry := range newSnapshot.Entries {
		oldEntry := oldSnapshot.GetByID(newEntry.StudentID)
		if oldEntry == nil {
			newEntry.ChangeKnown = false
			diff.NewEntries = append(diff.NewEntries, newEntry)
			continue
		}
		// Положительное значение = поднялся (был 10, стал 5 = +5).
		change := RankChange(int(oldEntry.Rank) - int(newEntry.Rank))
		newEntry.RankChange = change
		newEntry.ChangeKnown = true
		diff.RankChanges[newEntry.StudentID] = change
	}

	for _, oldEntry := range oldSnapshot.Entries {
		if !newSnapshot.Contains(oldEntry.StudentID) {
			diff.RemovedEntries = append(diff.RemovedEntries, oldEntry)
		}
	}
	return diff
}

// Moved возвращает студентов с ненулевым изменением ранга.
func (d *Diff) Moved() []shared.StudentID {
	result := make([]shared.StudentID, 0)
	for studentID, change := range d.RankChanges {
		if change != 0 {
			result = append(result, studentID)
		}
	}
	return result
}

// HasChanges возвращает true, если есть какие-либо изменения.
func (d *Diff) HasChanges() bool {
	return len(d.RankChanges) > 0 || len(d.NewEntries) > 0 || len(d.RemovedEntries) > 0
}
