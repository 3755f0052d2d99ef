// Package studygroup содержит доменную модель каталога учебных групп:
// поиск по фильтрам, вступление с контролем вместимости и выход.
package studygroup

import (
	"strings"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Level представляет уровень группы.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// IsValid проверяет, что уровень известен.
func (l Level) IsValid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDY GROUP
// ══════════════════════════════════════════════════════════════════════════════

// StudyGroup представляет учебную группу с ограниченной вместимостью.
type StudyGroup struct {
	// ID - идентификатор группы.
	ID shared.GroupID

	// Name - название группы.
	Name string

	// Subject - предмет, вокруг которого собралась группа.
	Subject string

	// Description - описание группы.
	Description string

	// Capacity - максимальное количество участников.
	Capacity int

	// Members - текущие участники.
	Members []shared.StudentID

	// Schedule - расписание встреч в свободной форме ("Вт/Чт 18:00").
	Schedule string

	// Location - место встреч (аудитория или ссылка для онлайна).
	Location string

	// Level - уровень группы.
	Level Level

	// IsOnline - встречается ли группа онлайн.
	IsOnline bool

	// Tags - теги для поиска.
	Tags []string
}

// Validate проверяет корректность группы.
func (g *StudyGroup) Validate() error {
	if !g.ID.IsValid() || g.Name == "" || g.Subject == "" {
		return shared.ErrInvalidGroup
	}
	if g.Capacity <= 0 {
		return shared.ErrInvalidGroup
	}
	if g.Level != "" && !g.Level.IsValid() {
		return shared.ErrInvalidGroup
	}
	return nil
}

// IsFull возвращает true, если свободных мест нет.
func (g *StudyGroup) IsFull() bool {
	return len(g.Members) >= g.Capacity
}

// HasMember проверяет, состоит ли студент в группе.
func (g *StudyGroup) HasMember(studentID shared.StudentID) bool {
	for _, m := range g.Members {
		if m == studentID {
			return true
		}
	}
	return false
}

// AddMember добавляет участника. Проверка членства и вместимости и сама
// вставка - одна операция: вызывающая сторона обязана держать группу
// под блокировкой на время вызова.
func (g *StudyGroup) AddMember(studentID shared.StudentID) error {
	if g.HasMember(studentID) {
		return shared.ErrAlreadyMember
	}
	if g.IsFull() {
		return shared.ErrCapacityExceeded
	}
	g.Members = append(g.Members, studentID)
	return nil
}

// RemoveMember удаляет участника.
func (g *StudyGroup) RemoveMember(studentID shared.StudentID) error {
	for i, m := range g.Members {
		if m == studentID {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotAMember
}

// Clone создаёт глубокую копию группы.
func (g *StudyGroup) Clone() *StudyGroup {
	if g == nil {
		return nil
	}
	clone := *g
	clone.Members = append([]shared.StudentID(nil), g.Members...)
	clone.Tags = append([]string(nil), g.Tags...)
	return &clone
}

// ══════════════════════════════════════════════════════════════════════════════
// SEARCH FILTER
// ══════════════════════════════════════════════════════════════════════════════

// Filter описывает критерии поиска групп. Заданные критерии объединяются
// по И; незаданные не ограничивают результат.
type Filter struct {
	// Text - подстрока, искомая без учёта регистра в названии,
	// предмете и тегах.
	Text string

	// Level - фильтр по уровню группы.
	Level Level

	// OnlineOnly - только онлайн-группы.
	OnlineOnly bool
}

// Matches проверяет, подходит ли группа под фильтр.
func (f Filter) Matches(g *StudyGroup) bool {
	if f.Level != "" && g.Level != f.Level {
		return false
	}
	if f.OnlineOnly && !g.IsOnline {
		return false
	}
	if f.Text != "" {
		needle := strings.ToLower(f.Text)
		if !strings.Contains(strings.ToLower(g.Name), needle) &&
			!strings.Contains(strings.ToLower(g.Subject), needle) &&
			!matchesTag(g.Tags, needle) {
			return false
		}
	}
	return true
}

func matchesTag(tags []string, needle string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}
