// Package leaderboard содержит доменную модель рейтинга вовлечённости.
// Рейтинг - чистое вычисление над снимком XP-леджеров: сортировка,
// присвоение рангов и сравнение со старым снапшотом для дельт позиций.
package leaderboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Rank представляет позицию студента в рейтинге.
// Rank начинается с 1 (первое место).
type Rank int

// IsValid проверяет, что ранг положительный.
func (r Rank) IsValid() bool {
	return r > 0
}

// IsTop10 возвращает true, если студент в топ-10.
func (r Rank) IsTop10() bool {
	return r >= 1 && r <= 10
}

// String возвращает строковое представление ранга.
func (r Rank) String() string {
	return fmt.Sprintf("#%d", r)
}

// RankChange представляет изменение позиции в рейтинге.
// Положительное значение = подъём, отрицательное = падение.
type RankChange int

// Abs возвращает абсолютное значение изменения.
func (rc RankChange) Abs() int {
	if rc < 0 {
		return int(-rc)
	}
	return int(rc)
}

// String возвращает строковое представление изменения.
func (rc RankChange) String() string {
	switch {
	case rc > 0:
		return fmt.Sprintf("+%d", rc)
	case rc < 0:
		return fmt.Sprintf("%d", rc)
	default:
		return "±0"
	}
}

// RankDirection определяет направление изменения ранга.
type RankDirection string

const (
	// RankDirectionUp - студент поднялся в рейтинге.
	RankDirectionUp RankDirection = "up"
	// RankDirectionDown - студент опустился в рейтинге.
	RankDirectionDown RankDirection = "down"
	// RankDirectionStable - позиция не изменилась.
	RankDirectionStable RankDirection = "stable"
	// RankDirectionNew - дельта недоступна: предыдущего снапшота нет
	// или студента в нём не было.
	RankDirectionNew RankDirection = "new"
)

// Period определяет окно рейтинга.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodAllTime Period = "all_time"
)

// IsValid проверяет, что период известен.
func (p Period) IsValid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodAllTime:
		return true
	}
	return false
}

// WindowStart возвращает начало окна периода. Для all_time - нулевое время.
func (p Period) WindowStart(now time.Time) time.Time {
	switch p {
	case PeriodDaily:
		u := now.UTC()
		return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	case PeriodWeekly:
		u := now.UTC()
		start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
		weekday := int(start.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		return start.AddDate(0, 0, -(weekday - 1))
	default:
		return time.Time{}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry представляет одну запись рейтинга.
type Entry struct {
	// Rank - позиция в рейтинге.
	Rank Rank

	// StudentID - идентификатор студента.
	StudentID shared.StudentID

	// XP - суммарный XP за период.
	XP shared.XP

	// Level - уровень студента.
	Level int

	// AttainedAt - момент, когда студент набрал текущую сумму XP.
	// Используется для разрешения ничьих: при равном XP выше тот,
	// кто набрал сумму раньше.
	AttainedAt time.Time

	// RankChange - изменение позиции с прошлого снапшота.
	// Имеет смысл только при Direction != RankDirectionNew.
	RankChange RankChange

	// ChangeKnown - false, пока дельту не с чем сравнивать.
	ChangeKnown bool
}

// Direction возвращает направление изменения ранга.
func (e *Entry) Direction() RankDirection {
	if !e.ChangeKnown {
		return RankDirectionNew
	}
	switch {
	case e.RankChange > 0:
		return RankDirectionUp
	case e.RankChange < 0:
		return RankDirectionDown
	default:
		return RankDirectionStable
	}
}

// Clone создаёт копию записи.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}

// String возвращает строковое представление для логирования.
func (e *Entry) String() string {
	return fmt.Sprintf("Entry{Rank: %d, Student: %s, XP: %d, Change: %s}",
		e.Rank, e.StudentID, e.XP, e.RankChange.String())
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING
// ══════════════════════════════════════════════════════════════════════════════

// Ranking представляет полный отсортированный список студентов.
// Вспомогательная структура для построения снапшота.
type Ranking struct {
	entries []*Entry
	byID    map[shared.StudentID]*Entry
}

// NewRanking создаёт пустой Ranking.
func NewRanking() *Ranking {
	return &Ranking{
		entries: make([]*Entry, 0),
		byID:    make(map[shared.StudentID]*Entry),
	}
}

// Add добавляет запись в рейтинг (без автоматической сортировки).
func (r *Ranking) Add(entry *Entry) error {
	if entry == nil {
		return shared.WrapError("leaderboard", "Add", shared.ErrInvalidInput, "nil entry", nil)
	}
	if _, exists := r.byID[entry.StudentID]; exists {
		return shared.WrapError("leaderboard", "Add", shared.ErrAlreadyExists, "student already ranked", nil)
	}
	r.entries = append(r.entries, entry)
	r.byID[entry.StudentID] = entry
	return nil
}

// Sort сортирует записи по XP по убыванию и присваивает ранги 1..N.
// Ничьи разрешаются в пользу более раннего AttainedAt; при полном
// совпадении сохраняется порядок добавления записей (стабильная
// сортировка). Общих рангов нет: каждый студент получает свой.
func (r *Ranking) Sort() {
	sort.SliceStable(r.entries, func(i, j int) bool {
		a, b := r.entries[i], r.entries[j]
		if a.XP != b.XP {
			return a.XP > b.XP
		}
		return a.AttainedAt.Before(b.AttainedAt)
	})
	for i, entry := range r.entries {
		entry.Rank = Rank(i + 1)
	}
}

// GetByID возвращает запись по ID студента.
func (r *Ranking) GetByID(studentID shared.StudentID) *Entry {
	return r.byID[studentID]
}

// Count возвращает общее количество записей.
func (r *Ranking) Count() int {
	return len(r.entries)
}

// All возвращает все записи.
func (r *Ranking) All() []*Entry {
	result := make([]*Entry, len(r.entries))
	copy(result, r.entries)
	return result
}
