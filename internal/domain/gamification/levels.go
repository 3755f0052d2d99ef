// Package gamification содержит доменную модель прогресса студента:
// XP-леджер, уровни с настраиваемыми порогами и достижения.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package gamification

import (
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVELS
// ══════════════════════════════════════════════════════════════════════════════

// Thresholds - возрастающая таблица порогов уровней. Элемент с индексом i
// содержит минимальный суммарный XP для уровня i+1. Первый порог всегда 0:
// студент без XP находится на первом уровне.
type Thresholds []shared.XP

// DefaultThresholds возвращает таблицу порогов по умолчанию.
// Ступень между порогами растёт на 500 XP за уровень.
func DefaultThresholds() Thresholds {
	return Thresholds{0, 1000, 2500, 4500, 7000, 10000}
}

// Validate проверяет корректность таблицы порогов: непустая,
// начинается с нуля, строго возрастает.
func (t Thresholds) Validate() error {
	if len(t) == 0 || t[0] != 0 {
		return shared.ErrInvalidThresholds
	}
	for i := 1; i < len(t); i++ {
		if t[i] <= t[i-1] {
			return shared.ErrInvalidThresholds
		}
	}
	return nil
}

// MaxLevel возвращает максимальный достижимый уровень.
func (t Thresholds) MaxLevel() int {
	return len(t)
}

// LevelFor вычисляет уровень по суммарному XP: номер наибольшего порога,
// не превышающего totalXP. Уровни нумеруются с единицы.
func (t Thresholds) LevelFor(totalXP shared.XP) int {
	level := 1
	for i := 1; i < len(t); i++ {
		if totalXP >= t[i] {
			level = i + 1
		}
	}
	return level
}

// ══════════════════════════════════════════════════════════════════════════════
// XP LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// XPLedger - накопленный XP студента. AttainedAt фиксирует момент
// последнего изменения суммы: рейтинг использует его для разрешения
// ничьих в пользу того, кто набрал сумму раньше.
type XPLedger struct {
	StudentID  shared.StudentID
	TotalXP    shared.XP
	Level      int
	AttainedAt time.Time
}

// NewXPLedger создаёт пустой леджер для студента.
func NewXPLedger(studentID shared.StudentID) *XPLedger {
	return &XPLedger{StudentID: studentID, Level: 1}
}

// Progress - представление прогресса студента внутри текущего уровня.
type Progress struct {
	StudentID     shared.StudentID
	TotalXP       shared.XP
	Level         int
	XPIntoLevel   shared.XP
	XPToNextLevel shared.XP
	AtMaxLevel    bool
}

// ComputeProgress вычисляет прогресс по леджеру и таблице порогов.
// На максимальном уровне XPToNextLevel равен нулю.
func ComputeProgress(ledger *XPLedger, thresholds Thresholds) Progress {
	level := thresholds.LevelFor(ledger.TotalXP)
	p := Progress{
		StudentID:   ledger.StudentID,
		TotalXP:     ledger.TotalXP,
		Level:       level,
		XPIntoLevel: ledger.TotalXP - thresholds[level-1],
		AtMaxLevel:  level == thresholds.MaxLevel(),
	}
	if !p.AtMaxLevel {
		p.XPToNextLevel = thresholds[level] - ledger.TotalXP
	}
	return p
}
