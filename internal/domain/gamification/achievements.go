package gamification

import (
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENTS (Достижения)
// ══════════════════════════════════════════════════════════════════════════════

// Rarity представляет редкость достижения.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// IsValid проверяет, что редкость известна.
func (r Rarity) IsValid() bool {
	switch r {
	case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
		return true
	}
	return false
}

// RarityColor возвращает цвет редкости для презентационного слоя.
// Таблица хранится как данные, а не как логика.
func RarityColor(r Rarity) string {
	switch r {
	case RarityLegendary:
		return "#f59e0b"
	case RarityEpic:
		return "#a855f7"
	case RarityRare:
		return "#3b82f6"
	default:
		return "#9ca3af"
	}
}

// AchievementID идентифицирует определение достижения.
type AchievementID string

const (
	// AchievementEarlyBird - отметился на первом занятии дня.
	AchievementEarlyBird AchievementID = "early_bird"
	// AchievementPerfectWeek - посещаемость 100% за неделю.
	AchievementPerfectWeek AchievementID = "perfect_week"
	// AchievementStreakMaster - серия посещений 15 дней.
	AchievementStreakMaster AchievementID = "streak_master"
	// AchievementQuizChampion - пять квизов без единой ошибки.
	AchievementQuizChampion AchievementID = "quiz_champion"
	// AchievementFirstThousand - первые 1000 XP.
	AchievementFirstThousand AchievementID = "first_thousand"
	// AchievementLevel5 - достиг 5 уровня.
	AchievementLevel5 AchievementID = "level_5"
)

// EvaluationContext - снимок показателей студента, по которому
// проверяются условия достижений. Собирается вызывающей стороной при
// каждом начислении XP; предикаты не обращаются к хранилищам.
type EvaluationContext struct {
	TotalXP              shared.XP
	Level                int
	CurrentStreak        int
	BestStreak           int
	AttendancePercentage shared.Percentage
	WeekFullyAttended    bool
	EarlyCheckIns        int
	PerfectQuizzes       int
	QuizzesTaken         int
}

// Definition описывает достижение: метаданные плюс чистый предикат
// разблокировки.
type Definition struct {
	ID          AchievementID
	Name        string
	Description string
	Emoji       string
	Rarity      Rarity
	Condition   func(EvaluationContext) bool
}

// Achievement представляет полученное достижение. EarnedAt выставляется
// ровно один раз - при разблокировке.
type Achievement struct {
	ID       AchievementID
	EarnedAt time.Time
}

// DefaultDefinitions возвращает встроенный упорядоченный каталог достижений.
// Порядок фиксирован: в нём достижения проверяются и отдаются наружу.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			ID:          AchievementEarlyBird,
			Name:        "Ранняя пташка",
			Description: "Отметился на первом занятии дня",
			Emoji:       "🐦",
			Rarity:      RarityCommon,
			Condition:   func(c EvaluationContext) bool { return c.EarlyCheckIns >= 1 },
		},
		{
			ID:          AchievementFirstThousand,
			Name:        "Первая тысяча",
			Description: "Набрал 1000 XP",
			Emoji:       "✨",
			Rarity:      RarityCommon,
			Condition:   func(c EvaluationContext) bool { return c.TotalXP >= 1000 },
		},
		{
			ID:          AchievementPerfectWeek,
			Name:        "Идеальная неделя",
			Description: "Посетил все занятия недели",
			Emoji:       "📅",
			Rarity:      RarityRare,
			Condition:   func(c EvaluationContext) bool { return c.WeekFullyAttended },
		},
		{
			ID:          AchievementLevel5,
			Name:        "Пятый уровень",
			Description: "Достиг 5 уровня",
			Emoji:       "📚",
			Rarity:      RarityRare,
			Condition:   func(c EvaluationContext) bool { return c.Level >= 5 },
		},
		{
			ID:          AchievementStreakMaster,
			Name:        "Мастер серий",
			Description: "Серия посещений 15 дней подряд",
			Emoji:       "🔥",
			Rarity:      RarityEpic,
			Condition:   func(c EvaluationContext) bool { return c.CurrentStreak >= 15 },
		},
		{
			ID:          AchievementQuizChampion,
			Name:        "Чемпион квизов",
			Description: "Пять квизов без единой ошибки",
			Emoji:       "🏆",
			Rarity:      RarityLegendary,
			Condition:   func(c EvaluationContext) bool { return c.PerfectQuizzes >= 5 },
		},
	}
}

// FindDefinition возвращает определение достижения по ID.
func FindDefinition(defs []Definition, id AchievementID) (Definition, bool) {
	for _, d := range defs {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}
