package gamification

import (
	"context"
	"sync"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// AwardReason - причина начисления XP. Свободная строка для аудита;
// константы покрывают встроенные источники.
type AwardReason string

const (
	ReasonAttendance       AwardReason = "attendance"
	ReasonAttendanceOnTime AwardReason = "attendance_on_time"
	ReasonChallenge        AwardReason = "challenge"
	ReasonManual           AwardReason = "manual"
)

// AwardResult - итог начисления XP: состояние до и после, плюс
// разблокированные этим начислением достижения.
type AwardResult struct {
	StudentID shared.StudentID
	Amount    shared.XP
	Reason    AwardReason
	OldXP     shared.XP
	NewXP     shared.XP
	OldLevel  int
	NewLevel  int
	Unlocked  []Achievement
}

// LeveledUp возвращает true, если начисление подняло уровень.
func (r AwardResult) LeveledUp() bool {
	return r.NewLevel > r.OldLevel
}

// Engine начисляет XP, ведёт уровни и разблокирует достижения.
// Начисления для одного студента сериализуются: чтение-изменение-запись
// леджера выполняется в критической секции по studentID.
type Engine struct {
	repo       Repository
	stats      StatsSource
	thresholds Thresholds
	defs       []Definition
	clock      shared.Clock

	mu    sync.Mutex
	locks map[shared.StudentID]*sync.Mutex
}

// NewEngine создаёт движок геймификации. Нулевые thresholds и defs
// заменяются значениями по умолчанию.
func NewEngine(repo Repository, stats StatsSource, thresholds Thresholds, clock shared.Clock) (*Engine, error) {
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &Engine{
		repo:       repo,
		stats:      stats,
		thresholds: thresholds,
		defs:       DefaultDefinitions(),
		clock:      clock,
		locks:      make(map[shared.StudentID]*sync.Mutex),
	}, nil
}

// Thresholds возвращает действующую таблицу порогов.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// lockFor возвращает мьютекс студента, создавая его при первом обращении.
func (e *Engine) lockFor(studentID shared.StudentID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[studentID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[studentID] = l
	}
	return l
}

// AwardXP начисляет студенту amount XP и возвращает итог, включая
// достижения, разблокированные именно этим начислением.
// Возвращает shared.ErrInvalidAmount при amount <= 0.
func (e *Engine) AwardXP(ctx context.Context, studentID shared.StudentID, amount shared.XP, reason AwardReason) (AwardResult, error) {
	if !studentID.IsValid() {
		return AwardResult{}, shared.WrapError("gamification", "AwardXP", shared.ErrInvalidID, "invalid student ID", nil)
	}
	if amount <= 0 {
		return AwardResult{}, shared.ErrInvalidAmount
	}

	lock := e.lockFor(studentID)
	lock.Lock()
	defer lock.Unlock()

	ledger, err := e.repo.FindLedger(ctx, studentID)
	if err != nil {
		if !shared.IsNotFound(err) {
			return AwardResult{}, shared.WrapError("gamification", "AwardXP", shared.ErrExternalService, "ledger read failed", err)
		}
		ledger = NewXPLedger(studentID)
	}

	result := AwardResult{
		StudentID: studentID,
		Amount:    amount,
		Reason:    reason,
		OldXP:     ledger.TotalXP,
		OldLevel:  e.thresholds.LevelFor(ledger.TotalXP),
	}

	ledger.TotalXP += amount
	ledger.Level = e.thresholds.LevelFor(ledger.TotalXP)
	ledger.AttainedAt = e.clock.Now()
	result.NewXP = ledger.TotalXP
	result.NewLevel = ledger.Level

	if err := e.repo.SaveLedger(ctx, ledger); err != nil {
		return AwardResult{}, shared.WrapError("gamification", "AwardXP", shared.ErrExternalService, "ledger write failed", err)
	}

	unlocked, err := e.unlockNew(ctx, ledger)
	if err != nil {
		return AwardResult{}, err
	}
	result.Unlocked = unlocked
	return result, nil
}

// unlockNew проверяет каталог достижений против свежего снимка
// показателей и сохраняет впервые выполненные. Идемпотентно: уже
// полученные достижения пропускаются.
func (e *Engine) unlockNew(ctx context.Context, ledger *XPLedger) ([]Achievement, error) {
	evalCtx := EvaluationContext{}
	if e.stats != nil {
		var err error
		evalCtx, err = e.stats.Evaluation(ctx, ledger.StudentID)
		if err != nil {
			return nil, shared.WrapError("gamification", "AwardXP", shared.ErrExternalService, "stats snapshot failed", err)
		}
	}
	evalCtx.TotalXP = ledger.TotalXP
	evalCtx.Level = ledger.Level

	earned, err := e.repo.Achievements(ctx, ledger.StudentID)
	if err != nil {
		return nil, shared.WrapError("gamification", "AwardXP", shared.ErrExternalService, "achievements read failed", err)
	}
	have := make(map[AchievementID]bool, len(earned))
	for _, a := range earned {
		have[a.ID] = true
	}

	var unlocked []Achievement
	now := e.clock.Now()
	for _, def := range e.defs {
		if have[def.ID] || !def.Condition(evalCtx) {
			continue
		}
		a := Achievement{ID: def.ID, EarnedAt: now}
		if err := e.repo.SaveAchievement(ctx, ledger.StudentID, a); err != nil {
			return nil, shared.WrapError("gamification", "AwardXP", shared.ErrExternalService, "achievement write failed", err)
		}
		unlocked = append(unlocked, a)
	}
	return unlocked, nil
}

// Progress возвращает прогресс студента внутри текущего уровня.
// Для студента без начислений возвращается пустой леджер первого уровня.
func (e *Engine) Progress(ctx context.Context, studentID shared.StudentID) (Progress, error) {
	ledger, err := e.repo.FindLedger(ctx, studentID)
	if err != nil {
		if shared.IsNotFound(err) {
			ledger = NewXPLedger(studentID)
		} else {
			return Progress{}, shared.WrapError("gamification", "Progress", shared.ErrExternalService, "ledger read failed", err)
		}
	}
	return ComputeProgress(ledger, e.thresholds), nil
}

// Achievements возвращает достижения студента в порядке получения.
func (e *Engine) Achievements(ctx context.Context, studentID shared.StudentID) ([]Achievement, error) {
	list, err := e.repo.Achievements(ctx, studentID)
	if err != nil {
		return nil, shared.WrapError("gamification", "Achievements", shared.ErrExternalService, "achievements read failed", err)
	}
	return list, nil
}
