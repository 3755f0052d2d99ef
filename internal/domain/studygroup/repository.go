package studygroup

import (
	"context"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// Repository - хранилище учебных групп. Update выполняет функцию
// изменения под блокировкой группы: это точка, где живёт атомарность
// вступления ("последнее место достаётся одному").
type Repository interface {
	// Save вставляет или обновляет группу.
	Save(ctx context.Context, group *StudyGroup) error

	// Find возвращает группу по ID.
	// Возвращает shared.ErrUnknownGroup, если группы нет.
	Find(ctx context.Context, id shared.GroupID) (*StudyGroup, error)

	// All возвращает все группы.
	All(ctx context.Context) ([]*StudyGroup, error)

	// Update применяет fn к группе под её блокировкой и сохраняет
	// результат, если fn вернула nil. Ошибка fn отменяет изменения.
	Update(ctx context.Context, id shared.GroupID, fn func(*StudyGroup) error) error
}
