package leaderboard

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет контракт хранения снапшотов рейтинга.
// Реализация находится в infrastructure слое (PostgreSQL, in-memory).
type Repository interface {
	// SaveSnapshot сохраняет снапшот рейтинга.
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error

	// LatestSnapshot возвращает последний снапшот для периода.
	// Возвращает shared.ErrSnapshotNotFound, если снапшотов ещё нет.
	LatestSnapshot(ctx context.Context, period Period) (*Snapshot, error)

	// SnapshotByID возвращает снапшот по его ID.
	SnapshotByID(ctx context.Context, id string) (*Snapshot, error)

	// DeleteOlderThan удаляет снапшоты старше указанного времени,
	// кроме последнего снапшота каждого периода.
	// Возвращает количество удалённых снапшотов.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Cache определяет контракт кеширования топа рейтинга.
// Отделён от основного репозитория для гибкости (Redis, in-memory).
type Cache interface {
	// CachedTop возвращает закешированный топ-N.
	// Возвращает nil без ошибки, если кеш пуст или устарел.
	CachedTop(ctx context.Context, period Period, limit int) ([]*Entry, error)

	// SetCachedTop сохраняет топ-N в кеш с TTL.
	SetCachedTop(ctx context.Context, period Period, entries []*Entry, ttl time.Duration) error

	// Invalidate сбрасывает кеш для периода.
	Invalidate(ctx context.Context, period Period) error
}
