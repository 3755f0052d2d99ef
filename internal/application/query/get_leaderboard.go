package query

import (
	"context"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/leaderboard"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Reads the latest snapshot for a period. The top page goes through the
// cache; everything else reads the snapshot directly.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery requests a page of the ranking.
type GetLeaderboardQuery struct {
	// Period selects the ranking window ("" = all_time).
	Period string

	// Page starts at 1.
	Page int

	// PageSize defaults to 20.
	PageSize int

	// StudentID, when set, also resolves the viewer's own entry even if
	// it falls outside the requested page.
	StudentID string
}

// defaults fills zero fields.
func (q GetLeaderboardQuery) defaults() GetLeaderboardQuery {
	if q.Period == "" {
		q.Period = string(leaderboard.PeriodAllTime)
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = 20
	}
	return q
}

// LeaderboardEntryDTO is the read model for one ranking row.
type LeaderboardEntryDTO struct {
	Rank       int    `json:"rank"`
	StudentID  string `json:"student_id"`
	XP         int    `json:"xp"`
	Level      int    `json:"level"`
	RankChange int    `json:"rank_change"`
	Direction  string `json:"direction"` // up | down | stable | new
}

// LeaderboardDTO is the read model for a leaderboard page.
type LeaderboardDTO struct {
	Period        string                `json:"period"`
	SnapshotAt    time.Time             `json:"snapshot_at"`
	TotalStudents int                   `json:"total_students"`
	Page          int                   `json:"page"`
	PageSize      int                   `json:"page_size"`
	Entries       []LeaderboardEntryDTO `json:"entries"`
	Viewer        *LeaderboardEntryDTO  `json:"viewer,omitempty"`
}

// GetLeaderboardHandler handles the query.
type GetLeaderboardHandler struct {
	repo     leaderboard.Repository
	cache    leaderboard.Cache
	cacheTTL time.Duration
}

// NewGetLeaderboardHandler creates a new handler. cache may be nil.
func NewGetLeaderboardHandler(repo leaderboard.Repository, cache leaderboard.Cache, cacheTTL time.Duration) *GetLeaderboardHandler {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &GetLeaderboardHandler{repo: repo, cache: cache, cacheTTL: cacheTTL}
}

// Handle executes the query.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*LeaderboardDTO, error) {
	q = q.defaults()
	period := leaderboard.Period(q.Period)
	if !period.IsValid() {
		return nil, shared.ErrInvalidPeriod
	}

	snapshot, err := h.repo.LatestSnapshot(ctx, period)
	if err != nil {
		if shared.IsNotFound(err) {
			// No snapshot yet: an empty board, not an error.
			return &LeaderboardDTO{
				Period:   q.Period,
				Page:     q.Page,
				PageSize: q.PageSize,
				Entries:  []LeaderboardEntryDTO{},
			}, nil
		}
		return nil, err
	}

	var entries []*leaderboard.Entry
	if q.Page == 1 && h.cache != nil {
		cached, cacheErr := h.cache.CachedTop(ctx, period, q.PageSize)
		if cacheErr == nil && cached != nil {
			entries = cached
		}
	}
	if entries == nil {
		entries = snapshot.Page(q.Page, q.PageSize)
		if q.Page == 1 && h.cache != nil {
			_ = h.cache.SetCachedTop(ctx, period, entries, h.cacheTTL)
		}
	}

	dto := &LeaderboardDTO{
		Period:        q.Period,
		SnapshotAt:    snapshot.SnapshotAt,
		TotalStudents: snapshot.TotalStudents,
		Page:          q.Page,
		PageSize:      q.PageSize,
		Entries:       make([]LeaderboardEntryDTO, 0, len(entries)),
	}
	for _, e := range entries {
		dto.Entries = append(dto.Entries, toEntryDTO(e))
	}

	if q.StudentID != "" {
		if viewer := snapshot.GetByID(shared.StudentID(q.StudentID)); viewer != nil {
			v := toEntryDTO(viewer)
			dto.Viewer = &v
		}
	}
	return dto, nil
}

func toEntryDTO(e *leaderboard.Entry) LeaderboardEntryDTO {
	return LeaderboardEntryDTO{
		Rank:       int(e.Rank),
		StudentID:  string(e.StudentID),
		XP:         int(e.XP),
		Level:      e.Level,
		RankChange: int(e.RankChange),
		Direction:  string(e.Direction()),
	}
}
