package query

import (
	"context"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
	"github.com/campus-pulse/engagement-hub/internal/domain/studygroup"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEARCH STUDY GROUPS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// SearchStudyGroupsQuery filters the group catalogue. All supplied
// criteria are ANDed; empty criteria match everything.
type SearchStudyGroupsQuery struct {
	Text       string
	Level      string
	OnlineOnly bool
}

// StudyGroupDTO is the read model for one group.
type StudyGroupDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Subject     string   `json:"subject"`
	Description string   `json:"description,omitempty"`
	MemberCount int      `json:"member_count"`
	Capacity    int      `json:"capacity"`
	IsFull      bool     `json:"is_full"`
	Schedule    string   `json:"schedule,omitempty"`
	Location    string   `json:"location,omitempty"`
	Level       string   `json:"level,omitempty"`
	IsOnline    bool     `json:"is_online"`
	Tags        []string `json:"tags,omitempty"`
}

// SearchStudyGroupsHandler handles the query.
type SearchStudyGroupsHandler struct {
	directory *studygroup.Directory
}

// NewSearchStudyGroupsHandler creates a new handler.
func NewSearchStudyGroupsHandler(directory *studygroup.Directory) *SearchStudyGroupsHandler {
	return &SearchStudyGroupsHandler{directory: directory}
}

// Handle executes the query.
func (h *SearchStudyGroupsHandler) Handle(ctx context.Context, q SearchStudyGroupsQuery) ([]StudyGroupDTO, error) {
	level := studygroup.Level(q.Level)
	if q.Level != "" && !level.IsValid() {
		return nil, shared.WrapError("studygroup", "Search", shared.ErrInvalidInput, "unknown level filter", nil)
	}

	groups, err := h.directory.Search(ctx, studygroup.Filter{
		Text:       q.Text,
		Level:      level,
		OnlineOnly: q.OnlineOnly,
	})
	if err != nil {
		return nil, err
	}

	result := make([]StudyGroupDTO, 0, len(groups))
	for _, g := range groups {
		result = append(result, StudyGroupDTO{
			ID:          string(g.ID),
			Name:        g.Name,
			Subject:     g.Subject,
			Description: g.Description,
			MemberCount: len(g.Members),
			Capacity:    g.Capacity,
			IsFull:      g.IsFull(),
			Schedule:    g.Schedule,
			Location:    g.Location,
			Level:       string(g.Level),
			IsOnline:    g.IsOnline,
			Tags:        g.Tags,
		})
	}
	return result, nil
}
