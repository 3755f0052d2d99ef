// Package challenge contains timed quiz sessions: a fixed question set, a
// deadline, answer collection, and scoring. Sessions never run background
// timers; expiry is discovered lazily on the next interaction.
package challenge

import (
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// Category groups questions by topic.
type Category string

const (
	CategoryDataStructures Category = "data_structures"
	CategoryAlgorithms     Category = "algorithms"
	CategoryDatabases      Category = "databases"
	CategoryNetworking     Category = "networking"
	CategoryGeneral        Category = "general"
)

// Difficulty grades a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is one multiple-choice question. CorrectIndex points into
// Options and is never serialized toward clients.
type Question struct {
	ID           string
	Category     Category
	Difficulty   Difficulty
	Prompt       string
	Options      []string
	CorrectIndex int
}

// Validate checks the question's internal consistency.
func (q Question) Validate() error {
	if q.Prompt == "" || len(q.Options) < 2 {
		return shared.ErrInvalidConfig
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return shared.ErrInvalidConfig
	}
	return nil
}
