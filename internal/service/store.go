package service

import (
	"context"

	"github.com/highscore-api/internal/domain"
)

// ScoreStore persists the best score per (project, username).
// Missing rows are reported with domain.ErrHighScoreNotFound and missing
// projects with domain.ErrProjectNotFound.
type ScoreStore interface {
	// TopScores returns up to limit scores, highest first, ties in insertion order
	TopScores(ctx context.Context, project string, limit int) ([]domain.HighScore, error)
	GetScore(ctx context.Context, project, username string) (*domain.HighScore, error)
	// UpsertBest inserts hs or raises the stored score to hs.Score in one
	// atomic step. It reports whether the stored value changed.
	UpsertBest(ctx context.Context, project string, hs domain.HighScore) (bool, error)
	// DeleteScore removes the row only if both username and score match
	DeleteScore(ctx context.Context, project string, hs domain.HighScore) (bool, error)
	DeleteAllScores(ctx context.Context, project string) (int64, error)
}

// ProjectStore persists projects and their encryption keys
type ProjectStore interface {
	GetProject(ctx context.Context, name string) (*domain.Project, error)
	ProjectKey(ctx context.Context, name string) (string, error)
	ProjectExists(ctx context.Context, name string) (bool, error)
	// AddProject stores p unless a project with the same name exists.
	// It reports whether p was inserted.
	AddProject(ctx context.Context, p domain.Project) (bool, error)
	// DeleteProject removes the project and its scores; absent projects are not an error
	DeleteProject(ctx context.Context, name string) error
	ListProjectKeys(ctx context.Context) (map[string]string, error)
}

// Notifier receives the new top scores of a project after a score changed
type Notifier interface {
	BroadcastTop(project string, entries []domain.HighScore)
}

// ProfanityFilter replaces every character of offending words with a space
type ProfanityFilter interface {
	Censor(s string) string
}

// NameGenerator produces random usernames
type NameGenerator interface {
	Generate() string
}
