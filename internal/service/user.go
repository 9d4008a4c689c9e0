package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/highscore-api/internal/domain"
)

const maxUsernameAttempts = 32

// UserService hands out usernames that are free within a project
type UserService struct {
	scores    ScoreStore
	projects  ProjectStore
	generator NameGenerator
	logger    *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(scores ScoreStore, projects ProjectStore, generator NameGenerator, logger *slog.Logger) *UserService {
	return &UserService{
		scores:    scores,
		projects:  projects,
		generator: generator,
		logger:    logger,
	}
}

// RandomUsername returns a generated username that has no score in the
// project yet. After maxUsernameAttempts collisions a numeric suffix is
// appended to the candidates.
func (s *UserService) RandomUsername(ctx context.Context, projectName string) (string, error) {
	exists, err := s.projects.ProjectExists(ctx, projectName)
	if err != nil {
		return "", fmt.Errorf("checking project existence: %w", err)
	}
	if !exists {
		return "", domain.ProjectNotFound(projectName)
	}

	for attempt := 0; attempt < 2*maxUsernameAttempts; attempt++ {
		candidate := s.generator.Generate()
		if attempt >= maxUsernameAttempts {
			candidate = fmt.Sprintf("%s-%d", candidate, rand.Intn(10000))
		}

		taken, err := s.taken(ctx, projectName, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	s.logger.Warn("could not find a free username", "project", projectName)
	return "", fmt.Errorf("no free username after %d attempts", 2*maxUsernameAttempts)
}

func (s *UserService) taken(ctx context.Context, projectName, username string) (bool, error) {
	_, err := s.scores.GetScore(ctx, projectName, username)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrHighScoreNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("checking username: %w", err)
	}
}
