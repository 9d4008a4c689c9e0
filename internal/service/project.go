package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/highscore-api/internal/cipher"
	"github.com/highscore-api/internal/config"
	"github.com/highscore-api/internal/domain"
)

// ProjectService manages projects and their encryption keys
type ProjectService struct {
	store  ProjectStore
	config *config.ProjectConfig
	logger *slog.Logger
}

// NewProjectService creates a new project service
func NewProjectService(store ProjectStore, cfg *config.ProjectConfig, logger *slog.Logger) *ProjectService {
	return &ProjectService{
		store:  store,
		config: cfg,
		logger: logger,
	}
}

// Create validates and normalizes the name, then stores a project with a
// freshly generated key. Creating an existing project is not an error: the
// stored project is returned untouched.
func (s *ProjectService) Create(ctx context.Context, rawName string) (*domain.Project, error) {
	if strings.TrimSpace(rawName) == "" || utf8.RuneCountInString(rawName) > s.config.NameMaxLength {
		return nil, domain.InvalidProject(fmt.Sprintf("The project name must be between 1 and %d characters!", s.config.NameMaxLength))
	}

	name := NormalizeProjectName(rawName)

	key, err := cipher.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generating project key: %w", err)
	}

	inserted, err := s.store.AddProject(ctx, domain.Project{Name: name, EncryptionKeyBase64: key})
	if err != nil {
		return nil, fmt.Errorf("adding project: %w", err)
	}
	if inserted {
		s.logger.Info("project created", "project", name)
	}

	project, err := s.store.GetProject(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("loading created project: %w", err)
	}
	return project, nil
}

// GetByName returns a project including its scores
func (s *ProjectService) GetByName(ctx context.Context, name string) (*domain.Project, error) {
	project, err := s.store.GetProject(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return nil, domain.ProjectNotFound(name)
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return project, nil
}

// DeleteByName deletes a project and all of its scores. Unknown names are ignored.
func (s *ProjectService) DeleteByName(ctx context.Context, name string) error {
	if err := s.store.DeleteProject(ctx, name); err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	s.logger.Info("project deleted", "project", name)
	return nil
}

// ProjectKey returns the Base64 encryption key of a project
func (s *ProjectService) ProjectKey(ctx context.Context, name string) (string, error) {
	key, err := s.store.ProjectKey(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return "", domain.ProjectNotFound(name)
		}
		return "", fmt.Errorf("getting project key: %w", err)
	}
	return key, nil
}

// NormalizeProjectName trims the name and replaces every whitespace run with a hyphen
func NormalizeProjectName(name string) string {
	return strings.Join(strings.Fields(name), "-")
}
