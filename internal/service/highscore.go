package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/highscore-api/internal/config"
	"github.com/highscore-api/internal/domain"
)

const scoreNotPositiveMessage = "Your Score must be greater than 0!"

// HighScoreService validates score submissions and orchestrates the stores
type HighScoreService struct {
	scores   ScoreStore
	projects ProjectStore
	filter   ProfanityFilter
	notifier Notifier
	config   *config.HighScoreConfig
	logger   *slog.Logger
}

// NewHighScoreService creates a new high score service
func NewHighScoreService(
	scores ScoreStore,
	projects ProjectStore,
	filter ProfanityFilter,
	cfg *config.HighScoreConfig,
	logger *slog.Logger,
) *HighScoreService {
	return &HighScoreService{
		scores:   scores,
		projects: projects,
		filter:   filter,
		config:   cfg,
		logger:   logger,
	}
}

// SetNotifier sets the receiver of live top-N updates. Call before serving.
func (s *HighScoreService) SetNotifier(n Notifier) {
	s.notifier = n
}

// GetTop returns up to amount scores of a project, highest first
func (s *HighScoreService) GetTop(ctx context.Context, projectName string, amount int) ([]domain.HighScore, error) {
	if amount <= 0 {
		return nil, domain.OutOfRange("The amount must be greater than 0!")
	}

	entries, err := s.scores.TopScores(ctx, projectName, amount)
	if err != nil {
		return nil, fmt.Errorf("getting top scores: %w", err)
	}
	return entries, nil
}

// GetByUsername returns the stored score of username within a project
func (s *HighScoreService) GetByUsername(ctx context.Context, projectName, username string) (*domain.HighScore, error) {
	hs, err := s.scores.GetScore(ctx, projectName, username)
	if err != nil {
		if errors.Is(err, domain.ErrHighScoreNotFound) {
			return nil, domain.HighScoreNotFound(username)
		}
		return nil, fmt.Errorf("getting score: %w", err)
	}
	return hs, nil
}

// AddOrUpdate validates and normalizes a submission, then stores it if it
// is new or beats the stored score. Lower or equal scores are accepted
// silently without changing anything. The normalized submission is returned.
func (s *HighScoreService) AddOrUpdate(ctx context.Context, projectName string, submission domain.HighScore) (domain.HighScore, error) {
	if submission.Score <= 0 {
		return domain.HighScore{}, domain.InvalidHighScore(scoreNotPositiveMessage)
	}
	if !s.validUsername(submission.Username) {
		return domain.HighScore{}, s.invalidUsername()
	}

	// censoring can blank out the whole name, so validate again afterwards
	username := s.NormalizeUsername(submission.Username)
	if !s.validUsername(username) {
		return domain.HighScore{}, s.invalidUsername()
	}

	exists, err := s.projects.ProjectExists(ctx, projectName)
	if err != nil {
		return domain.HighScore{}, fmt.Errorf("checking project existence: %w", err)
	}
	if !exists {
		return domain.HighScore{}, domain.ProjectNotFound(projectName)
	}

	hs := domain.HighScore{Username: username, Score: submission.Score}
	changed, err := s.scores.UpsertBest(ctx, projectName, hs)
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return domain.HighScore{}, domain.ProjectNotFound(projectName)
		}
		return domain.HighScore{}, fmt.Errorf("upserting score: %w", err)
	}

	if changed {
		s.publishTop(ctx, projectName)
	}
	return hs, nil
}

// SubmitScore adds a score that arrived through the ingestion pipeline
func (s *HighScoreService) SubmitScore(ctx context.Context, submission domain.ScoreSubmission) error {
	_, err := s.AddOrUpdate(ctx, submission.Project, submission.HighScore())
	return err
}

// SubmitScoreBatch submits multiple scores. Rejected submissions are logged
// and skipped; the number of accepted submissions is returned.
func (s *HighScoreService) SubmitScoreBatch(ctx context.Context, batch domain.BatchScoreSubmission) (int, error) {
	accepted := 0
	for _, submission := range batch.Scores {
		if err := s.SubmitScore(ctx, submission); err != nil {
			if domain.KindOf(err) != domain.KindUnknown {
				s.logger.Warn("rejected score submission",
					"project", submission.Project,
					"username", submission.Username,
					"reason", err.Error(),
				)
				continue
			}
			if ctx.Err() != nil {
				return accepted, ctx.Err()
			}
			s.logger.Error("failed to submit score in batch",
				"project", submission.Project,
				"username", submission.Username,
				"error", err,
			)
			continue
		}
		accepted++
	}
	return accepted, nil
}

// Delete removes a score only if the stored value matches exactly
func (s *HighScoreService) Delete(ctx context.Context, projectName string, submission domain.HighScore) error {
	existing, err := s.scores.GetScore(ctx, projectName, submission.Username)
	if err != nil && !errors.Is(err, domain.ErrHighScoreNotFound) {
		return fmt.Errorf("getting score: %w", err)
	}
	if existing == nil || existing.Score != submission.Score {
		return domain.HighScoreValueNotFound(submission)
	}

	deleted, err := s.scores.DeleteScore(ctx, projectName, submission)
	if err != nil {
		return fmt.Errorf("deleting score: %w", err)
	}
	if !deleted {
		// raised or removed between the read and the delete
		return domain.HighScoreValueNotFound(submission)
	}

	s.publishTop(ctx, projectName)
	return nil
}

// DeleteAll removes every score of a project
func (s *HighScoreService) DeleteAll(ctx context.Context, projectName string) error {
	removed, err := s.scores.DeleteAllScores(ctx, projectName)
	if err != nil {
		return fmt.Errorf("deleting all scores: %w", err)
	}

	s.logger.Info("deleted all scores", "project", projectName, "count", removed)
	if removed > 0 {
		s.publishTop(ctx, projectName)
	}
	return nil
}

// NormalizeUsername censors profanity, collapses whitespace runs to a
// single space and trims the result.
func (s *HighScoreService) NormalizeUsername(raw string) string {
	censored := raw
	if s.filter != nil {
		censored = s.filter.Censor(raw)
	}
	return strings.Join(strings.Fields(censored), " ")
}

// UsernameMaxLength returns the configured maximum username length
func (s *HighScoreService) UsernameMaxLength() int {
	return s.config.UsernameMaxLength
}

func (s *HighScoreService) validUsername(username string) bool {
	if strings.TrimSpace(username) == "" {
		return false
	}
	return utf8.RuneCountInString(username) <= s.config.UsernameMaxLength
}

func (s *HighScoreService) invalidUsername() error {
	return domain.InvalidHighScore(fmt.Sprintf("Your Username must be between 1 and %d characters!", s.config.UsernameMaxLength))
}

func (s *HighScoreService) publishTop(ctx context.Context, projectName string) {
	if s.notifier == nil {
		return
	}

	entries, err := s.scores.TopScores(ctx, projectName, s.config.LiveTopSize)
	if err != nil {
		s.logger.Warn("failed to load top scores for live update", "project", projectName, "error", err)
		return
	}
	s.notifier.BroadcastTop(projectName, entries)
}
