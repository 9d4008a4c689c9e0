package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/highscore-api/internal/config"
	"github.com/highscore-api/internal/domain"
)

const foreignKeyViolation = "23503"

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	return connect(poolConfig, logger)
}

// NewRepositoryFromURL creates a repository from a connection URL with pool defaults
func NewRepositoryFromURL(url string, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	return connect(poolConfig, logger)
}

func connect(poolConfig *pgxpool.Config, logger *slog.Logger) (*Repository, error) {
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			name VARCHAR(64) PRIMARY KEY,
			encryption_key VARCHAR(256) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS high_scores (
			id BIGSERIAL PRIMARY KEY,
			project_name VARCHAR(64) NOT NULL REFERENCES projects(name) ON DELETE CASCADE,
			username VARCHAR(64) NOT NULL,
			score BIGINT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(project_name, username)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_high_scores_score ON high_scores(project_name, score DESC, id)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// TopScores returns up to limit scores of a project, highest first.
// Equal scores keep insertion order.
func (r *Repository) TopScores(ctx context.Context, projectName string, limit int) ([]domain.HighScore, error) {
	query := `
		SELECT username, score
		FROM high_scores
		WHERE project_name = $1
		ORDER BY score DESC, id ASC
		LIMIT $2
	`
	return r.queryScores(ctx, query, projectName, limit)
}

// GetScore retrieves the score of a user within a project
func (r *Repository) GetScore(ctx context.Context, projectName, username string) (*domain.HighScore, error) {
	query := `
		SELECT username, score
		FROM high_scores
		WHERE project_name = $1 AND username = $2
	`
	var hs domain.HighScore
	err := r.pool.QueryRow(ctx, query, projectName, username).Scan(&hs.Username, &hs.Score)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrHighScoreNotFound
		}
		return nil, fmt.Errorf("getting score: %w", err)
	}
	return &hs, nil
}

// UpsertBest inserts a score or raises the stored one. The comparison runs
// inside the statement, so concurrent submissions cannot lower a score.
func (r *Repository) UpsertBest(ctx context.Context, projectName string, hs domain.HighScore) (bool, error) {
	query := `
		INSERT INTO high_scores (project_name, username, score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (project_name, username)
		DO UPDATE SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at
		WHERE high_scores.score < EXCLUDED.score
	`
	tag, err := r.pool.Exec(ctx, query, projectName, hs.Username, hs.Score, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return false, domain.ErrProjectNotFound
		}
		return false, fmt.Errorf("upserting score: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteScore removes a score if username and value both match
func (r *Repository) DeleteScore(ctx context.Context, projectName string, hs domain.HighScore) (bool, error) {
	query := `DELETE FROM high_scores WHERE project_name = $1 AND username = $2 AND score = $3`
	tag, err := r.pool.Exec(ctx, query, projectName, hs.Username, hs.Score)
	if err != nil {
		return false, fmt.Errorf("deleting score: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteAllScores removes every score of a project
func (r *Repository) DeleteAllScores(ctx context.Context, projectName string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM high_scores WHERE project_name = $1`, projectName)
	if err != nil {
		return 0, fmt.Errorf("deleting all scores: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetProject retrieves a project with all of its scores, highest first
func (r *Repository) GetProject(ctx context.Context, name string) (*domain.Project, error) {
	project := domain.Project{Name: name}
	err := r.pool.QueryRow(ctx, `SELECT encryption_key FROM projects WHERE name = $1`, name).
		Scan(&project.EncryptionKeyBase64)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}

	query := `
		SELECT username, score
		FROM high_scores
		WHERE project_name = $1
		ORDER BY score DESC, id ASC
	`
	project.Scores, err = r.queryScores(ctx, query, name)
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// ProjectKey returns the encryption key of a project
func (r *Repository) ProjectKey(ctx context.Context, name string) (string, error) {
	var key string
	err := r.pool.QueryRow(ctx, `SELECT encryption_key FROM projects WHERE name = $1`, name).Scan(&key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrProjectNotFound
		}
		return "", fmt.Errorf("getting project key: %w", err)
	}
	return key, nil
}

// ProjectExists checks if a project exists
func (r *Repository) ProjectExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM projects WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking project existence: %w", err)
	}
	return exists, nil
}

// AddProject inserts a project unless the name is taken
func (r *Repository) AddProject(ctx context.Context, p domain.Project) (bool, error) {
	query := `
		INSERT INTO projects (name, encryption_key, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`
	tag, err := r.pool.Exec(ctx, query, p.Name, p.EncryptionKeyBase64, time.Now())
	if err != nil {
		return false, fmt.Errorf("adding project: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteProject deletes a project; its scores are removed by cascade
func (r *Repository) DeleteProject(ctx context.Context, name string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	return nil
}

// ListProjectKeys returns the encryption key of every project by name
func (r *Repository) ListProjectKeys(ctx context.Context) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, encryption_key FROM projects`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]string)
	for rows.Next() {
		var name, key string
		if err := rows.Scan(&name, &key); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		keys[name] = key
	}
	return keys, rows.Err()
}

func (r *Repository) queryScores(ctx context.Context, query string, args ...any) ([]domain.HighScore, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying scores: %w", err)
	}
	defer rows.Close()

	scores := make([]domain.HighScore, 0)
	for rows.Next() {
		var hs domain.HighScore
		if err := rows.Scan(&hs.Username, &hs.Score); err != nil {
			return nil, fmt.Errorf("scanning score: %w", err)
		}
		scores = append(scores, hs)
	}
	return scores, rows.Err()
}
