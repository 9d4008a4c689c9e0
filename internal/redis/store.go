package redis

import (
	"context"
	"log/slog"

	"github.com/highscore-api/internal/domain"
	"github.com/highscore-api/internal/service"
)

// CachedProjectStore serves project keys from Redis and falls back to the
// wrapped store on a miss. Redis failures are logged and never fail a request.
// Existence checks always go to the wrapped store. A cached key can outlive
// its project until the TTL expires.
type CachedProjectStore struct {
	service.ProjectStore
	cache  *ProjectCache
	logger *slog.Logger
}

// NewCachedProjectStore wraps store with cache
func NewCachedProjectStore(store service.ProjectStore, cache *ProjectCache, logger *slog.Logger) *CachedProjectStore {
	return &CachedProjectStore{
		ProjectStore: store,
		cache:        cache,
		logger:       logger,
	}
}

// ProjectKey returns the encryption key of a project
func (s *CachedProjectStore) ProjectKey(ctx context.Context, name string) (string, error) {
	key, ok, err := s.cache.Get(ctx, name)
	if err != nil {
		s.logger.Warn("project cache read failed", "project", name, "error", err)
	}
	if ok {
		return key, nil
	}

	key, err = s.ProjectStore.ProjectKey(ctx, name)
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, name, key); err != nil {
		s.logger.Warn("project cache write failed", "project", name, "error", err)
	}
	return key, nil
}

// AddProject stores a project and caches the key that ends up stored
func (s *CachedProjectStore) AddProject(ctx context.Context, p domain.Project) (bool, error) {
	inserted, err := s.ProjectStore.AddProject(ctx, p)
	if err != nil {
		return false, err
	}
	if inserted {
		if err := s.cache.Set(ctx, p.Name, p.EncryptionKeyBase64); err != nil {
			s.logger.Warn("project cache write failed", "project", p.Name, "error", err)
		}
	}
	return inserted, nil
}

// DeleteProject deletes a project and drops its cached key
func (s *CachedProjectStore) DeleteProject(ctx context.Context, name string) error {
	if err := s.ProjectStore.DeleteProject(ctx, name); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, name); err != nil {
		s.logger.Warn("project cache invalidation failed", "project", name, "error", err)
	}
	return nil
}

// Warm loads every project key from the wrapped store into Redis and
// returns how many keys were cached.
func (s *CachedProjectStore) Warm(ctx context.Context) (int, error) {
	keys, err := s.ProjectStore.ListProjectKeys(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.cache.SetMany(ctx, keys); err != nil {
		return 0, err
	}
	return len(keys), nil
}
