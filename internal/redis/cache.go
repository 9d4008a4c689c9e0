package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/highscore-api/internal/config"
)

// ProjectCache keeps project encryption keys in Redis
type ProjectCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewProjectCache connects to Redis and creates a project key cache
func NewProjectCache(cfg *config.RedisConfig, ttl time.Duration, logger *slog.Logger) (*ProjectCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &ProjectCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (c *ProjectCache) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection
func (c *ProjectCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// projectKey returns the Redis key holding a project's encryption key
func (c *ProjectCache) projectKey(name string) string {
	return fmt.Sprintf("project:%s:key", name)
}

// Get returns the cached key of a project. A miss is reported with ok false.
func (c *ProjectCache) Get(ctx context.Context, name string) (string, bool, error) {
	key, err := c.client.Get(ctx, c.projectKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting cached project key: %w", err)
	}
	return key, true, nil
}

// Set caches the key of a project
func (c *ProjectCache) Set(ctx context.Context, name, key string) error {
	if err := c.client.Set(ctx, c.projectKey(name), key, c.ttl).Err(); err != nil {
		return fmt.Errorf("caching project key: %w", err)
	}
	return nil
}

// SetMany caches several project keys in one round trip
func (c *ProjectCache) SetMany(ctx context.Context, keys map[string]string) error {
	if len(keys) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for name, key := range keys {
		pipe.Set(ctx, c.projectKey(name), key, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("caching project keys: %w", err)
	}
	return nil
}

// Invalidate drops the cached key of a project
func (c *ProjectCache) Invalidate(ctx context.Context, name string) error {
	if err := c.client.Del(ctx, c.projectKey(name)).Err(); err != nil {
		return fmt.Errorf("invalidating project key: %w", err)
	}
	return nil
}
