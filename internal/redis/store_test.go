package redis

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/highscore-api/internal/config"
	"github.com/highscore-api/internal/domain"
	"github.com/highscore-api/internal/memory"
)

func newTestCache(t *testing.T) *ProjectCache {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	cfg := config.DefaultConfig().Redis
	cfg.Addr = addr
	cfg.DB = 15

	cache, err := NewProjectCache(&cfg, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, cache.client.FlushDB(context.Background()).Err())
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestProjectCache(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "game")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "game", "secret"))
	key, ok, err := cache.Get(ctx, "game")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "secret", key)

	ttl, err := cache.client.TTL(ctx, cache.projectKey("game")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cache.Invalidate(ctx, "game"))
	_, ok, err = cache.Get(ctx, "game")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachedProjectStore(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	backing := memory.NewStore()
	store := NewCachedProjectStore(backing, cache, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := backing.AddProject(ctx, domain.Project{Name: "warm", EncryptionKeyBase64: "warm-key"})
	require.NoError(t, err)
	warmed, err := store.Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, warmed)

	cached, ok, err := cache.Get(ctx, "warm")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "warm-key", cached)

	inserted, err := store.AddProject(ctx, domain.Project{Name: "game", EncryptionKeyBase64: "game-key"})
	require.NoError(t, err)
	assert.True(t, inserted)

	key, err := store.ProjectKey(ctx, "game")
	require.NoError(t, err)
	assert.Equal(t, "game-key", key)

	require.NoError(t, store.DeleteProject(ctx, "game"))
	_, err = store.ProjectKey(ctx, "game")
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	exists, err := store.ProjectExists(ctx, "game")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCachedProjectStore_ExistsIgnoresStaleKeys(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	store := NewCachedProjectStore(memory.NewStore(), cache, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// what a warm cycle leaves behind when a delete lands between its read and write
	require.NoError(t, cache.SetMany(ctx, map[string]string{"deleted": "stale-key"}))

	exists, err := store.ProjectExists(ctx, "deleted")
	require.NoError(t, err)
	assert.False(t, exists)
}
