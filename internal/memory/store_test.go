package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/highscore-api/internal/domain"
)

func newStoreWithProject(t *testing.T, name string) *Store {
	t.Helper()
	s := NewStore()
	inserted, err := s.AddProject(context.Background(), domain.Project{Name: name, EncryptionKeyBase64: "key"})
	require.NoError(t, err)
	require.True(t, inserted)
	return s
}

func TestUpsertBest(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithProject(t, "game")

	changed, err := s.UpsertBest(ctx, "game", domain.HighScore{Username: "ada", Score: 10})
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.UpsertBest(ctx, "game", domain.HighScore{Username: "ada", Score: 5})
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = s.UpsertBest(ctx, "game", domain.HighScore{Username: "ada", Score: 10})
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = s.UpsertBest(ctx, "game", domain.HighScore{Username: "ada", Score: 11})
	require.NoError(t, err)
	assert.True(t, changed)

	hs, err := s.GetScore(ctx, "game", "ada")
	require.NoError(t, err)
	assert.Equal(t, int64(11), hs.Score)

	_, err = s.UpsertBest(ctx, "missing", domain.HighScore{Username: "ada", Score: 1})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestTopScores_OrderAndTies(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithProject(t, "game")

	for _, hs := range []domain.HighScore{
		{Username: "first", Score: 50},
		{Username: "second", Score: 70},
		{Username: "third", Score: 50},
		{Username: "fourth", Score: 10},
	} {
		_, err := s.UpsertBest(ctx, "game", hs)
		require.NoError(t, err)
	}

	top, err := s.TopScores(ctx, "game", 3)
	require.NoError(t, err)
	assert.Equal(t, []domain.HighScore{
		{Username: "second", Score: 70},
		{Username: "first", Score: 50},
		{Username: "third", Score: 50},
	}, top)

	top, err = s.TopScores(ctx, "unknown", 3)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestDeleteScore_RequiresExactValue(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithProject(t, "game")
	_, err := s.UpsertBest(ctx, "game", domain.HighScore{Username: "ada", Score: 10})
	require.NoError(t, err)

	deleted, err := s.DeleteScore(ctx, "game", domain.HighScore{Username: "ada", Score: 9})
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.DeleteScore(ctx, "game", domain.HighScore{Username: "ada", Score: 10})
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = s.GetScore(ctx, "game", "ada")
	assert.ErrorIs(t, err, domain.ErrHighScoreNotFound)
}

func TestProjects(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithProject(t, "game")

	inserted, err := s.AddProject(ctx, domain.Project{Name: "game", EncryptionKeyBase64: "other"})
	require.NoError(t, err)
	assert.False(t, inserted)

	key, err := s.ProjectKey(ctx, "game")
	require.NoError(t, err)
	assert.Equal(t, "key", key)

	_, err = s.UpsertBest(ctx, "game", domain.HighScore{Username: "ada", Score: 3})
	require.NoError(t, err)

	p, err := s.GetProject(ctx, "game")
	require.NoError(t, err)
	assert.Equal(t, []domain.HighScore{{Username: "ada", Score: 3}}, p.Scores)

	keys, err := s.ListProjectKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"game": "key"}, keys)

	require.NoError(t, s.DeleteProject(ctx, "game"))
	require.NoError(t, s.DeleteProject(ctx, "game"))

	_, err = s.GetProject(ctx, "game")
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	_, err = s.GetScore(ctx, "game", "ada")
	assert.ErrorIs(t, err, domain.ErrHighScoreNotFound)
}

func TestUpsertBest_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithProject(t, "game")

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(score int64) {
			defer wg.Done()
			_, err := s.UpsertBest(ctx, "game", domain.HighScore{Username: "racer", Score: score})
			assert.NoError(t, err)
			_, err = s.UpsertBest(ctx, "game", domain.HighScore{Username: fmt.Sprintf("user-%d", score), Score: score})
			assert.NoError(t, err)
		}(int64(i))
	}
	wg.Wait()

	hs, err := s.GetScore(ctx, "game", "racer")
	require.NoError(t, err)
	assert.Equal(t, int64(100), hs.Score)

	top, err := s.TopScores(ctx, "game", 1000)
	require.NoError(t, err)
	assert.Len(t, top, 101)
}
