// Package memory provides a process-local store for projects and scores.
// It backs the "memory" storage driver and the handler tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/highscore-api/internal/domain"
)

type entry struct {
	score domain.HighScore
	seq   uint64
}

type project struct {
	key    string
	scores map[string]*entry
}

// Store keeps projects and scores in memory. All methods are safe for
// concurrent use.
type Store struct {
	mu       sync.RWMutex
	projects map[string]*project
	seq      uint64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{projects: make(map[string]*project)}
}

// TopScores returns up to limit scores, highest first, ties in insertion order
func (s *Store) TopScores(_ context.Context, projectName string, limit int) ([]domain.HighScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[projectName]
	if !ok {
		return []domain.HighScore{}, nil
	}
	return topN(p, limit), nil
}

// GetScore returns the score of username within a project
func (s *Store) GetScore(_ context.Context, projectName, username string) (*domain.HighScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[projectName]
	if !ok {
		return nil, domain.ErrHighScoreNotFound
	}
	e, ok := p.scores[username]
	if !ok {
		return nil, domain.ErrHighScoreNotFound
	}
	hs := e.score
	return &hs, nil
}

// UpsertBest inserts hs or raises the stored score
func (s *Store) UpsertBest(_ context.Context, projectName string, hs domain.HighScore) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[projectName]
	if !ok {
		return false, domain.ErrProjectNotFound
	}

	if e, ok := p.scores[hs.Username]; ok {
		if e.score.Score >= hs.Score {
			return false, nil
		}
		e.score.Score = hs.Score
		return true, nil
	}

	s.seq++
	p.scores[hs.Username] = &entry{score: hs, seq: s.seq}
	return true, nil
}

// DeleteScore removes the score only if username and value both match
func (s *Store) DeleteScore(_ context.Context, projectName string, hs domain.HighScore) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[projectName]
	if !ok {
		return false, nil
	}
	e, ok := p.scores[hs.Username]
	if !ok || e.score.Score != hs.Score {
		return false, nil
	}
	delete(p.scores, hs.Username)
	return true, nil
}

// DeleteAllScores removes every score of a project
func (s *Store) DeleteAllScores(_ context.Context, projectName string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[projectName]
	if !ok {
		return 0, nil
	}
	removed := int64(len(p.scores))
	p.scores = make(map[string]*entry)
	return removed, nil
}

// GetProject returns a project with all of its scores, highest first
func (s *Store) GetProject(_ context.Context, name string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[name]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return &domain.Project{
		Name:                name,
		EncryptionKeyBase64: p.key,
		Scores:              topN(p, len(p.scores)),
	}, nil
}

// ProjectKey returns the encryption key of a project
func (s *Store) ProjectKey(_ context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[name]
	if !ok {
		return "", domain.ErrProjectNotFound
	}
	return p.key, nil
}

// ProjectExists reports whether a project exists
func (s *Store) ProjectExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.projects[name]
	return ok, nil
}

// AddProject stores p unless the name is taken
func (s *Store) AddProject(_ context.Context, p domain.Project) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[p.Name]; ok {
		return false, nil
	}
	s.projects[p.Name] = &project{key: p.EncryptionKeyBase64, scores: make(map[string]*entry)}
	return true, nil
}

// DeleteProject removes a project together with its scores
func (s *Store) DeleteProject(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.projects, name)
	return nil
}

// ListProjectKeys returns the key of every project by name
func (s *Store) ListProjectKeys(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make(map[string]string, len(s.projects))
	for name, p := range s.projects {
		keys[name] = p.key
	}
	return keys, nil
}

// Ping always succeeds
func (s *Store) Ping(context.Context) error {
	return nil
}

// Close is a no-op
func (s *Store) Close() {}

func topN(p *project, limit int) []domain.HighScore {
	entries := make([]*entry, 0, len(p.scores))
	for _, e := range p.scores {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score.Score != entries[j].score.Score {
			return entries[i].score.Score > entries[j].score.Score
		}
		return entries[i].seq < entries[j].seq
	})

	if limit < len(entries) {
		entries = entries[:limit]
	}
	result := make([]domain.HighScore, len(entries))
	for i, e := range entries {
		result[i] = e.score
	}
	return result
}
