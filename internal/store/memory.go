package store

import (
	"context"
	"sort"
	"sync"

	"paperduel/internal/domain"
)

// Compile-time interface check.
var _ RunStore = (*MemoryStore)(nil)

// MemoryStore keeps run results in process memory. Results are cloned on
// the way in and out so callers cannot mutate stored state.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*domain.RunResult
}

// NewMemoryStore returns an empty in-memory run store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*domain.RunResult)}
}

// Put inserts or replaces the result for its run ID.
func (s *MemoryStore) Put(_ context.Context, result *domain.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[result.RunID] = result.Clone()
	return nil
}

// Get retrieves the result for a run ID, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, runID string) (*domain.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return result.Clone(), nil
}

// List returns the IDs of all stored runs, sorted ascending.
func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
