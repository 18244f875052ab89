package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// InMemorySnapshotStore implements SnapshotStore for testing and for the
// MCP server when no database is configured.
type InMemorySnapshotStore struct {
	mu   sync.RWMutex
	runs map[string][]byte
}

// NewInMemorySnapshotStore creates a new in-memory store.
func NewInMemorySnapshotStore() *InMemorySnapshotStore {
	return &InMemorySnapshotStore{runs: make(map[string][]byte)}
}

// Save stores an encoded copy of run so later edits by the caller do not
// leak into the store.
func (s *InMemorySnapshotStore) Save(ctx context.Context, run *Run) (string, error) {
	if err := prepareRun(run); err != nil {
		return "", err
	}
	data, err := json.Marshal(run)
	if err != nil {
		return "", fmt.Errorf("failed to encode run: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = data
	return run.ID, nil
}

// Get returns a copy of the run with id.
func (s *InMemorySnapshotStore) Get(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	data, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
	}
	return &run, nil
}

// List returns every run, newest first. Runs are decoded under the read
// lock so a concurrent Delete cannot remove one mid-listing.
func (s *InMemorySnapshotStore) List(ctx context.Context) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RunSummary, 0, len(s.runs))
	for id, data := range s.runs {
		var run Run
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
		}
		out = append(out, summarize(&run))
	}
	sortSummaries(out)
	return out, nil
}

// Delete removes a run.
func (s *InMemorySnapshotStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	delete(s.runs, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemorySnapshotStore) Close() error {
	return nil
}

// sortSummaries orders runs newest first, breaking ties by id.
func sortSummaries(runs []RunSummary) {
	slices.SortFunc(runs, func(a, b RunSummary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
