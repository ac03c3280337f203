package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/papercomputeco/ideas/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of ideas
	mu sync.RWMutex

	// ideas is the in memory map of ideas keyed by ID
	ideas map[string]*storage.Idea
}

// NewDriver creates a new in-memory storer.
func NewDriver() *Driver {
	return &Driver{
		ideas: make(map[string]*storage.Idea),
	}
}

// Put stores a copy of the idea. Returns false if the ID already existed.
func (s *Driver) Put(_ context.Context, idea *storage.Idea) (bool, error) {
	if err := idea.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ideas[idea.ID]; ok {
		return false, nil
	}

	stored := *idea
	s.ideas[idea.ID] = &stored
	return true, nil
}

// Get retrieves a copy of an idea by its ID.
func (s *Driver) Get(_ context.Context, id string) (*storage.Idea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idea, ok := s.ideas[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}

	out := *idea
	return &out, nil
}

// List returns up to limit ideas, most recently completed first.
func (s *Driver) List(_ context.Context, limit int) ([]*storage.Idea, error) {
	s.mu.RLock()
	result := make([]*storage.Idea, 0, len(s.ideas))
	for _, idea := range s.ideas {
		out := *idea
		result = append(result, &out)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CompletedAt.Equal(result[j].CompletedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CompletedAt.After(result[j].CompletedAt)
	})

	if limit = storage.ClampLimit(limit); len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Count returns the number of stored ideas.
func (s *Driver) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ideas), nil
}

// Close is a no-op for the in-memory storer.
func (s *Driver) Close() error {
	return nil
}
