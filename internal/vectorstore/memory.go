package vectorstore

import (
	"context"
	"slices"
	"sync"

	"github.com/spigell/assessment-recommender/internal/catalog"
)

// MemoryStore keeps everything in process memory. It backs the ingest and
// recommender tests, where a SQLite file is not needed.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Item
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Item)}
}

func (s *MemoryStore) Upsert(_ context.Context, items []Item) error {
	if err := validate(items); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range items {
		a := *it.Assessment
		it.Assessment = &a
		it.Embedding = slices.Clone(it.Embedding)
		s.items[a.URL] = it
	}
	return nil
}

func (s *MemoryStore) Nearest(ctx context.Context, vec []float32, n int) ([]catalog.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]catalog.Hit, 0, len(s.items))
	for _, it := range s.items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, err := Distance(vec, it.Embedding)
		if err != nil {
			return nil, err
		}
		a := *it.Assessment
		hits = append(hits, catalog.Hit{Assessment: &a, Distance: d})
	}

	return rank(hits, n), nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
