package todos

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu    sync.RWMutex
	seq   int64
	items map[int64]*Todo
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{items: make(map[int64]*Todo)}
}

func (s *InMemory) Create(_ context.Context, t *Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t.ID = s.seq
	stored := *t
	s.items[t.ID] = &stored
	return nil
}

func (s *InMemory) Get(_ context.Context, id int64) (Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.items[id]
	if !ok {
		return Todo{}, ErrNotFound
	}
	return *t, nil
}

func (s *InMemory) ListByAccount(_ context.Context, accountID int64) ([]Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Todo, 0)
	for _, t := range s.items {
		if t.AccountID == accountID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) Update(_ context.Context, id int64, p Patch, updatedAt time.Time) (Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[id]
	if !ok {
		return Todo{}, ErrNotFound
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Note != nil {
		t.Note = *p.Note
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	t.UpdatedAt = updatedAt
	return *t, nil
}

func (s *InMemory) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *InMemory) DeleteByAccount(_ context.Context, accountID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.items {
		if t.AccountID == accountID {
			delete(s.items, id)
			n++
		}
	}
	return n, nil
}
