package patterns

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps patterns in a map keyed by the composite key. Individual
// calls are safe for concurrent use, but read-compute-write sequences around
// it are not atomic; managers must not be shared across goroutines without
// external synchronization.
type MemoryStore[T Pattern] struct {
	mu    sync.RWMutex
	items map[string]T
}

func NewMemoryStore[T Pattern]() *MemoryStore[T] {
	return &MemoryStore[T]{items: map[string]T{}}
}

func (s *MemoryStore[T]) Get(_ context.Context, key string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[key]
	if !ok {
		var zero T
		return zero, PatternError{Op: "get", Key: key, Err: ErrNotFound}
	}
	return p, nil
}

func (s *MemoryStore[T]) Save(_ context.Context, p T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[p.Key()]; ok {
		return PatternError{Op: "save", Key: p.Key(), Err: ErrConflict}
	}
	s.items[p.Key()] = p
	return nil
}

func (s *MemoryStore[T]) Update(_ context.Context, p T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[p.Key()]; !ok {
		return PatternError{Op: "update", Key: p.Key(), Err: ErrNotFound}
	}
	s.items[p.Key()] = p
	return nil
}

func (s *MemoryStore[T]) Upsert(_ context.Context, p T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.Key()] = p
	return nil
}

func (s *MemoryStore[T]) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; !ok {
		return PatternError{Op: "delete", Key: key, Err: ErrNotFound}
	}
	delete(s.items, key)
	return nil
}

func (s *MemoryStore[T]) List(_ context.Context) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.items[k])
	}
	return out, nil
}

func (s *MemoryStore[T]) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = map[string]T{}
	return nil
}
