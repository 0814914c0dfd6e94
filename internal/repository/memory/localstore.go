package memory

import (
	"context"
	"sync"
)

// LocalStore implements repository.LocalStore using an in-memory map. It is
// used in tests and when running without Redis.
type LocalStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewLocalStore creates an empty in-memory store.
func NewLocalStore() *LocalStore {
	return &LocalStore{items: make(map[string][]byte)}
}

// GetItem returns a copy of the stored value.
func (s *LocalStore) GetItem(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// SetItem stores a copy of value.
func (s *LocalStore) SetItem(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = append([]byte(nil), value...)
	return nil
}

// RemoveItem deletes key.
func (s *LocalStore) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

// Len returns the number of stored keys.
func (s *LocalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
