package statestore

import (
	"context"
	"sync"
)

// MemoryStore implements Store with process-lifetime maps. It is the default
// driver and the one used throughout the tests.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]Table
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string]Table),
	}
}

// Read implements Store. Unknown tables read as empty, not as an error.
func (s *MemoryStore) Read(ctx context.Context, table string) (Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.tables[table]
	if !ok {
		return Table{}, nil
	}
	return Clone(rows), nil
}

// Write implements Store.
func (s *MemoryStore) Write(ctx context.Context, table string, rows Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables[table] = Clone(rows)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables = nil
	return nil
}
