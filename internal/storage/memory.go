package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/rohankatakam/graphbridge/internal/table"
)

// MemoryStore keeps tables in process memory. Stored and returned tables are copies.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]*table.Table
	blobs  map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string]*table.Table),
		blobs:  make(map[string][]byte),
	}
}

// Exists implements TableStore
func (s *MemoryStore) Exists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tables[name]
	return ok, nil
}

// Read implements TableStore
func (s *MemoryStore) Read(ctx context.Context, name string) (*table.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("table %s: %w", name, ErrNotFound)
	}
	return t.Clone(), nil
}

// Write implements TableStore
func (s *MemoryStore) Write(ctx context.Context, t *table.Table, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = t.Clone()
	return nil
}

// WriteBlob implements TableStore
func (s *MemoryStore) WriteBlob(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[name] = append([]byte(nil), data...)
	return nil
}

// ReadBlob returns a previously written artifact
func (s *MemoryStore) ReadBlob(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[name]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", name, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Close implements TableStore
func (s *MemoryStore) Close() error { return nil }
