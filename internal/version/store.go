package version

import (
	"context"
	"sync"

	"github.com/assetwatch/assetwatch/internal/model"
)

// Store keeps the last resolved descriptor per path.
type Store interface {
	Get(ctx context.Context, path string) (model.VersionDescriptor, bool, error)
	Put(ctx context.Context, desc model.VersionDescriptor) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu    sync.RWMutex
	byKey map[string]model.VersionDescriptor
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byKey: make(map[string]model.VersionDescriptor)}
}

// Get returns the descriptor for path, if any.
func (s *MemoryStore) Get(_ context.Context, path string) (model.VersionDescriptor, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	desc, ok := s.byKey[path]
	return desc, ok, nil
}

// Put replaces the descriptor for desc.Path.
func (s *MemoryStore) Put(_ context.Context, desc model.VersionDescriptor) error {
	s.mu.Lock()
	s.byKey[desc.Path] = desc
	s.mu.Unlock()
	return nil
}
