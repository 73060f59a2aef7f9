package memory

import (
	"context"
	"fmt"
	"sync"
)

// BlobStore keeps archived page snapshots in-memory and returns pseudo URIs.
type BlobStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{data: make(map[string][]byte)}
}

// PutObject persists the content and returns a URI.
func (s *BlobStore) PutObject(_ context.Context, path string, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s", path), nil
}

// Object returns the stored content for path, if present.
func (s *BlobStore) Object(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[path]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}
