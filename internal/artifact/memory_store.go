package artifact

import (
	"context"
	"sync"
)

// MemoryStore keeps artifacts in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	prefix string
	data   map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(prefix string) *MemoryStore {
	return &MemoryStore{
		prefix: prefix,
		data:   make(map[string][]byte),
	}
}

// Put stores a copy of content and returns a mem:// URL.
func (s *MemoryStore) Put(_ context.Context, runID, name, _ string, content []byte) (string, error) {
	key, err := objectKey(s.prefix, runID, name)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), content...)
	return "mem://" + key, nil
}

// Get returns a copy of a stored object.
func (s *MemoryStore) Get(_ context.Context, runID, name string) ([]byte, error) {
	key, err := objectKey(s.prefix, runID, name)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*S3Store)(nil)
)
