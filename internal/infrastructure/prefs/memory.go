package prefs

import (
	"context"
	"sync"
)

// MemoryBackend keeps preferences in process memory. It is the
// fallback when the database is disabled or unreachable, and the
// backend used by tests.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		values: make(map[string]string),
	}
}

// Get returns the stored value or ErrNotFound.
func (m *MemoryBackend) Get(_ context.Context, namespace, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[namespace+"/"+key]

	if !ok {
		return "", ErrNotFound
	}

	return value, nil
}

// Set stores the value, last write wins.
func (m *MemoryBackend) Set(_ context.Context, namespace, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[namespace+"/"+key] = value

	return nil
}
