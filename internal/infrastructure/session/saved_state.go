// Package session provides the transient save slot backing the session
// controller's candidate city. It survives a controller restart within
// the same process but makes no durability promises beyond that.
package session

import (
	"sync"

	"github.com/sean-rowe/weather-app/internal/core/ports"
)

// MemorySavedState is a small thread-safe string map.
type MemorySavedState struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemorySavedState creates an empty save slot.
func NewMemorySavedState() *MemorySavedState {
	return &MemorySavedState{
		values: make(map[string]string),
	}
}

var _ ports.SavedStateStore = (*MemorySavedState)(nil)

// Get returns the stored value and whether it was present.
func (s *MemorySavedState) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]

	return value, ok
}

// Set stores the value, last write wins.
func (s *MemorySavedState) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
}
