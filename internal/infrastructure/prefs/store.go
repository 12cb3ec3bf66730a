// Package prefs implements the location preference store: a single
// durable city name under the "location-preferences" namespace, exposed
// as an observable value. Writes are asynchronous and best-effort;
// reads degrade to an empty value instead of failing.
package prefs

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-app/internal/core/ports"
)

const (
	// Namespace groups the location preference keys in the backend.
	Namespace = "location-preferences"

	// cityKey is the single preference key this store manages.
	cityKey = "city"

	// writeTimeout bounds one detached persistence attempt.
	writeTimeout = 5 * time.Second
)

// ErrNotFound is returned by backends when a preference key has never
// been written.
var ErrNotFound = errors.New("preference not found")

// Backend is the durable key-value storage the store writes through.
// Implementations handle their own concurrency and durability.
type Backend interface {
	Get(ctx context.Context, namespace, key string) (string, error)
	Set(ctx context.Context, namespace, key, value string) error
}

// Store persists the last-searched city and broadcasts every
// successful write to all observers.
type Store struct {
	backend Backend
	logger  *zap.Logger

	mu          sync.Mutex
	subscribers map[int]chan string
	nextSubID   int
}

// NewStore creates a preference store over the given backend.
//
// Parameters:
//   - backend: Durable key-value storage
//   - logger: Zap logger for persistence failures
//
// Returns:
//   - *Store: Preference store implementing ports.PreferenceStore
func NewStore(backend Backend, logger *zap.Logger) *Store {
	return &Store{
		backend:     backend,
		logger:      logger,
		subscribers: make(map[int]chan string),
	}
}

var _ ports.PreferenceStore = (*Store)(nil)

// ObserveCity emits the currently persisted city immediately, then the
// latest value after every successful write, until ctx is done. A read
// failure degrades to an empty string; the stream never terminates on
// storage errors.
func (s *Store) ObserveCity(ctx context.Context) <-chan string {
	ch := make(chan string, 4)

	current, err := s.backend.Get(ctx, Namespace, cityKey)

	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("preference read failed, emitting empty value", zap.Error(err))
		}

		current = ""
	}

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	ch <- current
	s.mu.Unlock()

	go func() {
		<-ctx.Done()

		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.subscribers, id)
		close(ch)
	}()

	return ch
}

// SetCity persists the city on a detached goroutine. A write failure is
// logged and swallowed; it never reaches the caller and nothing is
// broadcast for it.
func (s *Store) SetCity(city string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := s.backend.Set(ctx, Namespace, cityKey, city); err != nil {
			// TODO route persistence failures to the telemetry error counter
			s.logger.Warn("failed to persist city preference",
				zap.String("city", city),
				zap.Error(err))

			return
		}

		s.broadcast(city)
	}()
}

func (s *Store) broadcast(city string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- city:
		default:
		}
	}
}
