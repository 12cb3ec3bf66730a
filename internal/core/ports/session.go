package ports

import (
	"context"
	"time"
)

// PreferenceStore persists the last successfully fetched city and
// exposes it as an observable value.
type PreferenceStore interface {
	// ObserveCity emits the currently persisted city immediately, then
	// the latest value after every write, until ctx is done. A storage
	// read failure degrades to an empty string instead of an error.
	ObserveCity(ctx context.Context) <-chan string

	// SetCity persists the city asynchronously. Failures are swallowed;
	// the caller's control flow is never affected.
	SetCity(city string)
}

// SavedStateStore is the transient per-session save slot. It survives a
// controller restart within the same deployment but carries no
// durability guarantees beyond that.
type SavedStateStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// RateLimitService decides whether a request identified by a client key
// may proceed within the given window.
type RateLimitService interface {
	// Allow reports whether identifier has remaining quota for the
	// window and records the attempt.
	Allow(ctx context.Context, identifier string, limit int, window time.Duration) (bool, error)

	// Reset clears the recorded attempts for identifier.
	Reset(ctx context.Context, identifier string) error
}
