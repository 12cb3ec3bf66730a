package middleware

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-app/internal/core/ports"
)

// MemoryRateLimiter is the sliding-window rate limiter used when Redis
// is disabled or unreachable. State is per-instance only.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	clients map[string][]time.Time
	logger  *zap.Logger
}

// NewMemoryRateLimiter creates an in-memory rate limiter and starts its
// idle-client sweeper.
//
// Parameters:
//   - logger: Zap logger for limiter operations
//
// Returns:
//   - ports.RateLimitService: In-memory limiter implementation
func NewMemoryRateLimiter(logger *zap.Logger) ports.RateLimitService {
	rl := &MemoryRateLimiter{
		clients: make(map[string][]time.Time),
		logger:  logger,
	}

	go rl.cleanup()

	return rl
}

// Allow reports whether the identifier has remaining quota in the
// window and records the attempt.
func (rl *MemoryRateLimiter) Allow(ctx context.Context, identifier string, limit int, window time.Duration) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	now := time.Now()
	cutoff := now.Add(-window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	requests := rl.clients[identifier]
	valid := requests[:0]

	for _, req := range requests {
		if req.After(cutoff) {
			valid = append(valid, req)
		}
	}

	if len(valid) >= limit {
		rl.clients[identifier] = valid

		return false, nil
	}

	rl.clients[identifier] = append(valid, now)

	return true, nil
}

// Reset clears the recorded attempts for the identifier.
func (rl *MemoryRateLimiter) Reset(ctx context.Context, identifier string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	delete(rl.clients, identifier)

	return nil
}

// cleanup drops idle clients every five minutes so the map stays
// bounded.
func (rl *MemoryRateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()

		for identifier, requests := range rl.clients {
			if len(requests) == 0 {
				delete(rl.clients, identifier)
			}
		}

		rl.mu.Unlock()
	}
}
