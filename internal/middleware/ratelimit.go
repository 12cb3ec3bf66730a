package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-app/internal/core/ports"
)

// RateLimitMiddleware throttles the stateless weather route per client
// IP using the configured RateLimitService. The session routes are not
// throttled; they serve a single interactive user.
type RateLimitMiddleware struct {
	service ports.RateLimitService
	limit   int
	window  time.Duration
	logger  *zap.Logger
}

// NewRateLimitMiddleware creates the rate limiting middleware.
//
// Parameters:
//   - service: Rate limit backend (memory or Redis)
//   - limit: Maximum requests per window
//   - window: Sliding window duration
//   - logger: Zap logger for limit decisions
//
// Returns:
//   - *RateLimitMiddleware: Configured middleware
func NewRateLimitMiddleware(service ports.RateLimitService, limit int, window time.Duration, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		service: service,
		limit:   limit,
		window:  window,
		logger:  logger,
	}
}

// Middleware rejects requests over the limit with 429. A rate limiter
// backend failure fails open so an unavailable Redis never takes the
// gateway down with it.
func (m *RateLimitMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := GetClientIP(r)

		allowed, err := m.service.Allow(r.Context(), clientIP, m.limit, m.window)

		if err != nil {
			m.logger.Warn("rate limiter unavailable, allowing request",
				zap.String("client_ip", clientIP),
				zap.Error(err))

			next.ServeHTTP(w, r)

			return
		}

		if !allowed {
			m.logger.Debug("rate limit exceeded", zap.String("client_ip", clientIP))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)

			return
		}

		next.ServeHTTP(w, r)
	})
}
