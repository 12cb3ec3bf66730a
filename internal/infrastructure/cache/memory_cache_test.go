// Package cache contains unit tests for the in-memory cache.
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestMemoryCache_GetSet tests the basic round trip and miss behavior.
func TestMemoryCache_GetSet(t *testing.T) {
	cache := NewMemoryCache(5*time.Minute, 10*time.Minute, zap.NewNop())
	ctx := context.Background()

	_, err := cache.Get(ctx, "geo:turin")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "geo:turin", []byte(`{"city":"Province of Turin"}`), 0))

	value, err := cache.Get(ctx, "geo:turin")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"city":"Province of Turin"}`), value)
}

// TestMemoryCache_ZeroTTLNeverExpires tests that zero-ttl entries
// survive past the default expiry.
func TestMemoryCache_ZeroTTLNeverExpires(t *testing.T) {
	// Aggressive default expiry; the zero-ttl write must outlive it.
	cache := NewMemoryCache(10*time.Millisecond, time.Minute, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "weather:Berlin", []byte("data"), 0))

	time.Sleep(30 * time.Millisecond)

	value, err := cache.Get(ctx, "weather:Berlin")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), value)
}

// TestMemoryCache_PositiveTTLExpires tests that explicit ttls still
// apply.
func TestMemoryCache_PositiveTTLExpires(t *testing.T) {
	cache := NewMemoryCache(time.Minute, time.Minute, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), 10*time.Millisecond))

	require.Eventually(t, func() bool {
		_, err := cache.Get(ctx, "k")

		return err != nil
	}, time.Second, 5*time.Millisecond)
}

// TestMemoryCache_DeleteAndClear tests removal operations.
func TestMemoryCache_DeleteAndClear(t *testing.T) {
	cache := NewMemoryCache(5*time.Minute, 10*time.Minute, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, cache.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, cache.Delete(ctx, "a"))

	_, err := cache.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, cache.Clear(ctx))

	_, err = cache.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
