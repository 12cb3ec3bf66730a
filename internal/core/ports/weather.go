// Package ports defines the interfaces between the core services and
// the adapters and infrastructure that surround them. Services depend
// only on these contracts, never on concrete implementations.
package ports

import (
	"context"
	"time"

	"github.com/sean-rowe/weather-app/internal/core/domain"
)

// GeoLocationClient fetches geocoding results from the remote weather
// service. Implementations surface transport and parse failures as
// *domain.GeoLocationError and never retry.
type GeoLocationClient interface {
	// FetchGeoLocation resolves a free-text city name into a single
	// GeoLocation (the request always asks for one result).
	FetchGeoLocation(ctx context.Context, city string) (domain.GeoLocation, error)
}

// WeatherClient fetches current conditions from the remote weather
// service. Implementations surface transport and parse failures as
// *domain.WeatherDataError and never retry.
type WeatherClient interface {
	// FetchWeatherData retrieves current weather for the coordinates of
	// the given location.
	FetchWeatherData(ctx context.Context, location domain.GeoLocation) (domain.WeatherData, error)
}

// ReverseGeocoder resolves a device coordinate into a place. It backs
// the device-location flow so the session can skip the forward
// geocoding step.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon string) (domain.GeoLocation, error)
}

// GeoLocationProvider is the cache-backed resolver used by the session
// controller. Lookups for a city already resolved in this process never
// hit the network again.
type GeoLocationProvider interface {
	// GetGeoLocation returns the cached location for city or resolves it
	// through the client on a miss.
	GetGeoLocation(ctx context.Context, city string) (domain.GeoLocation, error)

	// UpdateGeoLocation inserts a location obtained outside the normal
	// geocoding path, e.g. from the device reverse-geocoder.
	UpdateGeoLocation(ctx context.Context, location domain.GeoLocation)
}

// WeatherProvider is the cache-backed weather source used by the
// session controller, keyed by the city of the resolved location.
type WeatherProvider interface {
	GetWeatherData(ctx context.Context, location domain.GeoLocation) (domain.WeatherData, error)
}

// CacheService abstracts the key-value cache used by the providers.
// A ttl of zero means the entry never expires.
type CacheService interface {
	// Get retrieves a value by key; returns the implementation's
	// miss error when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value under key for the given ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Clear removes all keys.
	Clear(ctx context.Context) error
}
