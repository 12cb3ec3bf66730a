// Package services contains the core application services: the
// cache-backed geo resolver and weather provider, and the session
// controller that orchestrates them.
package services

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-app/internal/core/domain"
	"github.com/sean-rowe/weather-app/internal/core/ports"
)

const geoCachePrefix = "geo:"

type geoLocationService struct {
	client ports.GeoLocationClient
	cache  ports.CacheService
	logger *zap.Logger
}

// NewGeoLocationService creates the cache-backed geo resolver.
//
// Parameters:
//   - client: Remote geocoding client
//   - cache: Cache shared for the process lifetime; entries never expire
//   - logger: Zap logger for resolver operations
//
// Returns:
//   - ports.GeoLocationProvider: Resolver implementation
func NewGeoLocationService(client ports.GeoLocationClient, cache ports.CacheService, logger *zap.Logger) ports.GeoLocationProvider {
	return &geoLocationService{
		client: client,
		cache:  cache,
		logger: logger,
	}
}

// GetGeoLocation returns the cached location for the city, or resolves
// it through the geocoding client on a miss. A fresh result is stored
// under the canonical returned city name and, when different, also
// under the queried name so both spellings hit the same entry later.
// Client errors are propagated unchanged and never cached. Concurrent
// misses for the same city are not de-duplicated; the GETs are
// idempotent and both writes store the same value.
func (s *geoLocationService) GetGeoLocation(ctx context.Context, city string) (domain.GeoLocation, error) {
	if cached, err := s.cache.Get(ctx, geoCachePrefix+city); err == nil {
		var location domain.GeoLocation

		if err := json.Unmarshal(cached, &location); err == nil {
			s.logger.Debug("geo location cache hit", zap.String("city", city))

			return location, nil
		}

		s.logger.Warn("discarding undecodable geo cache entry", zap.String("city", city))
	}

	location, err := s.client.FetchGeoLocation(ctx, city)

	if err != nil {
		return domain.GeoLocation{}, err
	}

	s.store(ctx, location)

	if location.City != city {
		s.storeAlias(ctx, city, location)
	}

	s.logger.Info("geo location resolved",
		zap.String("query", city),
		zap.String("city", location.City))

	return location, nil
}

// UpdateGeoLocation inserts a location resolved outside the geocoding
// path, e.g. by the device reverse-geocoder, so the next weather fetch
// for that city skips the network round trip.
func (s *geoLocationService) UpdateGeoLocation(ctx context.Context, location domain.GeoLocation) {
	s.store(ctx, location)
}

func (s *geoLocationService) store(ctx context.Context, location domain.GeoLocation) {
	s.storeAlias(ctx, location.City, location)
}

func (s *geoLocationService) storeAlias(ctx context.Context, key string, location domain.GeoLocation) {
	data, err := json.Marshal(location)

	if err != nil {
		s.logger.Error("failed to encode geo location for cache", zap.Error(err))

		return
	}

	// ttl 0 keeps the entry for the process lifetime
	if err := s.cache.Set(ctx, geoCachePrefix+key, data, 0); err != nil {
		s.logger.Warn("failed to cache geo location",
			zap.String("city", key),
			zap.Error(err))
	}
}
