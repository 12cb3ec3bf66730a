package services

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-app/internal/core/domain"
	"github.com/sean-rowe/weather-app/internal/core/ports"
)

const weatherCachePrefix = "weather:"

type weatherService struct {
	client ports.WeatherClient
	cache  ports.CacheService
	logger *zap.Logger
}

// NewWeatherService creates the cache-backed weather provider. The
// cache is keyed by the city of the resolved location, so repeated
// fetches for a city call the remote client exactly once per process.
//
// Parameters:
//   - client: Remote weather client
//   - cache: Cache shared for the process lifetime; entries never expire
//   - logger: Zap logger for provider operations
//
// Returns:
//   - ports.WeatherProvider: Provider implementation
func NewWeatherService(client ports.WeatherClient, cache ports.CacheService, logger *zap.Logger) ports.WeatherProvider {
	return &weatherService{
		client: client,
		cache:  cache,
		logger: logger,
	}
}

// GetWeatherData returns the cached conditions for the location's city,
// or fetches them through the weather client on a miss. Client errors
// are propagated unchanged and never cached.
func (s *weatherService) GetWeatherData(ctx context.Context, location domain.GeoLocation) (domain.WeatherData, error) {
	key := weatherCachePrefix + location.City

	if cached, err := s.cache.Get(ctx, key); err == nil {
		var weather domain.WeatherData

		if err := json.Unmarshal(cached, &weather); err == nil {
			s.logger.Debug("weather data cache hit", zap.String("city", location.City))

			return weather, nil
		}

		s.logger.Warn("discarding undecodable weather cache entry", zap.String("city", location.City))
	}

	weather, err := s.client.FetchWeatherData(ctx, location)

	if err != nil {
		return domain.WeatherData{}, err
	}

	if data, err := json.Marshal(weather); err == nil {
		if err := s.cache.Set(ctx, key, data, 0); err != nil {
			s.logger.Warn("failed to cache weather data",
				zap.String("city", location.City),
				zap.Error(err))
		}
	}

	s.logger.Info("weather data fetched",
		zap.String("city", location.City),
		zap.String("temp", weather.Temp))

	return weather, nil
}
