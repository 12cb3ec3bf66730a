// Package openweather implements a client for the OpenWeather API.
// This package serves as a secondary adapter, translating resolver and
// provider requests into OpenWeather calls and converting responses
// into domain objects.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-app/internal/core/domain"
)

// Breaker executes an outbound call under circuit-breaker protection.
// A nil Breaker on the client runs calls directly.
type Breaker interface {
	Execute(ctx context.Context, operation string, fn func() error) error
}

// Client talks to the OpenWeather geocoding and current-weather
// endpoints. It performs no retries: any transport or parse failure is
// surfaced immediately as a typed domain error.
type Client struct {
	// baseURL is the OpenWeather API base endpoint
	baseURL string

	// apiKey authenticates every request; supplied via configuration,
	// never hard-coded
	apiKey string

	// httpClient handles HTTP communication with timeout configuration
	httpClient *http.Client

	// breaker optionally guards outbound calls against a flapping upstream
	breaker Breaker

	// logger records API interactions and errors
	logger *zap.Logger
}

// NewClient creates a new OpenWeather API client.
//
// Parameters:
//   - baseURL: OpenWeather base URL (typically https://api.openweathermap.org)
//   - apiKey: API key from the build/runtime configuration
//   - httpClient: HTTP client with timeout configuration
//   - breaker: Optional circuit breaker for outbound calls; may be nil
//   - logger: Zap logger for API interaction logging
//
// Returns:
//   - *Client: Configured OpenWeather client
func NewClient(baseURL, apiKey string, httpClient *http.Client, breaker Breaker, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		breaker:    breaker,
		logger:     logger,
	}
}

// geoResult is one element of the geocoding response array. Lat and Lon
// stay json.Number so the original numeric literals survive the round
// trip into GeoLocation.
type geoResult struct {
	Name    string      `json:"name"`
	Lat     json.Number `json:"lat"`
	Lon     json.Number `json:"lon"`
	Country string      `json:"country"`
	State   string      `json:"state"`
}

// weatherResponse is the current-weather payload. Main is a pointer so
// a structurally valid body without the required object is detectable.
type weatherResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main *struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Pressure  int     `json:"pressure"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
}

// FetchGeoLocation resolves a free-text city name via the direct
// geocoding endpoint, requesting exactly one result.
//
// Parameters:
//   - ctx: Context for cancellation
//   - city: Free-text city name as typed by the user
//
// Returns:
//   - domain.GeoLocation: Canonical location for the city
//   - error: *domain.GeoLocationError on transport failure, non-success
//     status, malformed body, or an empty result set
func (c *Client) FetchGeoLocation(ctx context.Context, city string) (domain.GeoLocation, error) {
	endpoint := fmt.Sprintf("%s/geo/1.0/direct?q=%s&limit=1&appid=%s",
		c.baseURL, url.QueryEscape(city), c.apiKey)

	body, err := c.get(ctx, "geocode", endpoint)

	if err != nil {
		return domain.GeoLocation{}, domain.NewGeoLocationError(errCode(err), err)
	}

	var results []geoResult

	if err := json.Unmarshal(body, &results); err != nil {
		return domain.GeoLocation{}, domain.NewGeoLocationError(domain.ErrCodeParse, err)
	}

	if len(results) == 0 {
		return domain.GeoLocation{}, domain.NewGeoLocationError(domain.ErrCodeEmptyResult, nil)
	}

	location := toGeoLocation(results[0])

	c.logger.Debug("geocoding resolved",
		zap.String("query", city),
		zap.String("city", location.City))

	return location, nil
}

// ReverseGeocode resolves a device coordinate into a place via the
// reverse geocoding endpoint, requesting exactly one result.
//
// Parameters:
//   - ctx: Context for cancellation
//   - lat: Latitude in decimal degrees
//   - lon: Longitude in decimal degrees
//
// Returns:
//   - domain.GeoLocation: Place metadata for the coordinate
//   - error: *domain.GeoLocationError under the same conditions as
//     FetchGeoLocation
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon string) (domain.GeoLocation, error) {
	endpoint := fmt.Sprintf("%s/geo/1.0/reverse?lat=%s&lon=%s&limit=1&appid=%s",
		c.baseURL, url.QueryEscape(lat), url.QueryEscape(lon), c.apiKey)

	body, err := c.get(ctx, "reverse-geocode", endpoint)

	if err != nil {
		return domain.GeoLocation{}, domain.NewGeoLocationError(errCode(err), err)
	}

	var results []geoResult

	if err := json.Unmarshal(body, &results); err != nil {
		return domain.GeoLocation{}, domain.NewGeoLocationError(domain.ErrCodeParse, err)
	}

	if len(results) == 0 {
		return domain.GeoLocation{}, domain.NewGeoLocationError(domain.ErrCodeEmptyResult, nil)
	}

	// reverse results may omit lat/lon; keep the queried coordinate
	location := toGeoLocation(results[0])

	if location.Lat == "" {
		location.Lat = lat
	}

	if location.Lon == "" {
		location.Lon = lon
	}

	return location, nil
}

// FetchWeatherData retrieves current conditions for the coordinates of
// the given location.
//
// Parameters:
//   - ctx: Context for cancellation
//   - location: Resolved location whose lat/lon drive the request
//
// Returns:
//   - domain.WeatherData: Current conditions with display-ready temperatures
//   - error: *domain.WeatherDataError on transport failure, non-success
//     status, malformed body, or a missing main object
func (c *Client) FetchWeatherData(ctx context.Context, location domain.GeoLocation) (domain.WeatherData, error) {
	endpoint := fmt.Sprintf("%s/data/2.5/weather?lat=%s&lon=%s&appid=%s",
		c.baseURL, url.QueryEscape(location.Lat), url.QueryEscape(location.Lon), c.apiKey)

	body, err := c.get(ctx, "weather", endpoint)

	if err != nil {
		return domain.WeatherData{}, domain.NewWeatherDataError(errCode(err), err)
	}

	var response weatherResponse

	if err := json.Unmarshal(body, &response); err != nil {
		return domain.WeatherData{}, domain.NewWeatherDataError(domain.ErrCodeParse, err)
	}

	if response.Main == nil {
		return domain.WeatherData{}, domain.NewWeatherDataError(domain.ErrCodeParse, nil)
	}

	weather := domain.WeatherData{
		Temp:      domain.FormatTemperature(response.Main.Temp),
		FeelsLike: domain.FormatTemperature(response.Main.FeelsLike),
		TempMin:   domain.FormatTemperature(response.Main.TempMin),
		TempMax:   domain.FormatTemperature(response.Main.TempMax),
		Pressure:  response.Main.Pressure,
		Humidity:  response.Main.Humidity,
	}

	if len(response.Weather) > 0 {
		weather.Weather = response.Weather[0].Main
		weather.Description = response.Weather[0].Description
		weather.Icon = response.Weather[0].Icon
	}

	c.logger.Debug("weather fetched",
		zap.String("city", location.City),
		zap.String("temp", weather.Temp))

	return weather, nil
}

// statusError marks a non-success upstream status so the typed error
// can carry the BAD_STATUS code.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("openweather returned status %d", e.status)
}

// get performs one GET against the given endpoint, optionally under the
// circuit breaker, and returns the raw body of a successful response.
func (c *Client) get(ctx context.Context, operation, endpoint string) ([]byte, error) {
	var body []byte

	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)

		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)

		if err != nil {
			c.logger.Warn("openweather request failed",
				zap.String("operation", operation),
				zap.Error(err))

			return err
		}

		defer func() {
			_ = resp.Body.Close()
		}()

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			c.logger.Warn("openweather returned non-success status",
				zap.String("operation", operation),
				zap.Int("status", resp.StatusCode))

			return &statusError{status: resp.StatusCode}
		}

		body, err = io.ReadAll(resp.Body)

		return err
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(ctx, operation, call); err != nil {
			return nil, err
		}

		return body, nil
	}

	if err := call(); err != nil {
		return nil, err
	}

	return body, nil
}

// errCode maps a transport-level failure to a domain error code.
func errCode(err error) string {
	var se *statusError

	if errors.As(err, &se) {
		return domain.ErrCodeBadStatus
	}

	return domain.ErrCodeRequestFailed
}

func toGeoLocation(result geoResult) domain.GeoLocation {
	return domain.GeoLocation{
		City:    result.Name,
		Lat:     result.Lat.String(),
		Lon:     result.Lon.String(),
		Country: result.Country,
		State:   result.State,
	}
}
