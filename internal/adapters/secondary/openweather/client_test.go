// Package openweather contains unit tests for the OpenWeather client.
package openweather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-app/internal/core/domain"
)

const geoResponse = `[
  {
    "name": "Province of Turin",
    "lat": 45.133,
    "lon": 7.367,
    "country": "IT"
  }
]`

const weatherResponseJSON = `{
  "coord": {"lon": 7.367, "lat": 45.133},
  "weather": [
    {"id": 501, "main": "Rain", "description": "moderate rain", "icon": "10d"}
  ],
  "base": "stations",
  "main": {
    "temp": 284.2,
    "feels_like": 282.93,
    "temp_min": 283.06,
    "temp_max": 286.82,
    "pressure": 1021,
    "humidity": 60,
    "sea_level": 1021,
    "grnd_level": 910
  },
  "visibility": 10000,
  "wind": {"speed": 4.09, "deg": 121, "gust": 3.47},
  "rain": {"1h": 2.73},
  "clouds": {"all": 83},
  "dt": 1726660758,
  "sys": {"type": 1, "id": 6736, "country": "IT", "sunrise": 1726636384, "sunset": 1726680975},
  "timezone": 7200,
  "id": 3165523,
  "name": "Province of Turin",
  "cod": 200
}`

func newTestClient(serverURL string) *Client {
	return NewClient(serverURL, "test-key", &http.Client{}, nil, zap.NewNop())
}

// TestClient_FetchGeoLocation tests forward geocoding.
func TestClient_FetchGeoLocation(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/geo/1.0/direct", r.URL.Path)
			assert.Equal(t, "turin", r.URL.Query().Get("q"))
			assert.Equal(t, "1", r.URL.Query().Get("limit"))
			assert.Equal(t, "test-key", r.URL.Query().Get("appid"))

			_, _ = w.Write([]byte(geoResponse))
		}))
		defer server.Close()

		location, err := newTestClient(server.URL).FetchGeoLocation(context.Background(), "turin")

		require.NoError(t, err)
		assert.Equal(t, domain.GeoLocation{
			City:    "Province of Turin",
			Lat:     "45.133",
			Lon:     "7.367",
			Country: "IT",
		}, location)
	})

	t.Run("empty result set", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchGeoLocation(context.Background(), "nowhere")

		var geoErr *domain.GeoLocationError
		require.ErrorAs(t, err, &geoErr)
		assert.Equal(t, domain.ErrCodeEmptyResult, geoErr.Code)
		assert.Equal(t, "Failed to parse geo location", geoErr.Message)
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchGeoLocation(context.Background(), "turin")

		var geoErr *domain.GeoLocationError
		require.ErrorAs(t, err, &geoErr)
		assert.Equal(t, domain.ErrCodeParse, geoErr.Code)
	})

	t.Run("non-success status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchGeoLocation(context.Background(), "turin")

		var geoErr *domain.GeoLocationError
		require.ErrorAs(t, err, &geoErr)
		assert.Equal(t, domain.ErrCodeBadStatus, geoErr.Code)
		assert.Equal(t, "Error fetching geo location", geoErr.Message)
	})

	t.Run("unreachable server", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		server.Close()

		_, err := newTestClient(server.URL).FetchGeoLocation(context.Background(), "turin")

		var geoErr *domain.GeoLocationError
		require.ErrorAs(t, err, &geoErr)
		assert.Equal(t, domain.ErrCodeRequestFailed, geoErr.Code)
		assert.Equal(t, "Error fetching geo location", geoErr.Message)
	})
}

// TestClient_ReverseGeocode tests the device-location resolution.
func TestClient_ReverseGeocode(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/geo/1.0/reverse", r.URL.Path)
			assert.Equal(t, "45.133", r.URL.Query().Get("lat"))
			assert.Equal(t, "7.367", r.URL.Query().Get("lon"))

			_, _ = w.Write([]byte(geoResponse))
		}))
		defer server.Close()

		location, err := newTestClient(server.URL).ReverseGeocode(context.Background(), "45.133", "7.367")

		require.NoError(t, err)
		assert.Equal(t, "Province of Turin", location.City)
	})

	t.Run("missing coordinates filled from query", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"name": "Province of Turin", "country": "IT"}]`))
		}))
		defer server.Close()

		location, err := newTestClient(server.URL).ReverseGeocode(context.Background(), "45.133", "7.367")

		require.NoError(t, err)
		assert.Equal(t, "45.133", location.Lat)
		assert.Equal(t, "7.367", location.Lon)
	})
}

// TestClient_FetchWeatherData tests the current-conditions fetch.
func TestClient_FetchWeatherData(t *testing.T) {
	turin := domain.GeoLocation{City: "Province of Turin", Lat: "45.133", Lon: "7.367", Country: "IT"}

	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/data/2.5/weather", r.URL.Path)
			assert.Equal(t, "45.133", r.URL.Query().Get("lat"))
			assert.Equal(t, "7.367", r.URL.Query().Get("lon"))
			assert.Equal(t, "test-key", r.URL.Query().Get("appid"))

			_, _ = w.Write([]byte(weatherResponseJSON))
		}))
		defer server.Close()

		weather, err := newTestClient(server.URL).FetchWeatherData(context.Background(), turin)

		require.NoError(t, err)
		assert.Equal(t, domain.WeatherData{
			Temp:        "284.2",
			FeelsLike:   "282.93",
			TempMin:     "283.06",
			TempMax:     "286.82",
			Pressure:    1021,
			Humidity:    60,
			Weather:     "Rain",
			Description: "moderate rain",
			Icon:        "10d",
		}, weather)
	})

	t.Run("non-success status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchWeatherData(context.Background(), turin)

		var weatherErr *domain.WeatherDataError
		require.ErrorAs(t, err, &weatherErr)
		assert.Equal(t, domain.ErrCodeBadStatus, weatherErr.Code)
		assert.Equal(t, "Error fetching weather data", weatherErr.Message)
	})

	t.Run("missing main object", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"weather": [], "cod": 200}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchWeatherData(context.Background(), turin)

		var weatherErr *domain.WeatherDataError
		require.ErrorAs(t, err, &weatherErr)
		assert.Equal(t, domain.ErrCodeParse, weatherErr.Code)
		assert.Equal(t, "Failed to parse weather data", weatherErr.Message)
	})
}
