// Package rest implements the HTTP surface of the weather app. It
// translates requests into session operations and provider lookups and
// formats domain results for clients.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-app/internal/core/domain"
	"github.com/sean-rowe/weather-app/internal/core/ports"
	"github.com/sean-rowe/weather-app/internal/middleware"
)

// WeatherHandler serves the stateless weather lookup: resolve a city,
// fetch its current conditions, no session involved.
type WeatherHandler struct {
	geoProvider     ports.GeoLocationProvider
	weatherProvider ports.WeatherProvider
	logger          *zap.Logger
}

// NewWeatherHandler creates the stateless weather lookup handler.
//
// Parameters:
//   - geoProvider: Cache-backed geo resolver
//   - weatherProvider: Cache-backed weather provider
//   - logger: Zap logger for request logging
//
// Returns:
//   - *WeatherHandler: Configured handler instance
func NewWeatherHandler(geoProvider ports.GeoLocationProvider, weatherProvider ports.WeatherProvider, logger *zap.Logger) *WeatherHandler {
	return &WeatherHandler{
		geoProvider:     geoProvider,
		weatherProvider: weatherProvider,
		logger:          logger,
	}
}

// LocationResponse is the JSON shape of a resolved location.
type LocationResponse struct {
	City    string `json:"city"`
	Lat     string `json:"lat"`
	Lon     string `json:"lon"`
	Country string `json:"country"`
	State   string `json:"state,omitempty"`
}

// WeatherResponse is the JSON shape of a weather report. Temperatures
// are pre-formatted strings, already rounded for display. Location is
// omitted on surfaces that only carry the report itself.
type WeatherResponse struct {
	Location    *LocationResponse `json:"location,omitempty"`
	Temp        string            `json:"temp"`
	FeelsLike   string            `json:"feels_like"`
	TempMin     string            `json:"temp_min"`
	TempMax     string            `json:"temp_max"`
	Pressure    int               `json:"pressure"`
	Humidity    int               `json:"humidity"`
	Weather     string            `json:"weather"`
	Description string            `json:"description"`
	IconURL     string            `json:"icon_url"`
}

// ErrorResponse represents a standardized error response structure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// GetWeather handles GET requests for current weather by city name.
//
// Parameters:
//   - w: HTTP response writer
//   - r: HTTP request containing a 'city' query parameter
//
// Response codes:
//   - 200: Success with WeatherResponse JSON
//   - 400: Missing city parameter (MISSING_CITY)
//   - 404: City not found (EMPTY_RESULT)
//   - 502: Upstream returned an unusable payload (PARSE_ERROR)
//   - 503: Upstream unavailable (REQUEST_FAILED, BAD_STATUS)
func (h *WeatherHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")

	if city == "" {
		respondWithError(
			w,
			h.logger,
			http.StatusBadRequest,
			"MISSING_CITY",
			"The 'city' query parameter is required",
		)

		return
	}

	location, err := h.geoProvider.GetGeoLocation(r.Context(), city)

	if err != nil {
		h.handleProviderError(w, r, err)
		return
	}

	weather, err := h.weatherProvider.GetWeatherData(r.Context(), location)

	if err != nil {
		h.handleProviderError(w, r, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, NewWeatherResponse(location, weather))
}

// NewWeatherResponse maps a resolved location and its weather report to
// the response DTO.
func NewWeatherResponse(location domain.GeoLocation, weather domain.WeatherData) WeatherResponse {
	var loc *LocationResponse

	if location.City != "" {
		loc = &LocationResponse{
			City:    location.City,
			Lat:     location.Lat,
			Lon:     location.Lon,
			Country: location.Country,
			State:   location.State,
		}
	}

	return WeatherResponse{
		Location:    loc,
		Temp:        weather.Temp,
		FeelsLike:   weather.FeelsLike,
		TempMin:     weather.TempMin,
		TempMax:     weather.TempMax,
		Pressure:    weather.Pressure,
		Humidity:    weather.Humidity,
		Weather:     weather.Weather,
		Description: weather.Description,
		IconURL:     weather.IconURL(),
	}
}

// handleProviderError maps provider errors to HTTP responses.
//
// Error mappings:
//   - EMPTY_RESULT -> 404 Not Found
//   - PARSE_ERROR -> 502 Bad Gateway
//   - REQUEST_FAILED, BAD_STATUS -> 503 Service Unavailable
//   - Other errors -> 500 Internal Server Error
func (h *WeatherHandler) handleProviderError(w http.ResponseWriter, r *http.Request, err error) {
	code := ""
	message := ""

	var geoErr *domain.GeoLocationError

	var weatherErr *domain.WeatherDataError

	switch {
	case errors.As(err, &geoErr):
		code = geoErr.Code
		message = geoErr.Message
	case errors.As(err, &weatherErr):
		code = weatherErr.Code
		message = weatherErr.Message
	}

	switch code {
	case domain.ErrCodeEmptyResult:
		respondWithError(w, h.logger, http.StatusNotFound, code, message)
	case domain.ErrCodeParse:
		respondWithError(w, h.logger, http.StatusBadGateway, code, message)
	case domain.ErrCodeRequestFailed, domain.ErrCodeBadStatus:
		respondWithError(w, h.logger, http.StatusServiceUnavailable, code, message)
	default:
		h.logger.Error("unexpected provider error",
			zap.Error(err),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
		)

		respondWithError(
			w,
			h.logger,
			http.StatusInternalServerError,
			"INTERNAL_ERROR",
			"An unexpected error occurred",
		)
	}
}

// respondWithJSON sends a JSON response with the specified status code.
func respondWithJSON(w http.ResponseWriter, logger *zap.Logger, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

// respondWithError sends a standardized error response.
func respondWithError(w http.ResponseWriter, logger *zap.Logger, status int, code, message string) {
	respondWithJSON(w, logger, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}
