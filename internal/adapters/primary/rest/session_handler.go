package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-app/internal/core/domain"
	"github.com/sean-rowe/weather-app/internal/core/ports"
	"github.com/sean-rowe/weather-app/internal/core/services"
)

// SessionHandler exposes the interactive weather session over HTTP. It
// is the gateway's stand-in for a device screen: clients read the
// session state, update the candidate city, and trigger fetches and
// retries against a single shared session.
type SessionHandler struct {
	controller *services.SessionController
	geocoder   ports.ReverseGeocoder
	logger     *zap.Logger
}

// NewSessionHandler creates the session handler.
//
// Parameters:
//   - controller: The session controller backing all session routes
//   - geocoder: Reverse geocoder for the device-location flow
//   - logger: Zap logger for request logging
//
// Returns:
//   - *SessionHandler: Configured handler instance
func NewSessionHandler(controller *services.SessionController, geocoder ports.ReverseGeocoder, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		controller: controller,
		geocoder:   geocoder,
		logger:     logger,
	}
}

// SessionResponse is the JSON snapshot of the session.
type SessionResponse struct {
	State       string           `json:"state"`
	CanRetry    bool             `json:"can_retry"`
	SearchQuery string           `json:"search_query"`
	Weather     *WeatherResponse `json:"weather,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// QueryRequest carries a candidate city update.
type QueryRequest struct {
	Query string `json:"query"`
}

// LocationRequest carries device coordinates for reverse geocoding.
type LocationRequest struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// GetSession handles GET requests for the current session snapshot.
//
// Response codes:
//   - 200: Success with SessionResponse JSON
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, h.logger, http.StatusOK, h.snapshot())
}

// UpdateQuery handles PUT requests replacing the candidate city. No
// fetch is started and the session state does not change.
//
// Response codes:
//   - 200: Query recorded, SessionResponse JSON
//   - 400: Malformed body (INVALID_BODY)
func (h *SessionHandler) UpdateQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, "INVALID_BODY", "Request body must be JSON with a 'query' field")

		return
	}

	h.controller.UpdateSearchQuery(req.Query)

	respondWithJSON(w, h.logger, http.StatusOK, h.snapshot())
}

// FetchWeather handles POST requests starting the resolve-then-fetch
// pipeline. An optional JSON body with a "city" field overrides the
// current candidate city. The pipeline completes asynchronously; poll
// the session or follow the event stream for the outcome.
//
// Response codes:
//   - 202: Pipeline started (or session reset to search for an empty query)
func (h *SessionHandler) FetchWeather(w http.ResponseWriter, r *http.Request) {
	var req struct {
		City string `json:"city"`
	}

	// The body is optional; anything undecodable counts as absent.
	_ = json.NewDecoder(r.Body).Decode(&req)

	if req.City != "" {
		h.controller.GetWeatherDataForCity(req.City)
	} else {
		h.controller.GetWeatherData()
	}

	respondWithJSON(w, h.logger, http.StatusAccepted, h.snapshot())
}

// Retry handles POST requests retrying the last attempted city.
//
// Response codes:
//   - 202: Retry started
//   - 409: A fetch is already in flight (RETRY_IN_FLIGHT)
func (h *SessionHandler) Retry(w http.ResponseWriter, r *http.Request) {
	if !h.controller.CanRetry() {
		respondWithError(w, h.logger, http.StatusConflict, "RETRY_IN_FLIGHT", "A fetch is already in progress")

		return
	}

	h.controller.Retry()

	respondWithJSON(w, h.logger, http.StatusAccepted, h.snapshot())
}

// ShowSearch handles POST requests resetting the session to the search
// state.
//
// Response codes:
//   - 200: Session reset, SessionResponse JSON
func (h *SessionHandler) ShowSearch(w http.ResponseWriter, r *http.Request) {
	h.controller.ShowSearch()

	respondWithJSON(w, h.logger, http.StatusOK, h.snapshot())
}

// UpdateLocation handles POST requests carrying device coordinates. The
// coordinates are reverse geocoded and the result becomes the candidate
// city, with the resolver cache seeded so the next fetch skips
// geocoding.
//
// Response codes:
//   - 200: Location accepted, resolved LocationResponse JSON
//   - 400: Malformed body or missing coordinates (INVALID_BODY)
//   - 404: Coordinates did not resolve to a place (EMPTY_RESULT)
//   - 503: Geocoder unavailable (REQUEST_FAILED, BAD_STATUS)
func (h *SessionHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Lat == "" || req.Lon == "" {
		respondWithError(w, h.logger, http.StatusBadRequest, "INVALID_BODY", "Request body must be JSON with 'lat' and 'lon' fields")

		return
	}

	location, err := h.geocoder.ReverseGeocode(r.Context(), req.Lat, req.Lon)

	if err != nil {
		h.handleGeocodeError(w, err)
		return
	}

	h.controller.UpdateLocation(r.Context(), location)

	respondWithJSON(w, h.logger, http.StatusOK, LocationResponse{
		City:    location.City,
		Lat:     location.Lat,
		Lon:     location.Lon,
		Country: location.Country,
		State:   location.State,
	})
}

// handleGeocodeError maps reverse geocoding failures to HTTP responses
// using the same mapping as the stateless lookup.
func (h *SessionHandler) handleGeocodeError(w http.ResponseWriter, err error) {
	var geoErr *domain.GeoLocationError

	if errors.As(err, &geoErr) {
		switch geoErr.Code {
		case domain.ErrCodeEmptyResult:
			respondWithError(w, h.logger, http.StatusNotFound, geoErr.Code, geoErr.Message)

			return
		case domain.ErrCodeParse:
			respondWithError(w, h.logger, http.StatusBadGateway, geoErr.Code, geoErr.Message)

			return
		case domain.ErrCodeRequestFailed, domain.ErrCodeBadStatus:
			respondWithError(w, h.logger, http.StatusServiceUnavailable, geoErr.Code, geoErr.Message)

			return
		}
	}

	h.logger.Error("unexpected geocoder error", zap.Error(err))
	respondWithError(w, h.logger, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
}

// StreamEvents handles GET requests for the session event stream. Each
// state transition is written as a server-sent event until the client
// disconnects. The current state is emitted first.
func (h *SessionHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)

	if !ok {
		respondWithError(w, h.logger, http.StatusInternalServerError, "STREAMING_UNSUPPORTED", "Response writer does not support streaming")

		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for state := range h.controller.Subscribe(r.Context()) {
		payload, err := json.Marshal(newStateView(state))

		if err != nil {
			h.logger.Error("failed to encode session event", zap.Error(err))

			continue
		}

		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", state.Kind(), payload)
		flusher.Flush()
	}
}

// stateView is the JSON shape of one session state for snapshots and
// the event stream.
type stateView struct {
	State   string           `json:"state"`
	Weather *WeatherResponse `json:"weather,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func newStateView(state domain.SessionState) stateView {
	view := stateView{State: state.Kind()}

	switch s := state.(type) {
	case domain.SuccessState:
		weather := NewWeatherResponse(domain.GeoLocation{}, s.Weather)
		view.Weather = &weather
	case domain.ErrorState:
		view.Error = s.Message
	}

	return view
}

func (h *SessionHandler) snapshot() SessionResponse {
	view := newStateView(h.controller.State())

	return SessionResponse{
		State:       view.State,
		CanRetry:    h.controller.CanRetry(),
		SearchQuery: h.controller.SearchQuery(),
		Weather:     view.Weather,
		Error:       view.Error,
	}
}
