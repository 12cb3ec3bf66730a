package services

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-app/internal/core/domain"
	"github.com/sean-rowe/weather-app/internal/core/ports"
)

// savedStateKey is the save-slot key holding the candidate city.
const savedStateKey = "city"

// fallbackErrorMessage is shown when a pipeline failure carries no text.
const fallbackErrorMessage = "Unknown error"

// SessionController owns the user-facing weather session state and
// drives the resolve-then-fetch pipeline. State transitions follow:
//
//	Search -> Loading -> (Success | Error)
//	Error -> Loading (retry)
//	Success -> Loading (new search)
//	any -> Search (explicit reset)
//
// Each pipeline launch is tagged with a sequence number; a completion
// belonging to an older launch is dropped instead of overwriting the
// state of a newer one.
type SessionController struct {
	geoProvider     ports.GeoLocationProvider
	weatherProvider ports.WeatherProvider
	prefs           ports.PreferenceStore
	savedState      ports.SavedStateStore
	logger          *zap.Logger

	mu          sync.Mutex
	state       domain.SessionState
	canRetry    bool
	searchQuery string
	lastCity    string
	seq         uint64
	subscribers map[int]chan domain.SessionState
	nextSubID   int
}

// NewSessionController creates the session controller in the Search
// state. The candidate city is seeded from the save slot when present.
//
// Parameters:
//   - geoProvider: Cache-backed geo resolver
//   - weatherProvider: Cache-backed weather provider
//   - prefs: Durable preference store for the last successful city
//   - savedState: Transient save slot for the candidate city
//   - logger: Zap logger for controller operations
//
// Returns:
//   - *SessionController: Controller instance ready for use
func NewSessionController(
	geoProvider ports.GeoLocationProvider,
	weatherProvider ports.WeatherProvider,
	prefs ports.PreferenceStore,
	savedState ports.SavedStateStore,
	logger *zap.Logger,
) *SessionController {
	query, _ := savedState.Get(savedStateKey)

	return &SessionController{
		geoProvider:     geoProvider,
		weatherProvider: weatherProvider,
		prefs:           prefs,
		savedState:      savedState,
		logger:          logger,
		state:           domain.SearchState{},
		canRetry:        true,
		searchQuery:     query,
		subscribers:     make(map[int]chan domain.SessionState),
	}
}

// State returns the current session state.
func (c *SessionController) State() domain.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// CanRetry reports whether a retry may be issued. It is false exactly
// while a fetch pipeline is in flight.
func (c *SessionController) CanRetry() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.canRetry
}

// SearchQuery returns the current candidate city.
func (c *SessionController) SearchQuery() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.searchQuery
}

// Subscribe delivers the current state immediately, then every state
// transition, until ctx is done. Slow consumers miss intermediate
// transitions rather than blocking the controller.
func (c *SessionController) Subscribe(ctx context.Context) <-chan domain.SessionState {
	ch := make(chan domain.SessionState, 8)

	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch
	ch <- c.state
	c.mu.Unlock()

	go func() {
		<-ctx.Done()

		c.mu.Lock()
		defer c.mu.Unlock()

		delete(c.subscribers, id)
		close(ch)
	}()

	return ch
}

// UpdateSearchQuery records a new candidate city in the save slot.
// No state transition happens.
func (c *SessionController) UpdateSearchQuery(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.searchQuery = query
	c.savedState.Set(savedStateKey, query)
}

// ShowSearch forces the session back into the Search state from any
// state, e.g. when the user starts a new search.
func (c *SessionController) ShowSearch() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setStateLocked(domain.SearchState{})
}

// GetWeatherData starts the resolve-then-fetch pipeline for the current
// candidate city. With no city set, the session transitions to Search
// instead. The pipeline runs detached; its outcome arrives as a later
// transition to Success or Error.
func (c *SessionController) GetWeatherData() {
	c.GetWeatherDataForCity(c.SearchQuery())
}

// GetWeatherDataForCity starts the pipeline for an explicit city.
func (c *SessionController) GetWeatherDataForCity(city string) {
	if city == "" {
		c.ShowSearch()

		return
	}

	c.mu.Lock()
	c.canRetry = false
	c.lastCity = city
	c.seq++
	seq := c.seq
	c.setStateLocked(domain.LoadingState{})
	c.mu.Unlock()

	go c.runPipeline(seq, city)
}

// Retry re-enters the Loading path for the last attempted city. The
// controller does not re-check the retry flag; the surface is expected
// to disable the control while a fetch is in flight, and a duplicate
// fetch is benign because the provider caches are idempotent.
func (c *SessionController) Retry() {
	c.mu.Lock()
	city := c.lastCity

	if city == "" {
		city = c.searchQuery
	}
	c.mu.Unlock()

	c.GetWeatherDataForCity(city)
}

// UpdateLocation accepts a location resolved by the device. It becomes
// the candidate city and seeds the resolver cache so the next fetch
// skips geocoding.
func (c *SessionController) UpdateLocation(ctx context.Context, location domain.GeoLocation) {
	c.UpdateSearchQuery(location.City)
	c.geoProvider.UpdateGeoLocation(ctx, location)
}

// WatchPreferences restores the persisted city into the candidate slot
// and keeps following preference writes until ctx is done. Run it on
// its own goroutine.
func (c *SessionController) WatchPreferences(ctx context.Context) {
	for city := range c.prefs.ObserveCity(ctx) {
		if city == "" {
			continue
		}

		c.UpdateSearchQuery(city)
	}
}

// runPipeline executes resolve-then-fetch off the caller's goroutine.
// The context deliberately outlives the triggering request: a pipeline
// runs to completion or failure, there is no cancellation or timeout.
func (c *SessionController) runPipeline(seq uint64, city string) {
	ctx := context.Background()

	weather, canonical, err := c.fetch(ctx, city)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		c.logger.Debug("dropping stale pipeline result",
			zap.String("city", city),
			zap.Uint64("seq", seq),
			zap.Uint64("current", c.seq))

		return
	}

	c.canRetry = true

	if err != nil {
		c.logger.Warn("weather pipeline failed",
			zap.String("city", city),
			zap.Error(err))

		c.setStateLocked(domain.ErrorState{Message: displayMessage(err)})

		return
	}

	// Persist only the city whose result is actually published; a
	// dropped stale completion must not touch the durable preference.
	c.prefs.SetCity(canonical)

	c.setStateLocked(domain.SuccessState{Weather: weather})
}

// fetch resolves the city and then fetches its weather; resolve
// strictly precedes fetch within one invocation. It returns the
// canonical resolved city name so the caller can persist it alongside
// publishing the result.
func (c *SessionController) fetch(ctx context.Context, city string) (domain.WeatherData, string, error) {
	location, err := c.geoProvider.GetGeoLocation(ctx, city)

	if err != nil {
		return domain.WeatherData{}, "", err
	}

	weather, err := c.weatherProvider.GetWeatherData(ctx, location)

	if err != nil {
		return domain.WeatherData{}, "", err
	}

	return weather, location.City, nil
}

// setStateLocked publishes a new state. Callers must hold c.mu.
func (c *SessionController) setStateLocked(state domain.SessionState) {
	c.state = state

	for _, ch := range c.subscribers {
		select {
		case ch <- state:
		default:
		}
	}
}

// displayMessage extracts the user-facing text from a pipeline failure.
func displayMessage(err error) string {
	var geoErr *domain.GeoLocationError

	if errors.As(err, &geoErr) && geoErr.Message != "" {
		return geoErr.Message
	}

	var weatherErr *domain.WeatherDataError

	if errors.As(err, &weatherErr) && weatherErr.Message != "" {
		return weatherErr.Message
	}

	if msg := err.Error(); msg != "" {
		return msg
	}

	return fallbackErrorMessage
}
