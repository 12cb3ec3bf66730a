//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-app/internal/adapters/primary/rest"
	"github.com/sean-rowe/weather-app/internal/adapters/secondary/openweather"
	"github.com/sean-rowe/weather-app/internal/core/services"
	"github.com/sean-rowe/weather-app/internal/infrastructure/cache"
	"github.com/sean-rowe/weather-app/internal/infrastructure/circuitbreaker"
	"github.com/sean-rowe/weather-app/internal/infrastructure/prefs"
	"github.com/sean-rowe/weather-app/internal/infrastructure/session"
	"github.com/sean-rowe/weather-app/internal/middleware"
)

const turinGeoBody = `[{"name":"Province of Turin","lat":45.133,"lon":7.367,"country":"IT"}]`

const turinWeatherBody = `{
  "weather": [{"id": 501, "main": "Rain", "description": "moderate rain", "icon": "10d"}],
  "main": {"temp": 284.2, "feels_like": 282.93, "temp_min": 283.06, "temp_max": 286.82, "pressure": 1021, "humidity": 60}
}`

// knownCities are the query spellings the stub upstream resolves. Tests
// that must start from a cold resolver cache use a spelling no earlier
// test has touched.
var knownCities = map[string]bool{
	"turin":      true,
	"torino":     true,
	"grugliasco": true,
}

// IntegrationTestSuite runs the full in-process stack — OpenWeather
// client, circuit breaker, caching services, session controller, and
// REST handlers — against a stubbed OpenWeather upstream.
type IntegrationTestSuite struct {
	suite.Suite
	server       *httptest.Server
	mockUpstream *httptest.Server

	geoCalls     int64
	weatherCalls int64
	unavailable  int32
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationTestSuite))
}

func (s *IntegrationTestSuite) SetupSuite() {
	s.setupMockUpstream()
	s.setupApplication()
}

func (s *IntegrationTestSuite) setupMockUpstream() {
	router := mux.NewRouter()

	router.HandleFunc("/geo/1.0/direct", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&s.geoCalls, 1)

		if atomic.LoadInt32(&s.unavailable) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		w.Header().Set("Content-Type", "application/json")

		if knownCities[r.URL.Query().Get("q")] {
			fmt.Fprint(w, turinGeoBody)

			return
		}

		fmt.Fprint(w, "[]")
	})

	router.HandleFunc("/geo/1.0/reverse", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, turinGeoBody)
	})

	router.HandleFunc("/data/2.5/weather", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&s.weatherCalls, 1)

		if atomic.LoadInt32(&s.unavailable) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, turinWeatherBody)
	})

	s.mockUpstream = httptest.NewServer(router)
}

func (s *IntegrationTestSuite) setupApplication() {
	logger := zap.NewNop()

	httpClient := &http.Client{
		Timeout: 10 * time.Second,
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:        "openweather",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     100 * time.Millisecond,
	}, logger)

	client := openweather.NewClient(s.mockUpstream.URL, "test-key", httpClient, breaker, logger)

	cacheService := cache.NewMemoryCache(5*time.Minute, 10*time.Minute, logger)

	geoService := services.NewGeoLocationService(client, cacheService, logger)
	weatherService := services.NewWeatherService(client, cacheService, logger)

	prefStore := prefs.NewStore(prefs.NewMemoryBackend(), logger)
	savedState := session.NewMemorySavedState()

	controller := services.NewSessionController(geoService, weatherService, prefStore, savedState, logger)

	weatherHandler := rest.NewWeatherHandler(geoService, weatherService, logger)
	sessionHandler := rest.NewSessionHandler(controller, client, logger)

	limiter := middleware.NewRateLimitMiddleware(middleware.NewMemoryRateLimiter(logger), 1000, time.Minute, logger)

	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	weatherAPI := api.PathPrefix("/weather").Subrouter()
	weatherAPI.Use(limiter.Middleware)
	weatherAPI.HandleFunc("", weatherHandler.GetWeather).Methods("GET")

	sessionAPI := api.PathPrefix("/session").Subrouter()
	sessionAPI.HandleFunc("", sessionHandler.GetSession).Methods("GET")
	sessionAPI.HandleFunc("/query", sessionHandler.UpdateQuery).Methods("PUT")
	sessionAPI.HandleFunc("/weather", sessionHandler.FetchWeather).Methods("POST")
	sessionAPI.HandleFunc("/retry", sessionHandler.Retry).Methods("POST")
	sessionAPI.HandleFunc("/search", sessionHandler.ShowSearch).Methods("POST")
	sessionAPI.HandleFunc("/location", sessionHandler.UpdateLocation).Methods("POST")

	s.server = httptest.NewServer(router)
}

func (s *IntegrationTestSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}

	if s.mockUpstream != nil {
		s.mockUpstream.Close()
	}
}

func (s *IntegrationTestSuite) TestHealthEndpoint() {
	resp, err := http.Get(s.server.URL + "/health")
	s.Require().NoError(err)

	defer resp.Body.Close()

	s.Assert().Equal(http.StatusOK, resp.StatusCode)

	var body map[string]string
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Assert().Equal("healthy", body["status"])
}

func (s *IntegrationTestSuite) TestWeatherEndpoint() {
	testCases := []struct {
		name           string
		query          string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "known city",
			query:          "?city=turin",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown city",
			query:          "?city=atlantis",
			expectedStatus: http.StatusNotFound,
			expectedError:  "EMPTY_RESULT",
		},
		{
			name:           "missing city",
			query:          "",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "MISSING_CITY",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			resp, err := http.Get(s.server.URL + "/api/v1/weather" + tc.query)
			s.Require().NoError(err)

			defer resp.Body.Close()

			s.Assert().Equal(tc.expectedStatus, resp.StatusCode)

			if tc.expectedError != "" {
				var errorResp map[string]string
				s.Require().NoError(json.NewDecoder(resp.Body).Decode(&errorResp))
				s.Assert().Equal(tc.expectedError, errorResp["error"])

				return
			}

			var weatherResp map[string]interface{}
			s.Require().NoError(json.NewDecoder(resp.Body).Decode(&weatherResp))
			s.Assert().Equal("284.2", weatherResp["temp"])
			s.Assert().Equal("moderate rain", weatherResp["description"])

			location := weatherResp["location"].(map[string]interface{})
			s.Assert().Equal("Province of Turin", location["city"])
		})
	}
}

func (s *IntegrationTestSuite) TestWeatherCaching() {
	geoBefore := atomic.LoadInt64(&s.geoCalls)

	for i := 0; i < 3; i++ {
		resp, err := http.Get(s.server.URL + "/api/v1/weather?city=torino")
		s.Require().NoError(err)
		resp.Body.Close()

		s.Require().Equal(http.StatusOK, resp.StatusCode)
	}

	// Only the first lookup of this spelling reaches the upstream.
	s.Assert().Equal(geoBefore+1, atomic.LoadInt64(&s.geoCalls))
}

func (s *IntegrationTestSuite) TestSessionFlow() {
	s.putQuery("turin")
	s.post("/api/v1/session/weather", http.StatusAccepted)

	snapshot := s.awaitSessionState("success")

	weather := snapshot["weather"].(map[string]interface{})
	s.Assert().Equal("284.2", weather["temp"])
	s.Assert().Equal(true, snapshot["can_retry"])

	s.post("/api/v1/session/search", http.StatusOK)
	s.Assert().Equal("search", s.sessionSnapshot()["state"])
}

func (s *IntegrationTestSuite) TestSessionRetryAfterUpstreamFailure() {
	atomic.StoreInt32(&s.unavailable, 1)

	s.putQuery("grugliasco")
	s.post("/api/v1/session/weather", http.StatusAccepted)

	snapshot := s.awaitSessionState("error")
	s.Assert().Equal("Error fetching geo location", snapshot["error"])

	atomic.StoreInt32(&s.unavailable, 0)

	s.post("/api/v1/session/retry", http.StatusAccepted)
	s.awaitSessionState("success")
}

func (s *IntegrationTestSuite) TestConcurrentWeatherRequests() {
	const numRequests = 50

	results := make(chan int, numRequests)

	for i := 0; i < numRequests; i++ {
		go func() {
			resp, err := http.Get(s.server.URL + "/api/v1/weather?city=turin")

			if err != nil {
				results <- 0

				return
			}

			resp.Body.Close()
			results <- resp.StatusCode
		}()
	}

	successCount := 0

	for i := 0; i < numRequests; i++ {
		if <-results == http.StatusOK {
			successCount++
		}
	}

	s.Assert().Equal(numRequests, successCount)
}

func (s *IntegrationTestSuite) putQuery(query string) {
	body, err := json.Marshal(map[string]string{"query": query})
	s.Require().NoError(err)

	req, err := http.NewRequest(http.MethodPut, s.server.URL+"/api/v1/session/query", bytes.NewReader(body))
	s.Require().NoError(err)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	resp.Body.Close()

	s.Require().Equal(http.StatusOK, resp.StatusCode)
}

func (s *IntegrationTestSuite) post(path string, expectedStatus int) {
	resp, err := http.Post(s.server.URL+path, "application/json", nil)
	s.Require().NoError(err)
	resp.Body.Close()

	s.Require().Equal(expectedStatus, resp.StatusCode)
}

func (s *IntegrationTestSuite) sessionSnapshot() map[string]interface{} {
	resp, err := http.Get(s.server.URL + "/api/v1/session")
	s.Require().NoError(err)

	defer resp.Body.Close()

	snapshot := map[string]interface{}{}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&snapshot))

	return snapshot
}

func (s *IntegrationTestSuite) awaitSessionState(expected string) map[string]interface{} {
	deadline := time.Now().Add(2 * time.Second)

	var snapshot map[string]interface{}

	for time.Now().Before(deadline) {
		snapshot = s.sessionSnapshot()

		if snapshot["state"] == expected {
			return snapshot
		}

		time.Sleep(10 * time.Millisecond)
	}

	s.Require().FailNowf("session state not reached",
		"expected state %q, last snapshot %v", expected, snapshot)

	return nil
}
