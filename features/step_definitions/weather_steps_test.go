package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-app/internal/adapters/primary/rest"
	"github.com/sean-rowe/weather-app/internal/core/domain"
	"github.com/sean-rowe/weather-app/internal/core/services"
)

var turinLocation = domain.GeoLocation{
	City:    "Province of Turin",
	Lat:     "45.133",
	Lon:     "7.367",
	Country: "IT",
}

var turinWeather = domain.WeatherData{
	Temp:        "284.2",
	FeelsLike:   "282.93",
	TempMin:     "283.06",
	TempMax:     "286.82",
	Pressure:    1021,
	Humidity:    60,
	Weather:     "Rain",
	Description: "moderate rain",
	Icon:        "10d",
}

// stubUpstream stands in for the resolved OpenWeather pipeline: it
// knows exactly one city and can be switched into an unavailable mode.
type stubUpstream struct {
	mu          sync.Mutex
	unavailable bool
	updated     []domain.GeoLocation
}

func (s *stubUpstream) setUnavailable(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unavailable = down
}

func (s *stubUpstream) GetGeoLocation(_ context.Context, city string) (domain.GeoLocation, error) {
	s.mu.Lock()
	down := s.unavailable
	s.mu.Unlock()

	if down {
		return domain.GeoLocation{}, domain.NewGeoLocationError(domain.ErrCodeRequestFailed, nil)
	}

	if city != "turin" && city != turinLocation.City {
		return domain.GeoLocation{}, domain.NewGeoLocationError(domain.ErrCodeEmptyResult, nil)
	}

	return turinLocation, nil
}

func (s *stubUpstream) UpdateGeoLocation(_ context.Context, location domain.GeoLocation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updated = append(s.updated, location)
}

func (s *stubUpstream) GetWeatherData(_ context.Context, location domain.GeoLocation) (domain.WeatherData, error) {
	if location != turinLocation {
		return domain.WeatherData{}, domain.NewWeatherDataError(domain.ErrCodeBadStatus, nil)
	}

	return turinWeather, nil
}

func (s *stubUpstream) ReverseGeocode(_ context.Context, _, _ string) (domain.GeoLocation, error) {
	return turinLocation, nil
}

// noopPrefs satisfies the preference store without storage.
type noopPrefs struct{}

func (noopPrefs) ObserveCity(context.Context) <-chan string { return make(chan string) }
func (noopPrefs) SetCity(string)                            {}

// memSavedState is the minimal save slot for scenarios.
type memSavedState struct {
	values map[string]string
}

func (s *memSavedState) Get(key string) (string, bool) {
	value, ok := s.values[key]

	return value, ok
}

func (s *memSavedState) Set(key, value string) {
	s.values[key] = value
}

type testContext struct {
	server       *httptest.Server
	upstream     *stubUpstream
	response     *http.Response
	responseBody map[string]interface{}
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &testContext{}

	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		tc.upstream = &stubUpstream{}
		tc.response = nil
		tc.responseBody = nil

		return ctx, nil
	})

	ctx.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		if tc.server != nil {
			tc.server.Close()
			tc.server = nil
		}

		return ctx, nil
	})

	ctx.Step(`^the weather gateway is running$`, tc.theWeatherGatewayIsRunning)
	ctx.Step(`^the upstream weather service is unavailable$`, tc.theUpstreamIsUnavailable)
	ctx.Step(`^the upstream weather service recovers$`, tc.theUpstreamRecovers)
	ctx.Step(`^I request weather for city "([^"]*)"$`, tc.iRequestWeatherForCity)
	ctx.Step(`^I request weather without a city$`, tc.iRequestWeatherWithoutCity)
	ctx.Step(`^I set the search query to "([^"]*)"$`, tc.iSetTheSearchQuery)
	ctx.Step(`^I start a weather fetch$`, tc.iStartAWeatherFetch)
	ctx.Step(`^I retry the fetch$`, tc.iRetryTheFetch)
	ctx.Step(`^I should receive a successful response$`, tc.iShouldReceiveSuccessfulResponse)
	ctx.Step(`^I should receive a not found error$`, tc.iShouldReceiveNotFoundError)
	ctx.Step(`^I should receive a bad request error$`, tc.iShouldReceiveBadRequestError)
	ctx.Step(`^the temperature should be "([^"]*)"$`, tc.theTemperatureShouldBe)
	ctx.Step(`^the resolved city should be "([^"]*)"$`, tc.theResolvedCityShouldBe)
	ctx.Step(`^the session should eventually show "([^"]*)"$`, tc.theSessionShouldEventuallyShow)
	ctx.Step(`^the session temperature should be "([^"]*)"$`, tc.theSessionTemperatureShouldBe)
	ctx.Step(`^the session error should be "([^"]*)"$`, tc.theSessionErrorShouldBe)
}

func (tc *testContext) theWeatherGatewayIsRunning() error {
	logger := zap.NewNop()

	controller := services.NewSessionController(
		tc.upstream,
		tc.upstream,
		noopPrefs{},
		&memSavedState{values: map[string]string{}},
		logger,
	)

	weatherHandler := rest.NewWeatherHandler(tc.upstream, tc.upstream, logger)
	sessionHandler := rest.NewSessionHandler(controller, tc.upstream, logger)

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/weather", weatherHandler.GetWeather).Methods("GET")
	router.HandleFunc("/api/v1/session", sessionHandler.GetSession).Methods("GET")
	router.HandleFunc("/api/v1/session/query", sessionHandler.UpdateQuery).Methods("PUT")
	router.HandleFunc("/api/v1/session/weather", sessionHandler.FetchWeather).Methods("POST")
	router.HandleFunc("/api/v1/session/retry", sessionHandler.Retry).Methods("POST")
	router.HandleFunc("/api/v1/session/search", sessionHandler.ShowSearch).Methods("POST")

	tc.server = httptest.NewServer(router)

	return nil
}

func (tc *testContext) theUpstreamIsUnavailable() error {
	tc.upstream.setUnavailable(true)

	return nil
}

func (tc *testContext) theUpstreamRecovers() error {
	tc.upstream.setUnavailable(false)

	return nil
}

func (tc *testContext) iRequestWeatherForCity(city string) error {
	return tc.get(fmt.Sprintf("%s/api/v1/weather?city=%s", tc.server.URL, city))
}

func (tc *testContext) iRequestWeatherWithoutCity() error {
	return tc.get(tc.server.URL + "/api/v1/weather")
}

func (tc *testContext) iSetTheSearchQuery(query string) error {
	body, err := json.Marshal(map[string]string{"query": query})

	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPut, tc.server.URL+"/api/v1/session/query", bytes.NewReader(body))

	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)

	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("expected status 200 updating query, got %d", resp.StatusCode)
	}

	return nil
}

func (tc *testContext) iStartAWeatherFetch() error {
	return tc.post("/api/v1/session/weather", http.StatusAccepted)
}

func (tc *testContext) iRetryTheFetch() error {
	return tc.post("/api/v1/session/retry", http.StatusAccepted)
}

func (tc *testContext) iShouldReceiveSuccessfulResponse() error {
	return tc.expectStatus(http.StatusOK)
}

func (tc *testContext) iShouldReceiveNotFoundError() error {
	return tc.expectStatus(http.StatusNotFound)
}

func (tc *testContext) iShouldReceiveBadRequestError() error {
	return tc.expectStatus(http.StatusBadRequest)
}

func (tc *testContext) theTemperatureShouldBe(expected string) error {
	temp, ok := tc.responseBody["temp"].(string)

	if !ok {
		return fmt.Errorf("response does not contain a temperature")
	}

	if temp != expected {
		return fmt.Errorf("expected temperature %s, got %s", expected, temp)
	}

	return nil
}

func (tc *testContext) theResolvedCityShouldBe(expected string) error {
	location, ok := tc.responseBody["location"].(map[string]interface{})

	if !ok {
		return fmt.Errorf("response does not contain a location")
	}

	if location["city"] != expected {
		return fmt.Errorf("expected city %s, got %v", expected, location["city"])
	}

	return nil
}

func (tc *testContext) theSessionShouldEventuallyShow(expected string) error {
	deadline := time.Now().Add(2 * time.Second)

	for time.Now().Before(deadline) {
		if err := tc.get(tc.server.URL + "/api/v1/session"); err != nil {
			return err
		}

		if tc.responseBody["state"] == expected {
			return nil
		}

		time.Sleep(10 * time.Millisecond)
	}

	return fmt.Errorf("session never reached state %q, last state %v", expected, tc.responseBody["state"])
}

func (tc *testContext) theSessionTemperatureShouldBe(expected string) error {
	weather, ok := tc.responseBody["weather"].(map[string]interface{})

	if !ok {
		return fmt.Errorf("session does not carry weather data")
	}

	if weather["temp"] != expected {
		return fmt.Errorf("expected temperature %s, got %v", expected, weather["temp"])
	}

	return nil
}

func (tc *testContext) theSessionErrorShouldBe(expected string) error {
	message, ok := tc.responseBody["error"].(string)

	if !ok {
		return fmt.Errorf("session does not carry an error message")
	}

	if message != expected {
		return fmt.Errorf("expected error %q, got %q", expected, message)
	}

	return nil
}

func (tc *testContext) get(url string) error {
	resp, err := http.Get(url)

	if err != nil {
		return err
	}

	defer resp.Body.Close()

	tc.response = resp
	tc.responseBody = map[string]interface{}{}

	return json.NewDecoder(resp.Body).Decode(&tc.responseBody)
}

func (tc *testContext) post(path string, expectedStatus int) error {
	resp, err := http.Post(tc.server.URL+path, "application/json", nil)

	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode != expectedStatus {
		return fmt.Errorf("expected status %d, got %d", expectedStatus, resp.StatusCode)
	}

	return nil
}

func (tc *testContext) expectStatus(expected int) error {
	if tc.response.StatusCode != expected {
		return fmt.Errorf("expected status %d, got %d", expected, tc.response.StatusCode)
	}

	return nil
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{".."},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("failed to run feature tests")
	}
}
