package domain

// SessionState is the closed set of states the weather session can be
// in. Exactly one variant is active at a time and only the session
// controller performs transitions. Consumers should switch over the
// concrete types so that a new variant cannot be silently dropped.
type SessionState interface {
	// Kind returns the wire name of the state variant
	Kind() string

	sessionState()
}

// SearchState means no data is shown and the user must provide a city.
type SearchState struct{}

// LoadingState means a resolve-then-fetch pipeline is in flight.
type LoadingState struct{}

// SuccessState carries the weather data of a completed pipeline.
type SuccessState struct {
	Weather WeatherData
}

// ErrorState carries the displayable message of a failed pipeline.
type ErrorState struct {
	Message string
}

// Kind returns "search".
func (SearchState) Kind() string { return "search" }

// Kind returns "loading".
func (LoadingState) Kind() string { return "loading" }

// Kind returns "success".
func (SuccessState) Kind() string { return "success" }

// Kind returns "error".
func (ErrorState) Kind() string { return "error" }

func (SearchState) sessionState()  {}
func (LoadingState) sessionState() {}
func (SuccessState) sessionState() {}
func (ErrorState) sessionState()   {}
