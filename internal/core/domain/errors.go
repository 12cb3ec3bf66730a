package domain

import "fmt"

// Error codes shared by the typed domain errors. They distinguish
// transport failures from response-shape failures for callers that
// need more than the message text.
const (
	// ErrCodeRequestFailed indicates the HTTP call itself failed
	ErrCodeRequestFailed = "REQUEST_FAILED"

	// ErrCodeBadStatus indicates the upstream returned a non-success status
	ErrCodeBadStatus = "BAD_STATUS"

	// ErrCodeParse indicates the body was structurally invalid or
	// missing required fields
	ErrCodeParse = "PARSE_ERROR"

	// ErrCodeEmptyResult indicates a geocoding lookup returned no matches
	ErrCodeEmptyResult = "EMPTY_RESULT"
)

// GeoLocationError is returned when a geocoding request fails or its
// response cannot be turned into a GeoLocation.
type GeoLocationError struct {
	// Code identifies the failure category for programmatic handling
	Code string

	// Message is the human-readable text shown to the user
	Message string

	// Cause wraps the underlying error if applicable
	Cause error
}

// Error implements the error interface for GeoLocationError.
func (e *GeoLocationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *GeoLocationError) Unwrap() error {
	return e.Cause
}

// NewGeoLocationError builds a GeoLocationError with the standard
// user-facing message from the given code and cause.
func NewGeoLocationError(code string, cause error) *GeoLocationError {
	message := "Error fetching geo location"

	if code == ErrCodeParse || code == ErrCodeEmptyResult {
		message = "Failed to parse geo location"
	}

	return &GeoLocationError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WeatherDataError is returned when a weather request fails or its
// response cannot be turned into WeatherData.
type WeatherDataError struct {
	// Code identifies the failure category for programmatic handling
	Code string

	// Message is the human-readable text shown to the user
	Message string

	// Cause wraps the underlying error if applicable
	Cause error
}

// Error implements the error interface for WeatherDataError.
func (e *WeatherDataError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *WeatherDataError) Unwrap() error {
	return e.Cause
}

// NewWeatherDataError builds a WeatherDataError with the standard
// user-facing message from the given code and cause.
func NewWeatherDataError(code string, cause error) *WeatherDataError {
	message := "Error fetching weather data"

	if code == ErrCodeParse {
		message = "Failed to parse weather data"
	}

	return &WeatherDataError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
