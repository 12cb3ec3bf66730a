// Package domain contains the core business entities and domain logic for the weather app.
// This package defines the fundamental types and business rules that are independent
// of external frameworks and infrastructure concerns.
package domain

import (
	"fmt"
	"math"
	"strconv"
)

// GeoLocation represents a resolved place: a canonical city name plus
// its geographic coordinates and optional region metadata.
// It is immutable after construction; City is the identity used as the
// cache key throughout the app.
type GeoLocation struct {
	// City is the canonical city name returned by the geocoding service
	// (or by the device reverse-geocoder)
	City string

	// Lat is the latitude in decimal degrees, kept as the raw numeric
	// literal from the upstream response
	Lat string

	// Lon is the longitude in decimal degrees, kept as the raw numeric
	// literal from the upstream response
	Lon string

	// Country is an optional ISO-style country code
	Country string

	// State is an optional administrative area name
	State string
}

// WeatherData represents current weather conditions for a single city.
// Temperature fields are pre-formatted strings, rounded to two decimal
// places using round-half-to-even with trailing zeros trimmed, so the
// presentation layer can show them verbatim.
type WeatherData struct {
	// Temp is the current temperature
	Temp string

	// FeelsLike is the perceived temperature; may be empty
	FeelsLike string

	// TempMin is the minimum observed temperature
	TempMin string

	// TempMax is the maximum observed temperature
	TempMax string

	// Pressure is the atmospheric pressure in hPa; zero when absent
	Pressure int

	// Humidity is the relative humidity in percent; zero when absent
	Humidity int

	// Weather is a short condition label such as "Rain"
	Weather string

	// Description is the long condition text such as "moderate rain"
	Description string

	// Icon is the upstream icon code used to build an image URL
	Icon string
}

// IconURL returns the OpenWeather icon image URL for this report.
// Returns an empty string when no icon code is available.
func (w WeatherData) IconURL() string {
	if w.Icon == "" {
		return ""
	}

	return fmt.Sprintf("https://openweathermap.org/img/wn/%s@2x.png", w.Icon)
}

// FormatTemperature converts a raw temperature value into its display
// form: rounded to two decimal places with round-half-to-even, then
// rendered with trailing zeros trimmed (284.20 becomes "284.2").
func FormatTemperature(value float64) string {
	rounded := math.RoundToEven(value*100) / 100

	return strconv.FormatFloat(rounded, 'f', -1, 64)
}
