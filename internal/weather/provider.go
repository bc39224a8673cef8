package weather

import (
	"context"
)

// Geocoder turns free text into a Location (e.g. Nominatim, WeatherAPI search).
// Errors are always *ResolutionError.
type Geocoder interface {
	Name() string
	Search(ctx context.Context, text string) (Location, error)
}

// ReverseGeocoder additionally turns coordinates into a named Location.
type ReverseGeocoder interface {
	Geocoder
	Reverse(ctx context.Context, lat, lon float64) (Location, error)
}

// ForecastProvider abstracts an upstream weather source (WeatherAPI.com,
// OpenWeatherMap). The returned RawForecast has Provider set to ID().
type ForecastProvider interface {
	ID() ProviderID
	Forecast(ctx context.Context, loc Location, units UnitSystem) (RawForecast, error)
}

// AirQualityProvider returns the 1..5 pollution index for a coordinate.
type AirQualityProvider interface {
	AirQualityIndex(ctx context.Context, lat, lon float64) (int, error)
}

// Preferences is the slice of the preference store the orchestrator needs.
type Preferences interface {
	CurrentLocation(ctx context.Context) (Location, error)
	SetCurrentLocation(ctx context.Context, loc Location) error
	Units(ctx context.Context) (UnitSystem, error)
	SetUnits(ctx context.Context, units UnitSystem) error
	Favorites(ctx context.Context) (Favorites, error)
}
