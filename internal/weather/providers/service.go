package providers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/i474232898/weather-resolver/internal/weather"
)

// NewService wires the upstream adapters described by cfg into a
// weather.Service: Nominatim then WeatherAPI for geocoding, WeatherAPI then
// OpenWeatherMap for weather, OpenWeatherMap for air quality.
func NewService(cfg Config, client *http.Client, prefs weather.Preferences, defaultLocation weather.Location, logger *zap.Logger) *weather.Service {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	nominatim := NewNominatimGeocoder(client, cfg)
	weatherAPI := NewWeatherAPIProvider(client, cfg)
	openWeather := NewOpenWeatherProvider(client, cfg)

	resolver := weather.NewLocationResolver(nominatim, weatherAPI, logger.Named("resolver"))
	fetcher := weather.NewFetcher(weatherAPI, openWeather, logger.Named("fetcher"),
		weather.WithAirQuality(openWeather))

	return weather.NewService(resolver, fetcher, prefs, defaultLocation, logger.Named("service"))
}
