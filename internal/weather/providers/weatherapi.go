package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/i474232898/weather-resolver/internal/weather"
)

const weatherAPIForecastDays = 7

// WeatherAPIProvider is weather provider A (WeatherAPI.com). Its forecast
// endpoint doubles as the secondary geocoder.
type WeatherAPIProvider struct {
	name   string
	apiKey string
	api    *upstream
}

func NewWeatherAPIProvider(client *http.Client, cfg Config) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:   "weatherapi",
		apiKey: cfg.WeatherAPIKey,
		api:    newUpstream("weatherapi", cfg.WeatherAPIBaseURL, client, cfg),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) ID() weather.ProviderID {
	return weather.ProviderA
}

// Search uses the provider's own location matching on free text.
// WeatherAPI answers 400 when nothing matches.
func (p *WeatherAPIProvider) Search(ctx context.Context, text string) (weather.Location, error) {
	if p.apiKey == "" {
		return weather.Location{}, weather.NewError(weather.KindNetworkFailure, p.name, errMissingAPIKey)
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", text)
	values.Set("days", "1")

	var payload struct {
		Location struct {
			Name string  `json:"name"`
			Lat  float64 `json:"lat"`
			Lon  float64 `json:"lon"`
		} `json:"location"`
	}
	if err := p.api.getJSON(ctx, "/forecast.json", values, &payload, http.StatusBadRequest, http.StatusNotFound); err != nil {
		return weather.Location{}, err
	}
	if payload.Location.Name == "" {
		return weather.Location{}, weather.NewError(weather.KindNotFound, p.name, fmt.Errorf("no location for %q", text))
	}

	return weather.Location{
		Name: payload.Location.Name,
		Lat:  payload.Location.Lat,
		Lon:  payload.Location.Lon,
	}, nil
}

// Forecast fetches current conditions plus a 7-day forecast for loc's
// coordinates. Both unit systems are present in the payload.
func (p *WeatherAPIProvider) Forecast(ctx context.Context, loc weather.Location, units weather.UnitSystem) (weather.RawForecast, error) {
	if p.apiKey == "" {
		return weather.RawForecast{}, weather.NewError(weather.KindNetworkFailure, p.name, errMissingAPIKey)
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", formatCoord(loc.Lat)+","+formatCoord(loc.Lon))
	values.Set("days", strconv.Itoa(weatherAPIForecastDays))

	var payload weather.WeatherAPIForecast
	if err := p.api.getJSON(ctx, "/forecast.json", values, &payload); err != nil {
		return weather.RawForecast{}, err
	}
	if len(payload.Forecast.Forecastday) == 0 {
		return weather.RawForecast{}, weather.NewError(weather.KindNetworkFailure, p.name, fmt.Errorf("empty forecast"))
	}

	return weather.RawForecast{
		Provider:   weather.ProviderA,
		Units:      units,
		WeatherAPI: &payload,
	}, nil
}
