package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/i474232898/weather-resolver/internal/weather"
)

// OpenWeatherProvider is weather provider B (OpenWeatherMap 3-hour forecast)
// and the air-quality source.
type OpenWeatherProvider struct {
	name   string
	apiKey string
	api    *upstream
	// pollution has its own breaker so air-quality outages never trip the
	// forecast fallback.
	pollution *upstream
}

func NewOpenWeatherProvider(client *http.Client, cfg Config) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:      "openweathermap",
		apiKey:    cfg.OpenWeatherKey,
		api:       newUpstream("openweathermap", cfg.OpenWeatherBaseURL, client, cfg),
		pollution: newUpstream("openweathermap-air", cfg.OpenWeatherBaseURL, client, cfg),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) ID() weather.ProviderID {
	return weather.ProviderB
}

// Forecast queries the 3-hour forecast by city name in the requested units.
func (p *OpenWeatherProvider) Forecast(ctx context.Context, loc weather.Location, units weather.UnitSystem) (weather.RawForecast, error) {
	if p.apiKey == "" {
		return weather.RawForecast{}, weather.NewError(weather.KindNetworkFailure, p.name, errMissingAPIKey)
	}

	values := url.Values{}
	values.Set("q", loc.Name)
	values.Set("appid", p.apiKey)
	values.Set("units", string(units))

	var payload weather.OpenWeatherForecast
	if err := p.api.getJSON(ctx, "/forecast", values, &payload, http.StatusNotFound); err != nil {
		return weather.RawForecast{}, err
	}
	if len(payload.List) == 0 {
		return weather.RawForecast{}, weather.NewError(weather.KindNetworkFailure, p.name, fmt.Errorf("empty forecast"))
	}

	return weather.RawForecast{
		Provider:    weather.ProviderB,
		Units:       units,
		OpenWeather: &payload,
	}, nil
}

// AirQualityIndex returns the 1..5 index from the air pollution endpoint.
func (p *OpenWeatherProvider) AirQualityIndex(ctx context.Context, lat, lon float64) (int, error) {
	if p.apiKey == "" {
		return 0, weather.NewError(weather.KindNetworkFailure, p.pollution.name, errMissingAPIKey)
	}

	values := url.Values{}
	values.Set("lat", formatCoord(lat))
	values.Set("lon", formatCoord(lon))
	values.Set("appid", p.apiKey)

	var payload struct {
		List []struct {
			Main struct {
				AQI int `json:"aqi"`
			} `json:"main"`
		} `json:"list"`
	}
	if err := p.pollution.getJSON(ctx, "/air_pollution", values, &payload); err != nil {
		return 0, err
	}
	if len(payload.List) == 0 {
		return 0, weather.NewError(weather.KindNetworkFailure, p.pollution.name, fmt.Errorf("empty pollution list"))
	}

	aqi := payload.List[0].Main.AQI
	if aqi < 1 || aqi > 5 {
		return 0, weather.NewError(weather.KindNetworkFailure, p.pollution.name, fmt.Errorf("aqi %d out of range", aqi))
	}
	return aqi, nil
}
