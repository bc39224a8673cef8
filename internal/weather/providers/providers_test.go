package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-resolver/internal/weather"
)

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.NominatimBaseURL = baseURL
	cfg.WeatherAPIBaseURL = baseURL
	cfg.OpenWeatherBaseURL = baseURL
	cfg.WeatherAPIKey = "wa-key"
	cfg.OpenWeatherKey = "ow-key"
	cfg.Timeout = 2 * time.Second
	cfg.Backoff = BackoffConfig{MaxRetries: 1, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
	return cfg
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNominatimSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		if r.URL.Query().Get("q") == "zzznotacity123" {
			writeJSON(w, http.StatusOK, []any{})
			return
		}
		writeJSON(w, http.StatusOK, []map[string]string{{
			"display_name": "Paris, Île-de-France, France métropolitaine, France",
			"lat":          "48.8588897",
			"lon":          "2.3200410",
		}})
	}))
	defer srv.Close()

	g := NewNominatimGeocoder(srv.Client(), testConfig(srv.URL))

	loc, err := g.Search(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, weather.Location{Name: "Paris", Lat: 48.8588897, Lon: 2.320041}, loc)

	_, err = g.Search(context.Background(), "zzznotacity123")
	assert.ErrorIs(t, err, weather.ErrNotFound)
}

func TestNominatimReverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		if r.URL.Query().Get("lat") == "0" {
			writeJSON(w, http.StatusOK, map[string]string{"error": "Unable to geocode"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"display_name": "Shibuya, Tokyo, Japan",
			"address": map[string]string{
				"town":    "",
				"city":    "Tokyo",
				"country": "Japan",
			},
		})
	}))
	defer srv.Close()

	g := NewNominatimGeocoder(srv.Client(), testConfig(srv.URL))

	loc, err := g.Reverse(context.Background(), 35.6762, 139.6503)
	require.NoError(t, err)
	assert.Equal(t, weather.Location{Name: "Tokyo", Lat: 35.6762, Lon: 139.6503}, loc)

	_, err = g.Reverse(context.Background(), 0, 0)
	assert.ErrorIs(t, err, weather.ErrNotFound)
}

func TestWeatherAPISearchNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "wa-key", r.URL.Query().Get("key"))
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{"code": 1006, "message": "No matching location found."},
		})
	}))
	defer srv.Close()

	p := NewWeatherAPIProvider(srv.Client(), testConfig(srv.URL))
	_, err := p.Search(context.Background(), "zzznotacity123")
	assert.ErrorIs(t, err, weather.ErrNotFound)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
}

func TestWeatherAPIForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/forecast.json", r.URL.Path)
		assert.Equal(t, "51.5,-0.12", q.Get("q"))
		assert.Equal(t, "7", q.Get("days"))
		writeJSON(w, http.StatusOK, map[string]any{
			"location": map[string]any{"name": "London", "lat": 51.52, "lon": -0.11},
			"current":  map[string]any{"temp_c": 18.0, "condition": map[string]any{"text": "Sunny", "icon": "//cdn/113.png"}},
			"forecast": map[string]any{"forecastday": []map[string]any{{
				"date": "2024-06-01",
				"hour": []map[string]any{{"time_epoch": 1717200000, "temp_c": 15.0}},
			}}},
		})
	}))
	defer srv.Close()

	p := NewWeatherAPIProvider(srv.Client(), testConfig(srv.URL))
	raw, err := p.Forecast(context.Background(), weather.Location{Name: "London", Lat: 51.5, Lon: -0.12}, weather.Metric)
	require.NoError(t, err)
	assert.Equal(t, weather.ProviderA, raw.Provider)
	require.NotNil(t, raw.WeatherAPI)
	assert.Nil(t, raw.OpenWeather)
	assert.Equal(t, 18.0, raw.WeatherAPI.Current.TempC)
}

func TestMissingAPIKey(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.WeatherAPIKey = ""
	cfg.OpenWeatherKey = ""

	_, err := NewWeatherAPIProvider(http.DefaultClient, cfg).Forecast(context.Background(), weather.Location{Name: "x"}, weather.Metric)
	assert.ErrorIs(t, err, weather.ErrNetworkFailure)

	_, err = NewOpenWeatherProvider(http.DefaultClient, cfg).AirQualityIndex(context.Background(), 1, 1)
	assert.ErrorIs(t, err, weather.ErrNetworkFailure)
}

func TestOpenWeatherForecastUnits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/forecast", r.URL.Path)
		assert.Equal(t, "London", q.Get("q"))
		assert.Equal(t, "ow-key", q.Get("appid"))
		assert.Equal(t, "imperial", q.Get("units"))
		writeJSON(w, http.StatusOK, map[string]any{
			"city": map[string]any{"name": "London"},
			"list": []map[string]any{{"dt": 1717200000, "main": map[string]any{"temp": 60.1}}},
		})
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), testConfig(srv.URL))
	raw, err := p.Forecast(context.Background(), weather.Location{Name: "London", Lat: 51.5, Lon: -0.12}, weather.Imperial)
	require.NoError(t, err)
	assert.Equal(t, weather.ProviderB, raw.Provider)
	assert.Equal(t, weather.Imperial, raw.Units)
	require.Len(t, raw.OpenWeather.List, 1)
}

func TestOpenWeatherAirQuality(t *testing.T) {
	var aqi atomic.Int32
	aqi.Store(3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/air_pollution", r.URL.Path)
		assert.Equal(t, "51.5", r.URL.Query().Get("lat"))
		assert.Equal(t, "-0.12", r.URL.Query().Get("lon"))
		writeJSON(w, http.StatusOK, map[string]any{
			"list": []map[string]any{{"main": map[string]any{"aqi": aqi.Load()}}},
		})
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), testConfig(srv.URL))
	index, err := p.AirQualityIndex(context.Background(), 51.5, -0.12)
	require.NoError(t, err)
	assert.Equal(t, 3, index)

	aqi.Store(9)
	_, err = p.AirQualityIndex(context.Background(), 51.5, -0.12)
	assert.Error(t, err)
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, []map[string]string{{"display_name": "Oslo, Norway", "lat": "59.91", "lon": "10.75"}})
	}))
	defer srv.Close()

	g := NewNominatimGeocoder(srv.Client(), testConfig(srv.URL))
	loc, err := g.Search(context.Background(), "Oslo")
	require.NoError(t, err)
	assert.Equal(t, "Oslo", loc.Name)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), testConfig(srv.URL))
	_, err := p.Forecast(context.Background(), weather.Location{Name: "London"}, weather.Metric)
	assert.ErrorIs(t, err, weather.ErrNetworkFailure)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTransportErrorRedactsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	cfg := testConfig(url)
	cfg.Backoff.MaxRetries = 0
	_, err := NewWeatherAPIProvider(&http.Client{}, cfg).Forecast(context.Background(), weather.Location{Name: "London", Lat: 1, Lon: 1}, weather.Metric)
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrNetworkFailure)
	assert.NotContains(t, err.Error(), "wa-key")
}

func TestCallTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	cfg.Backoff.MaxRetries = 0

	start := time.Now()
	_, err := NewNominatimGeocoder(srv.Client(), cfg).Search(context.Background(), "Paris")
	assert.ErrorIs(t, err, weather.ErrNetworkFailure)
	assert.Less(t, time.Since(start), time.Second)
}

// TestServiceFailsOverToOpenWeather runs the assembled pipeline against a
// fake upstream where WeatherAPI is down.
func TestServiceFailsOverToOpenWeather(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/forecast.json":
			w.WriteHeader(http.StatusBadGateway)
		case "/forecast":
			list := make([]map[string]any, 0, 56)
			for i := 0; i < 56; i++ {
				list = append(list, map[string]any{
					"dt":      1717200000 + i*3*3600,
					"main":    map[string]any{"temp": 12.5, "temp_min": 10.0, "temp_max": 14.0, "humidity": 80},
					"weather": []map[string]string{{"description": "light rain", "icon": "10d"}},
					"wind":    map[string]any{"speed": 5},
				})
			}
			writeJSON(w, http.StatusOK, map[string]any{"city": map[string]any{"name": "London"}, "list": list})
		case "/air_pollution":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	london := weather.Location{Name: "London", Lat: 51.5, Lon: -0.12}
	prefs := &stubPrefs{}
	svc := NewService(testConfig(srv.URL), srv.Client(), prefs, london, nil)

	out := svc.Resolve(context.Background(), weather.Input{Location: &london}, weather.Metric)
	require.True(t, out.OK(), fmt.Sprint(out.Err))

	snap := out.Value
	assert.Equal(t, weather.ProviderB, snap.SourceProvider)
	assert.Len(t, snap.Hourly, 24)
	assert.Len(t, snap.Daily, 7)
	assert.Equal(t, 18.0, snap.Current.WindSpeed)
	assert.Equal(t, weather.AQIUnavailable, snap.AirQuality)
	assert.Equal(t, weather.LocalIconRef(weather.IconCloudDrizzle), snap.Current.ConditionIcon)
	assert.Equal(t, london, prefs.current)
}

type stubPrefs struct {
	current weather.Location
}

func (p *stubPrefs) CurrentLocation(context.Context) (weather.Location, error) {
	return p.current, nil
}

func (p *stubPrefs) SetCurrentLocation(_ context.Context, loc weather.Location) error {
	p.current = loc
	return nil
}

func (p *stubPrefs) Units(context.Context) (weather.UnitSystem, error) { return weather.Metric, nil }

func (p *stubPrefs) SetUnits(context.Context, weather.UnitSystem) error { return nil }

func (p *stubPrefs) Favorites(context.Context) (weather.Favorites, error) { return nil, nil }
