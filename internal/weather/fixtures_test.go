package weather

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	london = Location{Name: "London", Lat: 51.5, Lon: -0.12}
	paris  = Location{Name: "Paris", Lat: 48.8566, Lon: 2.3522}
	tokyo  = Location{Name: "Tokyo", Lat: 35.6762, Lon: 139.6503}
	dhaka  = Location{Name: "Dhaka", Lat: 23.8103, Lon: 90.4125}
)

// forecastStart is 2024-06-01T00:00:00Z.
const forecastStart int64 = 1717200000

func decodeInto(t *testing.T, v any, dst any) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, dst))
}

// openWeatherFixture builds an n-entry 3-hourly feed with constant wind.
func openWeatherFixture(t *testing.T, n int, windMS float64) *OpenWeatherForecast {
	t.Helper()
	icons := []string{"01d", "02d", "10d", "01n", "13n", "11d", "99x"}

	list := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		icon := icons[i%len(icons)]
		pod := "d"
		if icon[len(icon)-1] == 'n' {
			pod = "n"
		}
		list = append(list, map[string]any{
			"dt": forecastStart + int64(i)*3*3600,
			"main": map[string]any{
				"temp":       10 + float64(i)/10,
				"feels_like": 9 + float64(i)/10,
				"temp_min":   8 + float64(i)/10,
				"temp_max":   12 + float64(i)/10,
				"humidity":   70,
			},
			"weather": []map[string]any{{"main": "Clouds", "description": "scattered clouds", "icon": icon}},
			"wind":    map[string]any{"speed": windMS},
			"sys":     map[string]any{"pod": pod},
		})
	}

	var out OpenWeatherForecast
	decodeInto(t, map[string]any{
		"city": map[string]any{
			"name":     "London",
			"coord":    map[string]any{"lat": 51.5, "lon": -0.12},
			"timezone": 3600,
		},
		"list": list,
	}, &out)
	return &out
}

// weatherAPIFixture builds a days-long forecast with 24 hours per day.
func weatherAPIFixture(t *testing.T, days int) *WeatherAPIForecast {
	t.Helper()
	forecastDays := make([]map[string]any, 0, days)
	for d := 0; d < days; d++ {
		dayStart := forecastStart + int64(d)*86400
		hours := make([]map[string]any, 0, 24)
		for h := 0; h < 24; h++ {
			isDay := 0
			if h >= 6 && h < 18 {
				isDay = 1
			}
			hours = append(hours, map[string]any{
				"time_epoch": dayStart + int64(h)*3600,
				"temp_c":     15 + float64(h)/2,
				"temp_f":     59 + float64(h),
				"is_day":     isDay,
				"condition":  map[string]any{"text": "Sunny", "icon": "//cdn.weatherapi.com/weather/64x64/day/113.png", "code": 1000},
			})
		}
		forecastDays = append(forecastDays, map[string]any{
			"date":       unixDate(dayStart),
			"date_epoch": dayStart,
			"day": map[string]any{
				"maxtemp_c": 25.0, "maxtemp_f": 77.0,
				"mintemp_c": 12.0, "mintemp_f": 53.6,
				"condition": map[string]any{"text": "Sunny", "icon": "//cdn.weatherapi.com/weather/64x64/day/113.png", "code": 1000},
			},
			"astro": map[string]any{"sunrise": "04:43 AM", "sunset": "09:13 PM"},
			"hour":  hours,
		})
	}

	var out WeatherAPIForecast
	decodeInto(t, map[string]any{
		"location": map[string]any{"name": "London", "lat": 51.52, "lon": -0.11, "localtime_epoch": forecastStart + 10*3600 + 600},
		"current": map[string]any{
			"last_updated_epoch": forecastStart + 10*3600 + 300,
			"temp_c":             18.0, "temp_f": 64.4,
			"feelslike_c": 17.0, "feelslike_f": 62.6,
			"humidity": 55,
			"wind_kph": 14.4, "wind_mph": 8.9,
			"is_day":    1,
			"uv":        5.0,
			"condition": map[string]any{"text": "Partly cloudy", "icon": "//cdn.weatherapi.com/weather/64x64/day/116.png", "code": 1003},
		},
		"forecast": map[string]any{"forecastday": forecastDays},
	}, &out)
	return &out
}

func unixDate(sec int64) string {
	return time.Unix(sec, 0).UTC().Format("2006-01-02")
}

type fakeGeocoder struct {
	name    string
	loc     Location
	err     error
	reverse Location
	calls   int
	mu      sync.Mutex
}

func (g *fakeGeocoder) Name() string { return g.name }

func (g *fakeGeocoder) Search(_ context.Context, _ string) (Location, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return g.loc, g.err
}

func (g *fakeGeocoder) Reverse(_ context.Context, lat, lon float64) (Location, error) {
	if g.err != nil {
		return Location{}, g.err
	}
	return Location{Name: g.reverse.Name, Lat: lat, Lon: lon}, nil
}

func (g *fakeGeocoder) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeProvider struct {
	id    ProviderID
	raw   RawForecast
	err   error
	calls int
	mu    sync.Mutex
}

func (p *fakeProvider) ID() ProviderID { return p.id }

func (p *fakeProvider) Forecast(_ context.Context, _ Location, units UnitSystem) (RawForecast, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.err != nil {
		return RawForecast{}, p.err
	}
	raw := p.raw
	raw.Provider = p.id
	raw.Units = units
	return raw, nil
}

func (p *fakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeAirQuality struct {
	index int
	err   error
	block chan struct{}
}

func (a *fakeAirQuality) AirQualityIndex(ctx context.Context, _, _ float64) (int, error) {
	if a.block != nil {
		select {
		case <-a.block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return a.index, a.err
}

type memoryPrefs struct {
	mu        sync.Mutex
	current   *Location
	units     UnitSystem
	favorites Favorites
}

func (p *memoryPrefs) CurrentLocation(context.Context) (Location, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return dhaka, nil
	}
	return *p.current, nil
}

func (p *memoryPrefs) SetCurrentLocation(_ context.Context, loc Location) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = &loc
	return nil
}

func (p *memoryPrefs) Units(context.Context) (UnitSystem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.units == "" {
		return Metric, nil
	}
	return p.units, nil
}

func (p *memoryPrefs) SetUnits(_ context.Context, units UnitSystem) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.units = units
	return nil
}

func (p *memoryPrefs) Favorites(context.Context) (Favorites, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.favorites, nil
}

func (p *memoryPrefs) stored() (Location, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return Location{}, false
	}
	return *p.current, true
}
