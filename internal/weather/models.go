package weather

import (
	"encoding/json"
	"fmt"
	"time"
)

// Location is a canonical place the pipeline can fetch weather for.
type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Validate checks the coordinate ranges and that the location carries a name.
func (l Location) Validate() error {
	if l.Name == "" {
		return fmt.Errorf("location name is empty")
	}
	return ValidateCoordinates(l.Lat, l.Lon)
}

// Key returns a canonical string key for logging and indexing.
func (l Location) Key() string {
	return fmt.Sprintf("%s@%.4f,%.4f", l.Name, l.Lat, l.Lon)
}

// Coordinates is a bare (lat, lon) pair, e.g. from device geolocation.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ValidateCoordinates reports whether lat/lon lie within WGS84 bounds.
func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %f out of range [-90,90]", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %f out of range [-180,180]", lon)
	}
	return nil
}

// UnitSystem selects the presentation units of a snapshot.
type UnitSystem string

const (
	Metric   UnitSystem = "metric"
	Imperial UnitSystem = "imperial"
)

// ParseUnitSystem accepts "metric" or "imperial".
func ParseUnitSystem(s string) (UnitSystem, error) {
	switch UnitSystem(s) {
	case Metric, Imperial:
		return UnitSystem(s), nil
	default:
		return "", fmt.Errorf("unknown unit system %q", s)
	}
}

// ProviderID names the upstream weather provider that produced a snapshot.
type ProviderID string

const (
	ProviderA ProviderID = "weatherapi"
	ProviderB ProviderID = "openweathermap"
)

// AQICategory is the human-readable air quality band.
type AQICategory string

const (
	AQIGood        AQICategory = "Good"
	AQIFair        AQICategory = "Fair"
	AQIModerate    AQICategory = "Moderate"
	AQIPoor        AQICategory = "Poor"
	AQIVeryPoor    AQICategory = "Very Poor"
	AQIUnavailable AQICategory = "N/A"
)

// AQIFromIndex maps the 1..5 pollution index onto a category.
func AQIFromIndex(index int) AQICategory {
	switch index {
	case 1:
		return AQIGood
	case 2:
		return AQIFair
	case 3:
		return AQIModerate
	case 4:
		return AQIPoor
	case 5:
		return AQIVeryPoor
	default:
		return AQIUnavailable
	}
}

// IconKind tags an IconRef.
type IconKind string

const (
	IconRemote IconKind = "remote"
	IconLocal  IconKind = "local"
)

// LocalIcon is the small vector icon vocabulary bundled with the dashboard.
type LocalIcon string

const (
	IconSun           LocalIcon = "sun"
	IconMoon          LocalIcon = "moon"
	IconCloud         LocalIcon = "cloud"
	IconCloudRain     LocalIcon = "cloud-rain"
	IconCloudDrizzle  LocalIcon = "cloud-drizzle"
	IconCloudSnow     LocalIcon = "cloud-snow"
	IconAlertTriangle LocalIcon = "alert-triangle"
)

// IconRef is either a remote image URL or a local icon name. Renderers switch
// on Kind, never on the producing provider.
type IconRef struct {
	Kind  IconKind  `json:"kind"`
	URL   string    `json:"url,omitempty"`
	Local LocalIcon `json:"local,omitempty"`
}

func RemoteIcon(url string) IconRef {
	return IconRef{Kind: IconRemote, URL: url}
}

func LocalIconRef(icon LocalIcon) IconRef {
	return IconRef{Kind: IconLocal, Local: icon}
}

// UVIndex is a UV reading that may be unavailable; it serialises as "N/A" then.
type UVIndex struct {
	Value float64
	Valid bool
}

func (u UVIndex) MarshalJSON() ([]byte, error) {
	if !u.Valid {
		return json.Marshal(string(AQIUnavailable))
	}
	return json.Marshal(u.Value)
}

func (u *UVIndex) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*u = UVIndex{Value: f, Valid: true}
		return nil
	}
	*u = UVIndex{}
	return nil
}

// Current holds present conditions. Temperatures and wind are expressed in the
// snapshot's unit system (°C and km/h for metric, °F and mph for imperial).
type Current struct {
	Temp          float64 `json:"temp"`
	FeelsLike     float64 `json:"feelsLike"`
	HumidityPct   int     `json:"humidityPct"`
	WindSpeed     float64 `json:"windSpeed"`
	ConditionText string  `json:"conditionText"`
	ConditionIcon IconRef `json:"conditionIcon"`
	IsDay         bool    `json:"isDay"`
	UV            UVIndex `json:"uv"`
}

type HourPoint struct {
	Timestamp     time.Time `json:"timestamp"`
	Temp          float64   `json:"temp"`
	ConditionIcon IconRef   `json:"conditionIcon"`
	IsDay         bool      `json:"isDay"`
}

// DayPoint is one daily forecast entry. Sunrise and Sunset are only set when the
// provider supplies astronomical data.
type DayPoint struct {
	Date          string    `json:"date"` // YYYY-MM-DD, provider local
	Time          time.Time `json:"-"`
	MaxTemp       float64   `json:"maxTemp"`
	MinTemp       float64   `json:"minTemp"`
	ConditionIcon IconRef   `json:"conditionIcon"`
	Sunrise       *string   `json:"sunrise,omitempty"`
	Sunset        *string   `json:"sunset,omitempty"`
}

// WeatherSnapshot is the provider-agnostic result of one resolution.
type WeatherSnapshot struct {
	Location       Location    `json:"location"`
	Units          UnitSystem  `json:"units"`
	Current        Current     `json:"current"`
	Hourly         []HourPoint `json:"hourly"`
	Daily          []DayPoint  `json:"daily"`
	AirQuality     AQICategory `json:"airQuality"`
	SourceProvider ProviderID  `json:"sourceProvider"`
}
