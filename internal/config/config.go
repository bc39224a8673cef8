package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/i474232898/weather-resolver/internal/weather"
	"github.com/i474232898/weather-resolver/internal/weather/providers"
)

// Preference store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type AppConfig struct {
	// Providers is handed to the orchestrator at construction and never mutated.
	Providers providers.Config

	// DefaultLocation is used when device geolocation fails implicitly and
	// before any city has been stored.
	DefaultLocation weather.Location

	PrefsBackend   string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	// RefreshInterval controls how often the current location is re-resolved
	// (0 disables the scheduler).
	RefreshInterval time.Duration

	Port     string
	LogLevel string
}

// Load reads configuration from the environment (and an optional .env file)
// with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	defaults := providers.DefaultConfig()
	v.SetDefault("NOMINATIM_BASE_URL", defaults.NominatimBaseURL)
	v.SetDefault("WEATHERAPI_BASE_URL", defaults.WeatherAPIBaseURL)
	v.SetDefault("OPENWEATHER_BASE_URL", defaults.OpenWeatherBaseURL)
	v.SetDefault("GEOCODER_USER_AGENT", defaults.UserAgent)
	v.SetDefault("HTTP_TIMEOUT", defaults.Timeout.String())
	v.SetDefault("PROVIDER_MAX_RETRIES", defaults.Backoff.MaxRetries)
	v.SetDefault("PROVIDER_BACKOFF_INITIAL", defaults.Backoff.InitialInterval.String())
	v.SetDefault("PROVIDER_BACKOFF_MAX", defaults.Backoff.MaxInterval.String())

	v.SetDefault("DEFAULT_LOCATION_NAME", "Dhaka")
	v.SetDefault("DEFAULT_LOCATION_LAT", 23.8103)
	v.SetDefault("DEFAULT_LOCATION_LON", 90.4125)

	v.SetDefault("PREFS_BACKEND", BackendMemory)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "weather-resolver:")

	v.SetDefault("REFRESH_INTERVAL", "15m")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	return v
}

// FromViper builds an AppConfig from v. Durations accept time.ParseDuration syntax.
func FromViper(v *viper.Viper) (*AppConfig, error) {
	cfg := &AppConfig{}

	timeout, err := duration(v, "HTTP_TIMEOUT")
	if err != nil {
		return nil, err
	}
	backoffInitial, err := duration(v, "PROVIDER_BACKOFF_INITIAL")
	if err != nil {
		return nil, err
	}
	backoffMax, err := duration(v, "PROVIDER_BACKOFF_MAX")
	if err != nil {
		return nil, err
	}
	retries := v.GetInt("PROVIDER_MAX_RETRIES")
	if retries < 0 {
		return nil, fmt.Errorf("invalid PROVIDER_MAX_RETRIES: %d", retries)
	}

	cfg.Providers = providers.Config{
		NominatimBaseURL:   v.GetString("NOMINATIM_BASE_URL"),
		WeatherAPIBaseURL:  v.GetString("WEATHERAPI_BASE_URL"),
		OpenWeatherBaseURL: v.GetString("OPENWEATHER_BASE_URL"),
		WeatherAPIKey:      v.GetString("WEATHERAPI_API_KEY"),
		OpenWeatherKey:     v.GetString("OPENWEATHER_API_KEY"),
		UserAgent:          v.GetString("GEOCODER_USER_AGENT"),
		Timeout:            timeout,
		Backoff: providers.BackoffConfig{
			MaxRetries:      retries,
			InitialInterval: backoffInitial,
			MaxInterval:     backoffMax,
		},
	}

	cfg.DefaultLocation = weather.Location{
		Name: v.GetString("DEFAULT_LOCATION_NAME"),
		Lat:  v.GetFloat64("DEFAULT_LOCATION_LAT"),
		Lon:  v.GetFloat64("DEFAULT_LOCATION_LON"),
	}
	if err := cfg.DefaultLocation.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default location: %w", err)
	}

	cfg.PrefsBackend = v.GetString("PREFS_BACKEND")
	switch cfg.PrefsBackend {
	case BackendMemory, BackendRedis:
	default:
		return nil, fmt.Errorf("invalid PREFS_BACKEND %q", cfg.PrefsBackend)
	}
	cfg.RedisAddr = v.GetString("REDIS_ADDR")
	cfg.RedisPassword = v.GetString("REDIS_PASSWORD")
	cfg.RedisDB = v.GetInt("REDIS_DB")
	cfg.RedisKeyPrefix = v.GetString("REDIS_KEY_PREFIX")

	cfg.RefreshInterval, err = duration(v, "REFRESH_INTERVAL")
	if err != nil {
		return nil, err
	}

	cfg.Port = v.GetString("PORT")
	cfg.LogLevel = v.GetString("LOG_LEVEL")

	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration", key)
	}
	return d, nil
}
