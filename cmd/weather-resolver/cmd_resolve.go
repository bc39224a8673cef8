package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-resolver/internal/config"
	"github.com/i474232898/weather-resolver/internal/logging"
	"github.com/i474232898/weather-resolver/internal/store"
	"github.com/i474232898/weather-resolver/internal/weather"
	"github.com/i474232898/weather-resolver/internal/weather/providers"
)

var resolveFlags struct {
	lat   float64
	lon   float64
	units string
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [query]",
	Short: "Resolve a place once and print its weather snapshot",
	Long: `Resolve a city name, or a position given with --lat and --lon, and print
the normalized weather snapshot as JSON.`,
	Example: `  weather-resolver resolve Paris
  weather-resolver resolve --lat 48.8566 --lon 2.3522 --units imperial`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().Float64Var(&resolveFlags.lat, "lat", 0, "latitude of the position to resolve")
	resolveCmd.Flags().Float64Var(&resolveFlags.lon, "lon", 0, "longitude of the position to resolve")
	resolveCmd.Flags().StringVar(&resolveFlags.units, "units", string(weather.Metric), "unit system (metric or imperial)")
	resolveCmd.MarkFlagsRequiredTogether("lat", "lon")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	units, err := weather.ParseUnitSystem(resolveFlags.units)
	if err != nil {
		return err
	}

	in, err := resolveInput(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, appName)
	defer func() { _ = logger.Sync() }()

	prefs := store.NewPreferences(store.NewMemoryKV(), cfg.DefaultLocation)
	service := providers.NewService(cfg.Providers, &http.Client{Timeout: cfg.Providers.Timeout}, prefs, cfg.DefaultLocation, logger)

	snap, err := service.Resolve(cmd.Context(), in, units).Unpack()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func resolveInput(cmd *cobra.Command, args []string) (weather.Input, error) {
	if cmd.Flags().Changed("lat") {
		if len(args) > 0 {
			return weather.Input{}, errors.New("pass either a query or --lat/--lon, not both")
		}
		return weather.Input{Coordinates: &weather.Coordinates{Lat: resolveFlags.lat, Lon: resolveFlags.lon}}, nil
	}
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return weather.Input{}, errors.New("a query or --lat/--lon is required")
	}
	return weather.Input{Query: args[0]}, nil
}
