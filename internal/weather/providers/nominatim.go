package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/i474232898/weather-resolver/internal/weather"
)

// NominatimGeocoder is the primary geocoder, backed by the OpenStreetMap
// Nominatim search and reverse endpoints.
type NominatimGeocoder struct {
	name string
	api  *upstream
}

func NewNominatimGeocoder(client *http.Client, cfg Config) *NominatimGeocoder {
	return &NominatimGeocoder{
		name: "nominatim",
		api:  newUpstream("nominatim", cfg.NominatimBaseURL, client, cfg),
	}
}

func (g *NominatimGeocoder) Name() string {
	return g.name
}

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Search resolves free text to the best matching place. The location name is
// the first comma-delimited segment of the display name.
func (g *NominatimGeocoder) Search(ctx context.Context, text string) (weather.Location, error) {
	values := url.Values{}
	values.Set("q", text)
	values.Set("format", "json")
	values.Set("limit", "1")

	var places []nominatimPlace
	if err := g.api.getJSON(ctx, "/search", values, &places); err != nil {
		return weather.Location{}, err
	}
	if len(places) == 0 {
		return weather.Location{}, weather.NewError(weather.KindNotFound, g.name, fmt.Errorf("no results for %q", text))
	}

	p := places[0]
	lat, latErr := strconv.ParseFloat(p.Lat, 64)
	lon, lonErr := strconv.ParseFloat(p.Lon, 64)
	if err := errors.Join(latErr, lonErr); err != nil {
		return weather.Location{}, weather.NewError(weather.KindNetworkFailure, g.name, fmt.Errorf("invalid coordinates: %w", err))
	}

	return weather.Location{
		Name: weather.FirstSegment(p.DisplayName),
		Lat:  lat,
		Lon:  lon,
	}, nil
}

// Reverse names the place at lat/lon using the first of city, town, village
// or country. The returned location keeps the given coordinates.
func (g *NominatimGeocoder) Reverse(ctx context.Context, lat, lon float64) (weather.Location, error) {
	values := url.Values{}
	values.Set("format", "json")
	values.Set("lat", formatCoord(lat))
	values.Set("lon", formatCoord(lon))

	var payload struct {
		Error       string `json:"error"`
		DisplayName string `json:"display_name"`
		Address     struct {
			City    string `json:"city"`
			Town    string `json:"town"`
			Village string `json:"village"`
			Country string `json:"country"`
		} `json:"address"`
	}
	if err := g.api.getJSON(ctx, "/reverse", values, &payload); err != nil {
		return weather.Location{}, err
	}
	if payload.Error != "" {
		return weather.Location{}, weather.NewError(weather.KindNotFound, g.name, errors.New(payload.Error))
	}

	a := payload.Address
	name, err := weather.PlaceName(a.City, a.Town, a.Village, a.Country)
	if err != nil {
		return weather.Location{}, weather.NewError(weather.KindNotFound, g.name, err)
	}

	return weather.Location{Name: name, Lat: lat, Lon: lon}, nil
}
