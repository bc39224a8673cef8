package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// LocationResolver resolves free text or coordinates into a Location, trying
// the primary geocoder before the secondary one. The first success wins.
type LocationResolver struct {
	primary   ReverseGeocoder
	secondary Geocoder
	logger    *zap.Logger
}

// NewLocationResolver creates a LocationResolver. secondary may be nil.
func NewLocationResolver(primary ReverseGeocoder, secondary Geocoder, logger *zap.Logger) *LocationResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocationResolver{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// ResolveByQuery geocodes text. If both geocoders fail it returns NotFound
// when either of them reported no match, and AllProvidersExhausted when both
// failed at the transport level.
func (r *LocationResolver) ResolveByQuery(ctx context.Context, text string) Outcome[Location] {
	text = strings.TrimSpace(text)
	if text == "" {
		return Failure[Location](KindNotFound, "", errors.New("empty query"))
	}

	var errs []error
	for _, g := range r.chain() {
		loc, err := g.Search(ctx, text)
		if err == nil {
			err = loc.Validate()
		}
		if err == nil {
			r.logger.Debug("geocoder resolved query",
				zap.String("geocoder", g.Name()),
				zap.String("query", text),
				zap.String("location", loc.Key()))
			return Success(loc)
		}
		r.logger.Warn("geocoder failed, trying next",
			zap.String("geocoder", g.Name()),
			zap.String("query", text),
			zap.Error(err))
		errs = append(errs, err)
	}

	joined := errors.Join(errs...)
	for _, err := range errs {
		if errors.Is(err, ErrNotFound) {
			return Failure[Location](KindNotFound, "", joined)
		}
	}
	return Failure[Location](KindAllProvidersExhausted, "", joined)
}

// ResolveByCoordinates reverse-geocodes a device position via the primary
// geocoder. Falling back to a default location on failure is the caller's call.
func (r *LocationResolver) ResolveByCoordinates(ctx context.Context, lat, lon float64) Outcome[Location] {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return Failure[Location](KindNotFound, "", err)
	}
	if r.primary == nil {
		return Failure[Location](KindUnsupported, "", errors.New("no reverse geocoder configured"))
	}

	loc, err := r.primary.Reverse(ctx, lat, lon)
	if err != nil {
		return FailureFrom[Location](err)
	}
	if err := loc.Validate(); err != nil {
		return Failure[Location](KindNotFound, r.primary.Name(), err)
	}
	return Success(loc)
}

func (r *LocationResolver) chain() []Geocoder {
	var out []Geocoder
	if r.primary != nil {
		out = append(out, r.primary)
	}
	if r.secondary != nil {
		out = append(out, r.secondary)
	}
	return out
}

// FirstSegment returns the part of a geocoder display name before the first
// comma, e.g. "Paris, Île-de-France, France" -> "Paris".
func FirstSegment(displayName string) string {
	name, _, _ := strings.Cut(displayName, ",")
	return strings.TrimSpace(name)
}

// PlaceName picks the first non-empty of city, town, village, country.
func PlaceName(city, town, village, country string) (string, error) {
	for _, s := range []string{city, town, village, country} {
		if s = strings.TrimSpace(s); s != "" {
			return s, nil
		}
	}
	return "", fmt.Errorf("reverse geocode result has no place name")
}
