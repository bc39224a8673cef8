package weather

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// DefaultAirQualityGrace is how long the fetcher waits for the air-quality
// call once the weather path has finished.
const DefaultAirQualityGrace = 2 * time.Second

// Fetcher retrieves raw forecast data for a location from a primary provider,
// falling back to a secondary one, and fetches air quality alongside.
type Fetcher struct {
	providers []ForecastProvider
	air       AirQualityProvider
	grace     time.Duration
	logger    *zap.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithAirQuality enables the independent air-quality call.
func WithAirQuality(p AirQualityProvider) FetcherOption {
	return func(f *Fetcher) {
		f.air = p
	}
}

// WithAirQualityGrace overrides DefaultAirQualityGrace.
func WithAirQualityGrace(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.grace = d
	}
}

// NewFetcher creates a Fetcher trying providers in order (nil entries are skipped).
func NewFetcher(primary, secondary ForecastProvider, logger *zap.Logger, opts ...FetcherOption) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fetcher{
		grace:  DefaultAirQualityGrace,
		logger: logger,
	}
	for _, p := range []ForecastProvider{primary, secondary} {
		if p != nil {
			f.providers = append(f.providers, p)
		}
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the first successful provider payload for loc. The fallback
// provider is only called once the primary has failed. Air quality never
// fails the fetch; it degrades to AQIUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, loc Location, units UnitSystem) Outcome[RawForecast] {
	aqCtx, cancelAQ := context.WithCancel(ctx)
	defer cancelAQ()

	aqCh := make(chan AQICategory, 1)
	if f.air != nil {
		go func() {
			aqCh <- f.fetchAirQuality(aqCtx, loc)
		}()
	} else {
		aqCh <- AQIUnavailable
	}

	var (
		raw  RawForecast
		errs []error
		ok   bool
	)
	for _, p := range f.providers {
		r, err := p.Forecast(ctx, loc, units)
		if err == nil {
			raw, ok = r, true
			break
		}
		f.logger.Warn("weather provider failed",
			zap.String("provider", string(p.ID())),
			zap.String("location", loc.Key()),
			zap.Error(err))
		errs = append(errs, err)
	}
	if !ok {
		if len(errs) == 0 {
			errs = append(errs, errors.New("no weather providers configured"))
		}
		return Failure[RawForecast](KindAllProvidersExhausted, "", errors.Join(errs...))
	}

	raw.Units = units
	raw.AirQuality = f.awaitAirQuality(ctx, aqCh)
	return Success(raw)
}

func (f *Fetcher) fetchAirQuality(ctx context.Context, loc Location) AQICategory {
	index, err := f.air.AirQualityIndex(ctx, loc.Lat, loc.Lon)
	if err != nil {
		f.logger.Info("air quality unavailable",
			zap.String("location", loc.Key()),
			zap.Error(err))
		return AQIUnavailable
	}
	return AQIFromIndex(index)
}

func (f *Fetcher) awaitAirQuality(ctx context.Context, aqCh <-chan AQICategory) AQICategory {
	timer := time.NewTimer(f.grace)
	defer timer.Stop()

	select {
	case aq := <-aqCh:
		return aq
	case <-timer.C:
		f.logger.Info("air quality call too slow, dropping it")
		return AQIUnavailable
	case <-ctx.Done():
		return AQIUnavailable
	}
}
