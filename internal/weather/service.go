package weather

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the stage a resolution is in.
type State string

const (
	StateIdle              State = "idle"
	StateResolvingLocation State = "resolving_location"
	StateFetchingWeather   State = "fetching_weather"
	StateNormalizing       State = "normalizing"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// Status describes the current (latest issued) resolution.
type Status struct {
	Seq       uint64    `json:"seq"`
	State     State     `json:"state"`
	ErrorKind ErrorKind `json:"errorKind,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Input selects what to resolve. Location takes precedence over Coordinates,
// which take precedence over Query.
type Input struct {
	Query       string
	Coordinates *Coordinates
	Location    *Location
}

// GeoFix is the result of a device geolocation attempt: either coordinates or
// an error such as ErrPermissionDenied or ErrUnsupported.
type GeoFix struct {
	Coordinates *Coordinates
	Err         error
}

// Service orchestrates location resolution, weather fetching and
// normalisation. Every resolution gets a sequence number; only the latest
// issued one may publish its result.
type Service struct {
	resolver        *LocationResolver
	fetcher         *Fetcher
	prefs           Preferences
	defaultLocation Location
	logger          *zap.Logger

	seq atomic.Uint64

	mu     sync.RWMutex
	status Status
	latest *WeatherSnapshot

	persistMu sync.Mutex
}

// NewService creates a new Service.
func NewService(resolver *LocationResolver, fetcher *Fetcher, prefs Preferences, defaultLocation Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		resolver:        resolver,
		fetcher:         fetcher,
		prefs:           prefs,
		defaultLocation: defaultLocation,
		logger:          logger,
		status:          Status{State: StateIdle},
	}
}

type resolution struct {
	id     string
	seq    uint64
	logger *zap.Logger
}

// Resolve runs the pipeline for in and units. A result whose resolution was
// superseded by a newer call comes back as a KindSuperseded failure and must
// be discarded by the caller.
func (s *Service) Resolve(ctx context.Context, in Input, units UnitSystem) Outcome[WeatherSnapshot] {
	res := s.begin("resolve")
	return s.run(ctx, res, units, func(ctx context.Context) Outcome[Location] {
		return s.locate(ctx, in)
	})
}

// ResolveGeolocation resolves a device position. When the fix or its reverse
// geocode fails, an implicit request falls back to the default location; an
// explicit one ("use my location") surfaces the failure and leaves the
// current location untouched.
func (s *Service) ResolveGeolocation(ctx context.Context, fix GeoFix, explicit bool, units UnitSystem) Outcome[WeatherSnapshot] {
	res := s.begin("geolocation")
	return s.run(ctx, res, units, func(ctx context.Context) Outcome[Location] {
		var out Outcome[Location]
		switch {
		case fix.Err != nil:
			out = FailureFrom[Location](fix.Err)
		case fix.Coordinates == nil:
			out = Failure[Location](KindUnsupported, "", errors.New("no coordinates in geolocation fix"))
		default:
			out = s.resolver.ResolveByCoordinates(ctx, fix.Coordinates.Lat, fix.Coordinates.Lon)
		}
		if out.OK() || explicit {
			return out
		}
		res.logger.Info("geolocation failed, using default location",
			zap.String("default", s.defaultLocation.Key()),
			zap.Error(out.Err))
		return Success(s.defaultLocation)
	})
}

// SelectFavorite resolves a stored favorite with the stored unit system.
func (s *Service) SelectFavorite(ctx context.Context, name string) Outcome[WeatherSnapshot] {
	favs, err := s.prefs.Favorites(ctx)
	if err != nil {
		return FailureFrom[WeatherSnapshot](err)
	}
	loc, ok := favs.Find(name)
	if !ok {
		return Failure[WeatherSnapshot](KindNotFound, "", errors.New("no favorite named "+name))
	}
	return s.Resolve(ctx, Input{Location: &loc}, s.Units(ctx))
}

// ChangeUnits stores the new unit system and re-resolves the current location.
// Provider payloads depend on the requested units, so this is a full
// resolution rather than a local conversion.
func (s *Service) ChangeUnits(ctx context.Context, units UnitSystem) Outcome[WeatherSnapshot] {
	if err := s.prefs.SetUnits(ctx, units); err != nil {
		return FailureFrom[WeatherSnapshot](err)
	}
	loc, err := s.prefs.CurrentLocation(ctx)
	if err != nil {
		return FailureFrom[WeatherSnapshot](err)
	}
	return s.Resolve(ctx, Input{Location: &loc}, units)
}

// Refresh re-resolves the current location with the stored units. It does not
// run while another resolution is in flight; ran reports whether it started.
func (s *Service) Refresh(ctx context.Context) (out Outcome[WeatherSnapshot], ran bool) {
	res, ok := s.beginIfIdle("refresh")
	if !ok {
		return Outcome[WeatherSnapshot]{}, false
	}
	return s.run(ctx, res, "", func(ctx context.Context) Outcome[Location] {
		loc, err := s.prefs.CurrentLocation(ctx)
		if err != nil {
			return FailureFrom[Location](err)
		}
		return Success(loc)
	}), true
}

// Units returns the stored unit system, defaulting to Metric.
func (s *Service) Units(ctx context.Context) UnitSystem {
	u, err := s.prefs.Units(ctx)
	if err != nil || u == "" {
		return Metric
	}
	return u
}

// Latest returns the most recently published snapshot.
func (s *Service) Latest() (WeatherSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return WeatherSnapshot{}, false
	}
	return *s.latest, true
}

func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// InFlight reports whether the latest resolution has not finished yet.
func (s *Service) InFlight() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlightLocked()
}

func (s *Service) inFlightLocked() bool {
	switch s.status.State {
	case StateIdle, StateDone, StateFailed:
		return false
	default:
		return true
	}
}

// begin issues the next sequence number and marks it as the current
// resolution in one step, so InFlight is true from here on.
func (s *Service) begin(trigger string) *resolution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginLocked(trigger)
}

// beginIfIdle is begin, unless a resolution is already in flight.
func (s *Service) beginIfIdle(trigger string) (*resolution, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlightLocked() {
		return nil, false
	}
	return s.beginLocked(trigger), true
}

func (s *Service) beginLocked(trigger string) *resolution {
	seq := s.seq.Add(1)
	s.status = Status{Seq: seq, State: StateResolvingLocation}

	res := &resolution{
		id:  uuid.NewString(),
		seq: seq,
	}
	res.logger = s.logger.With(
		zap.String("resolution_id", res.id),
		zap.Uint64("seq", seq),
		zap.String("trigger", trigger))
	res.logger.Debug("resolution state", zap.String("state", string(StateResolvingLocation)))
	return res
}

func (s *Service) run(ctx context.Context, res *resolution, units UnitSystem, locate func(context.Context) Outcome[Location]) Outcome[WeatherSnapshot] {
	if units == "" {
		units = s.Units(ctx)
	}

	locOut := locate(ctx)
	if !locOut.OK() {
		return s.finish(ctx, res, Outcome[WeatherSnapshot]{Err: locOut.Err})
	}
	loc := locOut.Value
	if s.superseded(res) {
		return s.finish(ctx, res, Failure[WeatherSnapshot](KindSuperseded, "", nil))
	}

	s.transition(res, StateFetchingWeather)
	rawOut := s.fetcher.Fetch(ctx, loc, units)
	if !rawOut.OK() {
		return s.finish(ctx, res, Outcome[WeatherSnapshot]{Err: rawOut.Err})
	}

	s.transition(res, StateNormalizing)
	snap, err := Normalize(loc, rawOut.Value)
	if err != nil {
		return s.finish(ctx, res, Failure[WeatherSnapshot](KindNetworkFailure, string(rawOut.Value.Provider), err))
	}
	return s.finish(ctx, res, Success(snap))
}

func (s *Service) locate(ctx context.Context, in Input) Outcome[Location] {
	switch {
	case in.Location != nil:
		if err := in.Location.Validate(); err != nil {
			return Failure[Location](KindNotFound, "", err)
		}
		return Success(*in.Location)
	case in.Coordinates != nil:
		return s.resolver.ResolveByCoordinates(ctx, in.Coordinates.Lat, in.Coordinates.Lon)
	case in.Query != "":
		return s.resolver.ResolveByQuery(ctx, in.Query)
	default:
		return Failure[Location](KindNotFound, "", errors.New("empty input"))
	}
}

func (s *Service) superseded(res *resolution) bool {
	return s.seq.Load() != res.seq
}

func (s *Service) transition(res *resolution, state State) {
	res.logger.Debug("resolution state", zap.String("state", string(state)))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.superseded(res) {
		return
	}
	s.status = Status{Seq: res.seq, State: state}
}

// finish publishes out if res is still the latest resolution. On success the
// resolved location is persisted as current once the lock is released.
func (s *Service) finish(ctx context.Context, res *resolution, out Outcome[WeatherSnapshot]) Outcome[WeatherSnapshot] {
	if !s.publish(res, out) {
		res.logger.Debug("discarding superseded resolution")
		return Failure[WeatherSnapshot](KindSuperseded, "", nil)
	}

	if !out.OK() {
		res.logger.Warn("resolution failed",
			zap.String("kind", string(out.Err.Kind)),
			zap.Error(out.Err))
		return out
	}

	snap := out.Value
	s.persist(ctx, res, snap.Location)
	res.logger.Info("resolution done",
		zap.String("location", snap.Location.Key()),
		zap.String("provider", string(snap.SourceProvider)),
		zap.String("air_quality", string(snap.AirQuality)))
	return out
}

// publish records the final status and snapshot of res. It returns false
// when res has been superseded.
func (s *Service) publish(res *resolution, out Outcome[WeatherSnapshot]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.superseded(res) {
		return false
	}
	if !out.OK() {
		s.status = Status{
			Seq:       res.seq,
			State:     StateFailed,
			ErrorKind: out.Err.Kind,
			Error:     out.Err.Error(),
		}
		return true
	}

	snap := out.Value
	s.latest = &snap
	s.status = Status{Seq: res.seq, State: StateDone}
	return true
}

// persist stores loc as the current location unless a newer resolution was
// issued meanwhile. persistMu keeps a stale write from landing after a newer one.
func (s *Service) persist(ctx context.Context, res *resolution, loc Location) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if s.superseded(res) {
		return
	}
	if err := s.prefs.SetCurrentLocation(ctx, loc); err != nil {
		res.logger.Error("failed to persist current location", zap.Error(err))
	}
}
