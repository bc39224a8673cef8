package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/i474232898/weather-resolver/internal/weather"
)

// Keys used in the backing KV.
const (
	KeyCurrentCity = "currentCity"
	KeyFavorites   = "favoriteCities"
	KeyTheme       = "theme"
	KeyUnits       = "units"
)

// Theme is the dashboard colour scheme.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ParseTheme accepts "dark" or "light".
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeDark, ThemeLight:
		return Theme(s), nil
	default:
		return "", fmt.Errorf("unknown theme %q", s)
	}
}

// Preferences is the typed view over a KV. Values are stored as JSON; absent
// keys yield defaults.
type Preferences struct {
	kv              KV
	defaultLocation weather.Location

	// serialises read-modify-write of the favorites list
	mu sync.Mutex
}

// NewPreferences wraps kv. defaultLocation is returned as the current city
// until one is stored.
func NewPreferences(kv KV, defaultLocation weather.Location) *Preferences {
	return &Preferences{kv: kv, defaultLocation: defaultLocation}
}

func (p *Preferences) CurrentLocation(ctx context.Context) (weather.Location, error) {
	loc := p.defaultLocation
	if err := p.get(ctx, KeyCurrentCity, &loc); err != nil {
		return weather.Location{}, err
	}
	return loc, nil
}

func (p *Preferences) SetCurrentLocation(ctx context.Context, loc weather.Location) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	return p.set(ctx, KeyCurrentCity, loc)
}

func (p *Preferences) Units(ctx context.Context) (weather.UnitSystem, error) {
	units := weather.Metric
	if err := p.get(ctx, KeyUnits, &units); err != nil {
		return "", err
	}
	return units, nil
}

func (p *Preferences) SetUnits(ctx context.Context, units weather.UnitSystem) error {
	if _, err := weather.ParseUnitSystem(string(units)); err != nil {
		return err
	}
	return p.set(ctx, KeyUnits, units)
}

func (p *Preferences) Theme(ctx context.Context) (Theme, error) {
	theme := ThemeDark
	if err := p.get(ctx, KeyTheme, &theme); err != nil {
		return "", err
	}
	return theme, nil
}

func (p *Preferences) SetTheme(ctx context.Context, theme Theme) error {
	if _, err := ParseTheme(string(theme)); err != nil {
		return err
	}
	return p.set(ctx, KeyTheme, theme)
}

func (p *Preferences) Favorites(ctx context.Context) (weather.Favorites, error) {
	favs := weather.Favorites{}
	if err := p.get(ctx, KeyFavorites, &favs); err != nil {
		return nil, err
	}
	if favs == nil {
		favs = weather.Favorites{}
	}
	return favs, nil
}

// AddFavorite stores loc unless a favorite with the same name exists.
func (p *Preferences) AddFavorite(ctx context.Context, loc weather.Location) (weather.Favorites, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	return p.updateFavorites(ctx, func(f weather.Favorites) weather.Favorites {
		return f.Add(loc)
	})
}

// RemoveFavorite drops the named favorite; unknown names are a no-op.
func (p *Preferences) RemoveFavorite(ctx context.Context, name string) (weather.Favorites, error) {
	return p.updateFavorites(ctx, func(f weather.Favorites) weather.Favorites {
		return f.Remove(name)
	})
}

func (p *Preferences) updateFavorites(ctx context.Context, fn func(weather.Favorites) weather.Favorites) (weather.Favorites, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	favs, err := p.Favorites(ctx)
	if err != nil {
		return nil, err
	}
	favs = fn(favs)
	if err := p.set(ctx, KeyFavorites, favs); err != nil {
		return nil, err
	}
	return favs, nil
}

// get decodes the value at key into dst, leaving dst untouched when the key
// is absent.
func (p *Preferences) get(ctx context.Context, key string, dst any) error {
	raw, err := p.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode preference %s: %w", key, err)
	}
	return nil
}

func (p *Preferences) set(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode preference %s: %w", key, err)
	}
	return p.kv.Set(ctx, key, string(b))
}
