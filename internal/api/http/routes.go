package httpapi

import (
	"errors"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-resolver/internal/store"
	"github.com/i474232898/weather-resolver/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, prefs *store.Preferences) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather/search", func(c *fiber.Ctx) error {
		q := searchQuery{
			Query: c.Query("q"),
			Units: c.Query("units"),
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		out := service.Resolve(c.UserContext(), weather.Input{Query: q.Query}, weather.UnitSystem(q.Units))
		return respond(c, out)
	})

	v1.Post("/weather/geolocation", func(c *fiber.Ctx) error {
		var req geolocationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := req.check(); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		out := service.ResolveGeolocation(c.UserContext(), req.fix(), req.Explicit, weather.UnitSystem(req.Units))
		return respond(c, out)
	})

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		snap, ok := service.Latest()
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no weather resolved yet")
		}
		return c.JSON(snap)
	})

	v1.Get("/weather/status", func(c *fiber.Ctx) error {
		return c.JSON(service.Status())
	})

	v1.Get("/favorites", func(c *fiber.Ctx) error {
		favs, err := prefs.Favorites(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load favorites")
		}
		return c.JSON(favs)
	})

	v1.Post("/favorites", func(c *fiber.Ctx) error {
		var req favoriteRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		favs, err := prefs.AddFavorite(c.UserContext(), req.toLocation())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to store favorite")
		}
		return c.Status(fiber.StatusCreated).JSON(favs)
	})

	v1.Delete("/favorites/:name", func(c *fiber.Ctx) error {
		favs, err := prefs.RemoveFavorite(c.UserContext(), favoriteName(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to remove favorite")
		}
		return c.JSON(favs)
	})

	v1.Post("/favorites/:name/select", func(c *fiber.Ctx) error {
		return respond(c, service.SelectFavorite(c.UserContext(), favoriteName(c)))
	})

	v1.Get("/preferences", func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		loc, err := prefs.CurrentLocation(ctx)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load preferences")
		}
		theme, err := prefs.Theme(ctx)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load preferences")
		}
		favs, err := prefs.Favorites(ctx)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load preferences")
		}

		return c.JSON(fiber.Map{
			"currentCity":    loc,
			"favoriteCities": favs,
			"theme":          theme,
			"units":          service.Units(ctx),
		})
	})

	v1.Put("/preferences/units", func(c *fiber.Ctx) error {
		var req unitsRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return respond(c, service.ChangeUnits(c.UserContext(), weather.UnitSystem(req.Units)))
	})

	v1.Put("/preferences/theme", func(c *fiber.Ctx) error {
		var req themeRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := prefs.SetTheme(c.UserContext(), store.Theme(req.Theme)); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to store theme")
		}
		return c.JSON(fiber.Map{"theme": req.Theme})
	})
}

// favoriteName returns the unescaped :name route parameter.
func favoriteName(c *fiber.Ctx) string {
	name := c.Params("name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

// respond writes a successful snapshot or maps the failure kind to a status.
func respond(c *fiber.Ctx, out weather.Outcome[weather.WeatherSnapshot]) error {
	if out.OK() {
		return c.JSON(out.Value)
	}
	return c.Status(statusFor(out.Err.Kind)).JSON(fiber.Map{
		"error":   true,
		"kind":    out.Err.Kind,
		"message": out.Err.Error(),
	})
}

func statusFor(kind weather.ErrorKind) int {
	switch kind {
	case weather.KindNotFound:
		return fiber.StatusNotFound
	case weather.KindPermissionDenied:
		return fiber.StatusForbidden
	case weather.KindUnsupported:
		return fiber.StatusNotImplemented
	case weather.KindSuperseded:
		return fiber.StatusConflict
	default:
		return fiber.StatusBadGateway
	}
}

// searchQuery holds query parameters for an explicit search.
type searchQuery struct {
	Query string `validate:"required"`
	Units string `validate:"omitempty,oneof=metric imperial"`
}

// geolocationRequest is a device geolocation outcome reported by the client.
type geolocationRequest struct {
	Lat      *float64 `json:"lat" validate:"omitempty,min=-90,max=90"`
	Lon      *float64 `json:"lon" validate:"omitempty,min=-180,max=180"`
	Error    string   `json:"error" validate:"omitempty,oneof=permission_denied unsupported"`
	Explicit bool     `json:"explicit"`
	Units    string   `json:"units" validate:"omitempty,oneof=metric imperial"`
}

func (r geolocationRequest) check() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.Error == "" && (r.Lat == nil || r.Lon == nil) {
		return errors.New("lat and lon are required unless error is set")
	}
	return nil
}

func (r geolocationRequest) fix() weather.GeoFix {
	switch r.Error {
	case "permission_denied":
		return weather.GeoFix{Err: weather.ErrPermissionDenied}
	case "unsupported":
		return weather.GeoFix{Err: weather.ErrUnsupported}
	}
	return weather.GeoFix{Coordinates: &weather.Coordinates{Lat: *r.Lat, Lon: *r.Lon}}
}

type favoriteRequest struct {
	Name string  `json:"name" validate:"required"`
	Lat  float64 `json:"lat" validate:"min=-90,max=90"`
	Lon  float64 `json:"lon" validate:"min=-180,max=180"`
}

func (f favoriteRequest) toLocation() weather.Location {
	return weather.Location{Name: f.Name, Lat: f.Lat, Lon: f.Lon}
}

type unitsRequest struct {
	Units string `json:"units" validate:"required,oneof=metric imperial"`
}

type themeRequest struct {
	Theme string `json:"theme" validate:"required,oneof=dark light"`
}
