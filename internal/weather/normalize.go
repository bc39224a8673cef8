package weather

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	hourlyPoints = 24
	dailyPoints  = 7

	// OpenWeatherMap lists 3-hour steps; every 8th entry is roughly one per day.
	// This ignores local midnight and can straddle day boundaries when the feed
	// is misaligned.
	openWeatherDayStride = 8

	msToKph = 3.6
)

var errEmptyForecast = errors.New("empty forecast")

// Normalize maps a provider payload into a WeatherSnapshot for loc. The variant
// is chosen by raw.Provider; a payload that does not match its provider tag is
// rejected rather than partially mapped.
func Normalize(loc Location, raw RawForecast) (WeatherSnapshot, error) {
	var (
		snap WeatherSnapshot
		err  error
	)

	switch raw.Provider {
	case ProviderA:
		if raw.WeatherAPI == nil || raw.OpenWeather != nil {
			return WeatherSnapshot{}, fmt.Errorf("normalize: payload does not match provider %s", raw.Provider)
		}
		snap, err = normalizeWeatherAPI(raw.WeatherAPI, raw.Units)
	case ProviderB:
		if raw.OpenWeather == nil || raw.WeatherAPI != nil {
			return WeatherSnapshot{}, fmt.Errorf("normalize: payload does not match provider %s", raw.Provider)
		}
		snap, err = normalizeOpenWeather(raw.OpenWeather, raw.Units)
	default:
		return WeatherSnapshot{}, fmt.Errorf("normalize: unknown provider %q", raw.Provider)
	}
	if err != nil {
		return WeatherSnapshot{}, err
	}

	sort.SliceStable(snap.Hourly, func(i, j int) bool {
		return snap.Hourly[i].Timestamp.Before(snap.Hourly[j].Timestamp)
	})
	sort.SliceStable(snap.Daily, func(i, j int) bool {
		return snap.Daily[i].Time.Before(snap.Daily[j].Time)
	})

	snap.Location = loc
	snap.Units = raw.Units
	snap.SourceProvider = raw.Provider
	snap.AirQuality = raw.AirQuality
	if snap.AirQuality == "" {
		snap.AirQuality = AQIUnavailable
	}
	return snap, nil
}

func normalizeWeatherAPI(p *WeatherAPIForecast, units UnitSystem) (WeatherSnapshot, error) {
	days := p.Forecast.Forecastday
	if len(days) == 0 {
		return WeatherSnapshot{}, errEmptyForecast
	}

	imperial := units == Imperial
	pick := func(c, f float64) float64 {
		if imperial {
			return f
		}
		return c
	}

	cur := p.Current
	snap := WeatherSnapshot{
		Current: Current{
			Temp:          pick(cur.TempC, cur.TempF),
			FeelsLike:     pick(cur.FeelslikeC, cur.FeelslikeF),
			HumidityPct:   cur.Humidity,
			WindSpeed:     pick(cur.WindKph, cur.WindMph),
			ConditionText: cur.Condition.Text,
			ConditionIcon: weatherAPIIcon(cur.Condition.Icon),
			IsDay:         cur.IsDay == 1,
		},
	}
	if cur.UV != nil {
		snap.Current.UV = UVIndex{Value: *cur.UV, Valid: true}
	}

	var hours []WeatherAPIHour
	for _, d := range days {
		hours = append(hours, d.Hour...)
	}
	observed := cur.LastUpdatedEpoch
	if observed == 0 {
		observed = p.Location.LocaltimeEpoch
	}
	start := 0
	if observed > 0 {
		start = -1
		for i, h := range hours {
			// keep the hour that contains the observation
			if h.TimeEpoch+3600 > observed {
				start = i
				break
			}
		}
		if start < 0 {
			start = 0
		}
	}
	hours = hours[start:]
	if len(hours) > hourlyPoints {
		hours = hours[:hourlyPoints]
	}
	for _, h := range hours {
		snap.Hourly = append(snap.Hourly, HourPoint{
			Timestamp:     time.Unix(h.TimeEpoch, 0).UTC(),
			Temp:          pick(h.TempC, h.TempF),
			ConditionIcon: weatherAPIIcon(h.Condition.Icon),
			IsDay:         h.IsDay == 1,
		})
	}

	for _, d := range days {
		dp := DayPoint{
			Date:          d.Date,
			Time:          dayTime(d),
			MaxTemp:       pick(d.Day.MaxtempC, d.Day.MaxtempF),
			MinTemp:       pick(d.Day.MintempC, d.Day.MintempF),
			ConditionIcon: weatherAPIIcon(d.Day.Condition.Icon),
		}
		if d.Astro.Sunrise != "" {
			sunrise := d.Astro.Sunrise
			dp.Sunrise = &sunrise
		}
		if d.Astro.Sunset != "" {
			sunset := d.Astro.Sunset
			dp.Sunset = &sunset
		}
		snap.Daily = append(snap.Daily, dp)
	}

	if len(snap.Hourly) == 0 {
		return WeatherSnapshot{}, errEmptyForecast
	}
	return snap, nil
}

func dayTime(d WeatherAPIForecastDay) time.Time {
	if d.DateEpoch > 0 {
		return time.Unix(d.DateEpoch, 0).UTC()
	}
	t, err := time.Parse("2006-01-02", d.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// weatherAPIIcon turns the payload's protocol-relative CDN path into a URL.
func weatherAPIIcon(icon string) IconRef {
	if strings.HasPrefix(icon, "//") {
		icon = "https:" + icon
	}
	return RemoteIcon(icon)
}

func normalizeOpenWeather(p *OpenWeatherForecast, units UnitSystem) (WeatherSnapshot, error) {
	if len(p.List) == 0 {
		return WeatherSnapshot{}, errEmptyForecast
	}

	first := p.List[0]
	wind := first.Wind.Speed
	if units != Imperial {
		wind *= msToKph
	}
	code, text := openWeatherCondition(first)

	snap := WeatherSnapshot{
		Current: Current{
			Temp:          first.Main.Temp,
			FeelsLike:     first.Main.FeelsLike,
			HumidityPct:   first.Main.Humidity,
			WindSpeed:     wind,
			ConditionText: text,
			ConditionIcon: LocalIconRef(OpenWeatherIcon(code)),
			IsDay:         openWeatherIsDay(first, code),
		},
	}

	n := len(p.List)
	if n > hourlyPoints {
		n = hourlyPoints
	}
	for _, e := range p.List[:n] {
		code, _ := openWeatherCondition(e)
		snap.Hourly = append(snap.Hourly, HourPoint{
			Timestamp:     time.Unix(e.Dt, 0).UTC(),
			Temp:          e.Main.Temp,
			ConditionIcon: LocalIconRef(OpenWeatherIcon(code)),
			IsDay:         openWeatherIsDay(e, code),
		})
	}

	offset := time.Duration(p.City.Timezone) * time.Second
	for i := 0; i < len(p.List) && len(snap.Daily) < dailyPoints; i += openWeatherDayStride {
		e := p.List[i]
		code, _ := openWeatherCondition(e)
		ts := time.Unix(e.Dt, 0).UTC()
		snap.Daily = append(snap.Daily, DayPoint{
			Date:          ts.Add(offset).Format("2006-01-02"),
			Time:          ts,
			MaxTemp:       e.Main.TempMax,
			MinTemp:       e.Main.TempMin,
			ConditionIcon: LocalIconRef(OpenWeatherIcon(code)),
		})
	}

	return snap, nil
}

func openWeatherCondition(e OpenWeatherEntry) (icon, text string) {
	if len(e.Weather) == 0 {
		return "", ""
	}
	return e.Weather[0].Icon, e.Weather[0].Description
}

func openWeatherIsDay(e OpenWeatherEntry, icon string) bool {
	switch e.Sys.Pod {
	case "d":
		return true
	case "n":
		return false
	}
	return !strings.HasSuffix(icon, "n")
}

// OpenWeatherIcon maps an OpenWeatherMap icon code onto the local vocabulary.
// Unknown codes fall back to a cloud.
func OpenWeatherIcon(code string) LocalIcon {
	switch code {
	case "01d":
		return IconSun
	case "01n":
		return IconMoon
	}
	if len(code) < 2 {
		return IconCloud
	}
	switch code[:2] {
	case "02", "03", "04", "50":
		return IconCloud
	case "09":
		return IconCloudRain
	case "10":
		return IconCloudDrizzle
	case "11":
		return IconAlertTriangle
	case "13":
		return IconCloudSnow
	default:
		return IconCloud
	}
}
