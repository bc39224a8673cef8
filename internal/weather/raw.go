package weather

// WeatherAPICondition is the condition block shared by current, day and hour
// entries of the WeatherAPI.com payload.
type WeatherAPICondition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
	Code int    `json:"code"`
}

// WeatherAPIForecast mirrors WeatherAPI.com's forecast.json response.
type WeatherAPIForecast struct {
	Location struct {
		Name           string  `json:"name"`
		Lat            float64 `json:"lat"`
		Lon            float64 `json:"lon"`
		LocaltimeEpoch int64   `json:"localtime_epoch"`
	} `json:"location"`
	Current struct {
		LastUpdatedEpoch int64               `json:"last_updated_epoch"`
		TempC            float64             `json:"temp_c"`
		TempF            float64             `json:"temp_f"`
		FeelslikeC       float64             `json:"feelslike_c"`
		FeelslikeF       float64             `json:"feelslike_f"`
		Humidity         int                 `json:"humidity"`
		WindKph          float64             `json:"wind_kph"`
		WindMph          float64             `json:"wind_mph"`
		IsDay            int                 `json:"is_day"`
		UV               *float64            `json:"uv"`
		Condition        WeatherAPICondition `json:"condition"`
	} `json:"current"`
	Forecast struct {
		Forecastday []WeatherAPIForecastDay `json:"forecastday"`
	} `json:"forecast"`
}

type WeatherAPIForecastDay struct {
	Date      string `json:"date"`
	DateEpoch int64  `json:"date_epoch"`
	Day       struct {
		MaxtempC  float64             `json:"maxtemp_c"`
		MaxtempF  float64             `json:"maxtemp_f"`
		MintempC  float64             `json:"mintemp_c"`
		MintempF  float64             `json:"mintemp_f"`
		Condition WeatherAPICondition `json:"condition"`
	} `json:"day"`
	Astro struct {
		Sunrise string `json:"sunrise"`
		Sunset  string `json:"sunset"`
	} `json:"astro"`
	Hour []WeatherAPIHour `json:"hour"`
}

type WeatherAPIHour struct {
	TimeEpoch int64               `json:"time_epoch"`
	TempC     float64             `json:"temp_c"`
	TempF     float64             `json:"temp_f"`
	IsDay     int                 `json:"is_day"`
	Condition WeatherAPICondition `json:"condition"`
}

// OpenWeatherEntry is one 3-hour step of the OpenWeatherMap forecast list.
type OpenWeatherEntry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Sys struct {
		Pod string `json:"pod"`
	} `json:"sys"`
}

// OpenWeatherForecast mirrors OpenWeatherMap's /forecast response.
type OpenWeatherForecast struct {
	City struct {
		Name  string `json:"name"`
		Coord struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"coord"`
		Timezone int `json:"timezone"` // seconds east of UTC
	} `json:"city"`
	List []OpenWeatherEntry `json:"list"`
}

// RawForecast is what the Weather Fetcher hands to the Normalizer. Exactly one
// of WeatherAPI/OpenWeather is set, matching Provider.
type RawForecast struct {
	Provider    ProviderID
	Units       UnitSystem
	WeatherAPI  *WeatherAPIForecast
	OpenWeather *OpenWeatherForecast
	AirQuality  AQICategory
}
