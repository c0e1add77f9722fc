package backends

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	openWeatherGeoURL     = "https://api.openweathermap.org/geo/1.0/direct"
	openWeatherCurrentURL = "https://api.openweathermap.org/data/2.5/weather"
)

type WeatherType string

const (
	WeatherClear        WeatherType = "clear"
	WeatherClouds       WeatherType = "clouds"
	WeatherRain         WeatherType = "rain"
	WeatherSnow         WeatherType = "snow"
	WeatherThunderstorm WeatherType = "thunderstorm"
	WeatherMist         WeatherType = "mist"
	WeatherUnknown      WeatherType = "unknown"
)

// mapWeatherType folds OpenWeather's condition names into the small set the
// client renders. Drizzle counts as rain; fog and haze count as mist.
func mapWeatherType(condition string) WeatherType {
	main := strings.ToLower(condition)
	switch {
	case strings.Contains(main, "clear"):
		return WeatherClear
	case strings.Contains(main, "cloud"):
		return WeatherClouds
	case strings.Contains(main, "rain"), strings.Contains(main, "drizzle"):
		return WeatherRain
	case strings.Contains(main, "snow"):
		return WeatherSnow
	case strings.Contains(main, "thunder"):
		return WeatherThunderstorm
	case strings.Contains(main, "mist"), strings.Contains(main, "fog"), strings.Contains(main, "haze"):
		return WeatherMist
	default:
		return WeatherUnknown
	}
}

type WeatherData struct {
	City        string      `json:"city"`
	Temperature int         `json:"temperature"` // celsius, rounded
	WeatherType WeatherType `json:"weatherType"`
	DateTime    string      `json:"dateTime"`
	IsDay       bool        `json:"isDay"`
}

// WeatherItem carries the outcome for one requested city. Data and Error are
// mutually exclusive.
type WeatherItem struct {
	City      string       `json:"city"`
	Latitude  float64      `json:"latitude,omitempty"`
	Longitude float64      `json:"longitude,omitempty"`
	Data      *WeatherData `json:"data,omitempty"`
	Error     string       `json:"error,omitempty"`
}

type WeatherConfig struct {
	APIKey     string
	GeoURL     string
	CurrentURL string
	Cache      *Cache
	Logger     *slog.Logger
	Now        func() time.Time // nil means time.Now
}

type WeatherClient struct {
	apiKey     string
	geoURL     string
	currentURL string
	cache      *Cache
	httpc      *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

func NewWeather(cfg WeatherConfig) *WeatherClient {
	geoURL := cfg.GeoURL
	if geoURL == "" {
		geoURL = openWeatherGeoURL
	}
	currentURL := cfg.CurrentURL
	if currentURL == "" {
		currentURL = openWeatherCurrentURL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &WeatherClient{
		apiKey:     cfg.APIKey,
		geoURL:     geoURL,
		currentURL: currentURL,
		cache:      cfg.Cache,
		httpc:      &http.Client{Timeout: 15 * time.Second},
		logger:     cfg.Logger.With("component", "weather"),
		now:        now,
	}
}

type geoResult struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

type currentWeather struct {
	Name string `json:"name"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Main string `json:"main"`
		Icon string `json:"icon"`
	} `json:"weather"`
}

// FetchCity geocodes a city name and reads its current conditions. The item
// always comes back; failures are reported through its Error field so one bad
// city never sinks a multi-city request.
func (c *WeatherClient) FetchCity(ctx context.Context, city string) WeatherItem {
	if c.apiKey == "" {
		return WeatherItem{City: city, Error: "Missing OPENWEATHER_API_KEY"}
	}

	geo, status, err := c.geocode(ctx, city)
	if err != nil {
		return WeatherItem{City: city, Error: "Network error"}
	}
	if status != http.StatusOK {
		return WeatherItem{City: city, Error: fmt.Sprintf("Geocode error %d", status)}
	}
	if geo == nil {
		return WeatherItem{City: city, Error: "Location not found"}
	}

	data, status, err := c.current(ctx, geo.Lat, geo.Lon)
	if err != nil {
		return WeatherItem{City: city, Latitude: geo.Lat, Longitude: geo.Lon, Error: "Network error"}
	}
	if status != http.StatusOK {
		msg := fmt.Sprintf("Weather API error %d", status)
		if status == http.StatusUnauthorized {
			msg = "Invalid API key"
		}
		return WeatherItem{City: city, Latitude: geo.Lat, Longitude: geo.Lon, Error: msg}
	}

	name := data.Name
	if name == "" {
		name = city
	}
	icon := "01d"
	condition := ""
	if len(data.Weather) > 0 {
		condition = data.Weather[0].Main
		if data.Weather[0].Icon != "" {
			icon = data.Weather[0].Icon
		}
	}

	return WeatherItem{
		City:      city,
		Latitude:  geo.Lat,
		Longitude: geo.Lon,
		Data: &WeatherData{
			City:        name,
			Temperature: int(math.Round(data.Main.Temp)),
			WeatherType: mapWeatherType(condition),
			DateTime:    c.now().Format("Mon, Jan 2, 3:04 PM"),
			IsDay:       strings.Contains(icon, "d"),
		},
	}
}

func (c *WeatherClient) geocode(ctx context.Context, city string) (*geoResult, int, error) {
	key := "geo:" + strings.ToLower(strings.TrimSpace(city))
	results, err := CachedJSON(ctx, c.cache, key, 600*time.Second, func(ctx context.Context) ([]geoResult, error) {
		params := url.Values{}
		params.Set("q", city)
		params.Set("limit", "1")
		params.Set("appid", c.apiKey)

		body, status, err := c.get(ctx, c.geoURL+"?"+params.Encode())
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, statusError(status)
		}
		var parsed []geoResult
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("parsing geocode response: %w", err)
		}
		return parsed, nil
	})
	if err != nil {
		if se, ok := err.(statusError); ok {
			return nil, int(se), nil
		}
		return nil, 0, err
	}
	if len(results) == 0 {
		return nil, http.StatusOK, nil
	}
	return &results[0], http.StatusOK, nil
}

func (c *WeatherClient) current(ctx context.Context, lat, lon float64) (*currentWeather, int, error) {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%g", lat))
	params.Set("lon", fmt.Sprintf("%g", lon))
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")

	body, status, err := c.get(ctx, c.currentURL+"?"+params.Encode())
	if err != nil {
		return nil, 0, err
	}
	if status != http.StatusOK {
		return nil, status, nil
	}
	var parsed currentWeather
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, 0, fmt.Errorf("parsing weather response: %w", err)
	}
	return &parsed, status, nil
}

func (c *WeatherClient) get(ctx context.Context, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// statusError carries a non-OK HTTP status through the cache layer.
type statusError int

func (e statusError) Error() string { return fmt.Sprintf("status %d", int(e)) }
