package airquality

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sjvalley/go-airchat/pkg/cache"
)

const (
	// DefaultGeocodingURL is the Open-Meteo geocoding endpoint.
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"

	// DefaultAirQualityURL is the Open-Meteo air quality endpoint.
	DefaultAirQualityURL = "https://air-quality-api.open-meteo.com/v1/air-quality"

	// hourlyVariables lists the pollutant series requested per location.
	hourlyVariables = "pm10,pm2_5,nitrogen_dioxide,carbon_dioxide,ozone,sulphur_dioxide,carbon_monoxide,dust"
)

// Reading is the most recent non-missing value of each pollutant series
// plus the derived AQI.
type Reading struct {
	Timestamp string   `json:"timestamp"`
	AQI       int      `json:"aqi"`
	Category  string   `json:"aqi_category"`
	PM25      *float64 `json:"pm2_5"`
	PM10      *float64 `json:"pm10"`
	Ozone     *float64 `json:"ozone"`
	NO2       *float64 `json:"no2"`
	SO2       *float64 `json:"so2"`
	CO        *float64 `json:"co"`
	CO2       *float64 `json:"co2"`
	Dust      *float64 `json:"dust"`
}

// Hourly is the raw hourly timeseries returned by the forecast API.
// Missing values are nil.
type Hourly struct {
	Time            []string   `json:"time"`
	PM10            []*float64 `json:"pm10"`
	PM25            []*float64 `json:"pm2_5"`
	NitrogenDioxide []*float64 `json:"nitrogen_dioxide"`
	CarbonDioxide   []*float64 `json:"carbon_dioxide"`
	Ozone           []*float64 `json:"ozone"`
	SulphurDioxide  []*float64 `json:"sulphur_dioxide"`
	CarbonMonoxide  []*float64 `json:"carbon_monoxide"`
	Dust            []*float64 `json:"dust"`
}

// Report bundles the latest reading with the full timeseries.
type Report struct {
	Summary    Reading `json:"summary"`
	Timeseries Hourly  `json:"timeseries"`
}

// ClientConfig holds settings for the Open-Meteo client.
type ClientConfig struct {
	GeocodingURL  string
	AirQualityURL string

	// GeocodeTTL bounds how long geocoding results are cached.
	GeocodeTTL time.Duration
}

// Client talks to the Open-Meteo geocoding and air quality APIs.
// Geocoding results are cached since place coordinates never move.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	cache      cache.Cache
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client. The cache may be nil to
// disable geocode caching.
func NewClient(config ClientConfig, c cache.Cache, logger *slog.Logger) *Client {
	if config.GeocodingURL == "" {
		config.GeocodingURL = DefaultGeocodingURL
	}
	if config.AirQualityURL == "" {
		config.AirQualityURL = DefaultAirQualityURL
	}
	if config.GeocodeTTL <= 0 {
		config.GeocodeTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "open-meteo",
		}),
		cache:  c,
		logger: logger,
	}
}

// Geocode resolves a place name to coordinates. Returns nil when the
// geocoder has no match.
func (c *Client) Geocode(ctx context.Context, place string) (*Location, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return nil, fmt.Errorf("place name is empty")
	}

	cacheKey := "geocode:" + strings.ToLower(place)
	if c.cache != nil {
		if raw, err := c.cache.Get(cacheKey); err == nil {
			var loc Location
			if err := json.Unmarshal(raw, &loc); err == nil {
				return &loc, nil
			}
		}
	}

	params := url.Values{}
	params.Set("name", place)
	params.Set("count", "1")
	params.Set("language", "en")
	params.Set("format", "json")

	var response struct {
		Results []Location `json:"results"`
	}
	if err := c.getJSON(ctx, c.config.GeocodingURL+"?"+params.Encode(), &response); err != nil {
		return nil, fmt.Errorf("geocoding failed for %q: %w", place, err)
	}
	if len(response.Results) == 0 {
		return nil, nil
	}

	loc := response.Results[0]
	if c.cache != nil {
		if raw, err := json.Marshal(loc); err == nil {
			if err := c.cache.Set(cacheKey, raw, c.config.GeocodeTTL); err != nil {
				c.logger.Debug("geocode cache write failed", "place", place, "error", err)
			}
		}
	}
	return &loc, nil
}

// FetchAirQuality retrieves the hourly pollutant forecast for a point
// and summarizes the latest readings into an AQI.
func (c *Client) FetchAirQuality(ctx context.Context, latitude, longitude float64) (*Report, error) {
	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%g", latitude))
	params.Set("longitude", fmt.Sprintf("%g", longitude))
	params.Set("hourly", hourlyVariables)
	params.Set("timezone", "auto")

	var response struct {
		Hourly Hourly `json:"hourly"`
	}
	if err := c.getJSON(ctx, c.config.AirQualityURL+"?"+params.Encode(), &response); err != nil {
		return nil, fmt.Errorf("air quality fetch failed: %w", err)
	}
	if len(response.Hourly.Time) == 0 {
		return nil, fmt.Errorf("air quality response has no hourly data")
	}

	hourly := response.Hourly
	pm25 := latest(hourly.PM25)
	ozone := latest(hourly.Ozone)
	aqi := CalculateAQI(pm25, ozone)

	report := &Report{
		Summary: Reading{
			Timestamp: hourly.Time[len(hourly.Time)-1],
			AQI:       aqi,
			Category:  AQICategory(aqi),
			PM25:      pm25,
			PM10:      latest(hourly.PM10),
			Ozone:     ozone,
			NO2:       latest(hourly.NitrogenDioxide),
			SO2:       latest(hourly.SulphurDioxide),
			CO:        latest(hourly.CarbonMonoxide),
			CO2:       latest(hourly.CarbonDioxide),
			Dust:      latest(hourly.Dust),
		},
		Timeseries: hourly,
	}
	return report, nil
}

func (c *Client) getJSON(ctx context.Context, requestURL string, target interface{}) error {
	raw, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
		}
		return body, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), target)
}

// latest returns the most recent non-missing value in an hourly series.
func latest(series []*float64) *float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if series[i] != nil {
			return series[i]
		}
	}
	return nil
}
