// Package openmeteo implements domain.WeatherProvider with the Open-Meteo
// forecast API, which needs no API key.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/storefront-estimator/internal/observability"
)

// DefaultBaseURL is the public Open-Meteo forecast endpoint.
const DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// Client fetches current WMO weather codes.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// CurrentCode returns the current WMO weather code at a coordinate.
func (c *Client) CurrentCode(ctx context.Context, lat, lon float64) (int, error) {
	params := url.Values{
		"latitude":        {strconv.FormatFloat(lat, 'f', 4, 64)},
		"longitude":       {strconv.FormatFloat(lon, 'f', 4, 64)},
		"current_weather": {"true"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.CollaboratorDuration.WithLabelValues(observability.CollaboratorWeather).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorWeather, observability.OutcomeError).Inc()
		return 0, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorWeather, observability.OutcomeError).Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var forecast response
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		c.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorWeather, observability.OutcomeError).Inc()
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if forecast.CurrentWeather == nil {
		c.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorWeather, observability.OutcomeEmpty).Inc()
		return 0, fmt.Errorf("open-meteo response has no current_weather")
	}

	c.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorWeather, observability.OutcomeSuccess).Inc()
	c.logger.Debug("current weather fetched", "lat", lat, "lon", lon, "weathercode", forecast.CurrentWeather.WeatherCode)
	return forecast.CurrentWeather.WeatherCode, nil
}

// Open-Meteo API response types.

type response struct {
	CurrentWeather *currentWeather `json:"current_weather"`
}

type currentWeather struct {
	Temperature float64 `json:"temperature"`
	WeatherCode int     `json:"weathercode"`
	Time        string  `json:"time"`
}
