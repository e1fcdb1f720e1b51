// Package nominatim implements domain.ReverseGeocoder with the OpenStreetMap
// Nominatim reverse-geocoding API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/storefront-estimator/internal/domain"
	"github.com/couchcryptid/storefront-estimator/internal/observability"
)

const (
	// DefaultBaseURL is the public Nominatim reverse endpoint.
	DefaultBaseURL = "https://nominatim.openstreetmap.org/reverse"
	// DefaultUserAgent identifies the service as the usage policy requires.
	DefaultUserAgent = "storefront-estimator/1.0"
)

// Client reverse-geocodes coordinates. Requests are throttled to the public
// instance's limit of one per second.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a self-hosted instance.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRateLimit sets the sustained request rate.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewClient creates a Nominatim client.
func NewClient(timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
		metrics:   metrics,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReverseGeocode implements domain.ReverseGeocoder. A location Nominatim
// cannot resolve returns an empty Place and no error.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.Place, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Place{}, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{
		"format":         {"json"},
		"lat":            {strconv.FormatFloat(lat, 'f', 6, 64)},
		"lon":            {strconv.FormatFloat(lon, 'f', 6, 64)},
		"zoom":           {"16"},
		"addressdetails": {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Place{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.CollaboratorDuration.WithLabelValues(observability.CollaboratorGeocoder).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorGeocoder, observability.OutcomeError).Inc()
		return domain.Place{}, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorGeocoder, observability.OutcomeError).Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Place{}, fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		c.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorGeocoder, observability.OutcomeError).Inc()
		return domain.Place{}, fmt.Errorf("decode response: %w", err)
	}

	place := r.place()
	outcome := observability.OutcomeSuccess
	if place.Name == "" {
		outcome = observability.OutcomeEmpty
	}
	c.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorGeocoder, outcome).Inc()
	c.logger.Debug("reverse geocoded", "lat", lat, "lon", lon, "place", place.Name)
	return place, nil
}

// Nominatim API response types.

type response struct {
	DisplayName string  `json:"display_name"`
	Address     address `json:"address"`
	Error       string  `json:"error"`
}

type address struct {
	Road    string `json:"road"`
	Suburb  string `json:"suburb"`
	Village string `json:"village"`
	Town    string `json:"town"`
	City    string `json:"city"`
	County  string `json:"county"`
	State   string `json:"state"`
}

// place builds a short name from road, locality, city, and state, falling
// back to the first segment of the display name.
func (r response) place() domain.Place {
	if r.Error != "" {
		return domain.Place{}
	}

	a := r.Address
	parts := make([]string, 0, 4)
	parts = appendFirst(parts, a.Road)
	parts = appendFirst(parts, a.Suburb, a.Village, a.Town)
	parts = appendFirst(parts, a.City, a.County)
	parts = appendFirst(parts, a.State)

	name := strings.Join(parts, ", ")
	if name == "" && r.DisplayName != "" {
		name = strings.TrimSpace(strings.SplitN(r.DisplayName, ",", 2)[0])
	}
	return domain.Place{Name: name, DisplayName: r.DisplayName}
}

func appendFirst(parts []string, candidates ...string) []string {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return append(parts, c)
		}
	}
	return parts
}
