// Package places implements domain.CompetitorFinder with the Google Places
// Nearby Search API.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storefront-estimator/internal/cache"
	"github.com/couchcryptid/storefront-estimator/internal/observability"
)

const (
	// DefaultBaseURL is the Google Places Nearby Search endpoint.
	DefaultBaseURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"
	// DefaultRadius is the search radius in meters.
	DefaultRadius = 1000
	// DefaultKeyword narrows results to comparable businesses.
	DefaultKeyword = "food"

	cacheName = "competitors"
)

// Client counts nearby competitors. Counts are cached per coordinate
// rounded to three decimals.
type Client struct {
	apiKey     string
	radius     int
	keyword    string
	httpClient *http.Client
	baseURL    string
	cache      *cache.LRU[int]
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Places client. radius ≤ 0 uses DefaultRadius and an
// empty keyword uses DefaultKeyword.
func NewClient(apiKey string, radius int, keyword string, timeout time.Duration, cacheSize int, cacheTTL time.Duration, metrics *observability.Metrics, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("places API key is required")
	}
	if radius <= 0 {
		radius = DefaultRadius
	}
	if keyword == "" {
		keyword = DefaultKeyword
	}
	return &Client{
		apiKey:  apiKey,
		radius:  radius,
		keyword: keyword,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: DefaultBaseURL,
		cache:   cache.New[int](cacheSize, cacheTTL, clockwork.NewRealClock()),
		metrics: metrics,
		logger:  logger,
	}, nil
}

// CountNearby implements domain.CompetitorFinder.
func (c *Client) CountNearby(ctx context.Context, lat, lon float64) (int, error) {
	key := fmt.Sprintf("%.3f,%.3f", lat, lon)
	if n, ok := c.cache.Get(key); ok {
		c.metrics.CacheLookups.WithLabelValues(cacheName, "hit").Inc()
		return n, nil
	}
	c.metrics.CacheLookups.WithLabelValues(cacheName, "miss").Inc()

	n, err := c.search(ctx, lat, lon)
	if err != nil {
		return 0, err
	}
	c.cache.Put(key, n)
	return n, nil
}

func (c *Client) search(ctx context.Context, lat, lon float64) (int, error) {
	params := url.Values{
		"location": {fmt.Sprintf("%f,%f", lat, lon)},
		"radius":   {strconv.Itoa(c.radius)},
		"keyword":  {c.keyword},
		"key":      {c.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.CollaboratorDuration.WithLabelValues(observability.CollaboratorCompetitors).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorCompetitors, observability.OutcomeError).Inc()
		return 0, fmt.Errorf("places request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorCompetitors, observability.OutcomeError).Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("places API error: status %d: %s", resp.StatusCode, body)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		c.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorCompetitors, observability.OutcomeError).Inc()
		return 0, fmt.Errorf("decode response: %w", err)
	}

	switch r.Status {
	case "OK":
		c.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorCompetitors, observability.OutcomeSuccess).Inc()
	case "ZERO_RESULTS":
		c.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorCompetitors, observability.OutcomeEmpty).Inc()
	default:
		c.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorCompetitors, observability.OutcomeError).Inc()
		return 0, fmt.Errorf("places API error: %s: %s", r.Status, r.ErrorMessage)
	}

	c.logger.Debug("nearby competitors counted",
		"lat", lat,
		"lon", lon,
		"radius_m", c.radius,
		"keyword", c.keyword,
		"count", len(r.Results),
	)
	return len(r.Results), nil
}

// Places API response types.

type response struct {
	Status       string   `json:"status"`
	ErrorMessage string   `json:"error_message"`
	Results      []result `json:"results"`
}

type result struct {
	PlaceID string  `json:"place_id"`
	Name    string  `json:"name"`
	Rating  float64 `json:"rating"`
}
