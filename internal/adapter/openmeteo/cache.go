package openmeteo

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storefront-estimator/internal/cache"
	"github.com/couchcryptid/storefront-estimator/internal/domain"
	"github.com/couchcryptid/storefront-estimator/internal/observability"
)

const cacheName = "weather"

// CachedProvider wraps a WeatherProvider with a TTL cache keyed on
// coordinates rounded to two decimals (about 1 km).
type CachedProvider struct {
	inner   domain.WeatherProvider
	cache   *cache.LRU[int]
	metrics *observability.Metrics
}

// NewCachedProvider creates a cache decorator around a weather provider.
func NewCachedProvider(inner domain.WeatherProvider, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		cache:   cache.New[int](maxEntries, ttl, clock),
		metrics: metrics,
	}
}

// CurrentCode implements domain.WeatherProvider.
func (c *CachedProvider) CurrentCode(ctx context.Context, lat, lon float64) (int, error) {
	key := fmt.Sprintf("%.2f,%.2f", lat, lon)
	if code, ok := c.cache.Get(key); ok {
		c.metrics.CacheLookups.WithLabelValues(cacheName, "hit").Inc()
		return code, nil
	}
	c.metrics.CacheLookups.WithLabelValues(cacheName, "miss").Inc()

	code, err := c.inner.CurrentCode(ctx, lat, lon)
	if err != nil {
		return code, err
	}
	c.cache.Put(key, code)
	return code, nil
}
