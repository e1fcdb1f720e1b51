package nominatim

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storefront-estimator/internal/cache"
	"github.com/couchcryptid/storefront-estimator/internal/domain"
	"github.com/couchcryptid/storefront-estimator/internal/observability"
)

const cacheName = "geocoder"

// CachedGeocoder wraps a ReverseGeocoder with an in-memory LRU cache.
type CachedGeocoder struct {
	inner   domain.ReverseGeocoder
	cache   *cache.LRU[domain.Place]
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.ReverseGeocoder, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   cache.New[domain.Place](maxEntries, ttl, clock),
		metrics: metrics,
	}
}

// ReverseGeocode implements domain.ReverseGeocoder.
func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.Place, error) {
	key := fmt.Sprintf("%.4f,%.4f", lat, lon)
	if place, ok := c.cache.Get(key); ok {
		c.metrics.CacheLookups.WithLabelValues(cacheName, "hit").Inc()
		return place, nil
	}
	c.metrics.CacheLookups.WithLabelValues(cacheName, "miss").Inc()

	place, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return place, err
	}
	// Only cache named results so transient "not found" responses can be retried.
	if place.Name != "" {
		c.cache.Put(key, place)
	}
	return place, nil
}
