package geocoder

import (
	"context"
	"strings"
	"time"

	"github.com/airbusgeo/geodata-ingester/service/geometry"
	gocache "github.com/patrickmn/go-cache"
)

// Result of a forward geocoding
type Result struct {
	Formatted string
	BBox      geometry.BBox
}

// Geocoder resolves a place name into a bounding box
type Geocoder interface {
	// BoundingBox returns the bounding box of the best match for the place
	// May return service.InputInvalidError, service.NotFoundError, service.UpstreamError or service.MalformedResponseError
	BoundingBox(ctx context.Context, place string) (Result, error)
}

// Cached wraps a Geocoder with a TTL cache. Only successful lookups are cached
type Cached struct {
	inner Geocoder
	cache *gocache.Cache
	// OnHit is called on each cache hit (optional)
	OnHit func()
}

// NewCached creates a cache decorator around a geocoder.
// ttl <= 0 disables the cache: every lookup is forwarded.
func NewCached(inner Geocoder, ttl time.Duration) *Cached {
	c := &Cached{inner: inner}
	if ttl > 0 {
		c.cache = gocache.New(ttl, 2*ttl)
	}
	return c
}

// BoundingBox implements Geocoder
func (c *Cached) BoundingBox(ctx context.Context, place string) (Result, error) {
	if c.cache == nil {
		return c.inner.BoundingBox(ctx, place)
	}
	key := strings.ToLower(strings.TrimSpace(place))
	if v, found := c.cache.Get(key); found {
		if c.OnHit != nil {
			c.OnHit()
		}
		return v.(Result), nil
	}
	result, err := c.inner.BoundingBox(ctx, place)
	if err != nil {
		return result, err
	}
	c.cache.SetDefault(key, result)
	return result, nil
}
