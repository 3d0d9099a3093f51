// ABOUTME: Bounded render cache in front of a diagram rendering function, keyed by the source's sha256.
// ABOUTME: Entries expire after a TTL and concurrent renders of the same source are coalesced.
package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxEntries bounds the cache when no size is given. Each highlight
// combination of the pipeline is a distinct source, so a few dozen suffice.
const DefaultMaxEntries = 128

// RenderFunc is the signature for a diagram rendering function that the cache wraps.
type RenderFunc func(ctx context.Context, source string) ([]byte, error)

// CacheOption configures a Cache.
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	maxEntries int
}

// WithMaxEntries bounds the number of cached renders. Non-positive values
// keep the default.
func WithMaxEntries(n int) CacheOption {
	return func(o *cacheOptions) {
		if n > 0 {
			o.maxEntries = n
		}
	}
}

// Cache satisfies diagram.Renderer. Every browser session renders the same
// initial pipeline, so a shared cache turns those into one CLI run.
type Cache struct {
	renderFn RenderFunc
	entries  *expirable.LRU[string, []byte]
	inflight singleflight.Group
}

// NewCache wraps renderFn. Entries older than ttl are rendered again.
func NewCache(renderFn RenderFunc, ttl time.Duration, opts ...CacheOption) *Cache {
	o := cacheOptions{maxEntries: DefaultMaxEntries}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache{
		renderFn: renderFn,
		entries:  expirable.NewLRU[string, []byte](o.maxEntries, nil, ttl),
	}
}

// Render returns the cached output for source or renders it. Concurrent
// callers for the same source share one render, which runs under the first
// caller's context. Errors are never cached.
func (c *Cache) Render(ctx context.Context, source string) ([]byte, error) {
	key := cacheKey(source)
	if data, ok := c.entries.Get(key); ok {
		return data, nil
	}

	v, err, shared := c.inflight.Do(key, func() (any, error) {
		// A flight that finished after the lookup above has filled the entry.
		if data, ok := c.entries.Get(key); ok {
			return data, nil
		}
		data, err := c.renderFn(ctx, source)
		if err != nil {
			return nil, err
		}
		c.entries.Add(key, data)
		return data, nil
	})
	if shared {
		log.Printf("component=render.cache action=coalesced key=%s", key[:12])
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Len returns the number of cached renders.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Clear drops every cached render.
func (c *Cache) Clear() {
	c.entries.Purge()
}

func cacheKey(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}
