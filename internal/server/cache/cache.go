// Package cache provides the TTL cache behind the read endpoints. Entries
// are keyed by request URI and expire on their own; writes never invalidate,
// so a cached answer can lag the store by at most the TTL.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache wraps go-cache with the small surface the server needs.
type Cache struct {
	store *gocache.Cache
}

// New creates a cache. defaultTTL is the entry lifetime; cleanupInterval is
// how often expired entries are swept from memory.
func New(defaultTTL, cleanupInterval time.Duration) *Cache {
	return &Cache{
		store: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a cached value.
func (c *Cache) Get(key string) (any, bool) {
	return c.store.Get(key)
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.store.Set(key, value, gocache.DefaultExpiration)
}
