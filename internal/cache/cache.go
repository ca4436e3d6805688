// Package cache provides the SKU-keyed trained-model cache.
package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ModelCache is a thread-safe, size-bounded cache for trained forecast
// models, keyed by SKU identifier.
//
// It is a performance optimization only, never a correctness dependency:
// there is no built-in expiry, and the caller must Invalidate a key whenever
// the underlying observation set changes. A stale entry silently producing
// outdated forecasts is a correctness bug, so invalidation is explicit
// rather than time-based.
type ModelCache[V any] struct {
	cache  *lru.Cache[string, V]
	mu     sync.RWMutex
	hits   uint64
	misses uint64
}

// NewModelCache creates a cache holding at most size trained models.
func NewModelCache[V any](size int) (*ModelCache[V], error) {
	c, err := lru.New[string, V](size)
	if err != nil {
		return nil, err
	}
	return &ModelCache[V]{cache: c}, nil
}

// Get retrieves the trained model for a SKU.
func (c *ModelCache[V]) Get(sku string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.cache.Get(sku)
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return v, true
}

// Set stores a trained model for a SKU, evicting the least recently used
// entry when full.
func (c *ModelCache[V]) Set(sku string, model V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Add(sku, model)
}

// Invalidate removes a SKU's entry. Callers must invoke this whenever the
// SKU's observation set changes.
func (c *ModelCache[V]) Invalidate(sku string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Remove(sku)
}

// InvalidateAll drops every entry.
func (c *ModelCache[V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Purge()
}

// Len returns the number of cached models.
func (c *ModelCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.cache.Len()
}

// Stats holds hit/miss counters for observability.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   int    `json:"size"`
}

// Stats returns current cache statistics.
func (c *ModelCache[V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{Hits: c.hits, Misses: c.misses, Size: c.cache.Len()}
}
