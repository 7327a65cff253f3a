package cache

import (
	"sync"
	"time"
)

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a thread-safe cache whose entries expire after a per-entry
// time-to-live. Expired entries are dropped lazily on access and in bulk by
// Purge, so memory usage tracks the working set rather than total writes.
type TTLCache[K comparable, V any] struct {
	items map[K]ttlEntry[V]
	mu    sync.Mutex

	// now is swappable for deterministic expiry tests.
	now func() time.Time
}

// NewTTLCache creates an empty TTL cache.
func NewTTLCache[K comparable, V any]() *TTLCache[K, V] {
	return &TTLCache[K, V]{
		items: make(map[K]ttlEntry[V]),
		now:   time.Now,
	}
}

// Get retrieves a value from the cache.
// Returns the value and true on a hit, zero value and false on a miss or
// when the entry has expired. Expired entries are removed on access.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.items, key)
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Set stores a value with the given time-to-live.
// A non-positive ttl stores nothing, making accidental zero-TTL writes inert
// instead of permanently cached.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = ttlEntry[V]{value: value, expiresAt: c.now().Add(ttl)}
}

// Invalidate removes an entry regardless of its remaining TTL.
func (c *TTLCache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Purge removes every expired entry and returns the number removed.
func (c *TTLCache[K, V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.items {
		if now.After(entry.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries currently stored, including entries that
// have expired but not yet been dropped.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes all entries.
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.items)
}
