// Package cache provides a generic, thread-safe TTL cache.
//
// The engine uses it as a read-through cache in front of preference and
// statistics lookups: short TTLs keep hot reads cheap while bounding
// staleness, and explicit Invalidate calls drop entries when the underlying
// data changes.
//
//	c := cache.NewTTLCache[string, int]()
//	c.Set("user-1", 42, 30*time.Second)
//	if v, ok := c.Get("user-1"); ok {
//	    // use v
//	}
package cache
