package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache[K comparable, V any](t *testing.T) (*TTLCache[K, V], *time.Time) {
	t.Helper()
	current := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	c := NewTTLCache[K, V]()
	c.now = func() time.Time { return current }
	return c, &current
}

func TestTTLCache_GetSet(t *testing.T) {
	c, _ := newTestCache[string, int](t)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", 1, time.Minute)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	// Overwrite keeps the latest value.
	c.Set("a", 2, time.Minute)
	v, ok = c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTTLCache_Expiry(t *testing.T) {
	c, now := newTestCache[string, string](t)

	c.Set("k", "v", 30*time.Second)

	*now = now.Add(29 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	*now = now.Add(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry should be dropped on access")
}

func TestTTLCache_ZeroTTLIgnored(t *testing.T) {
	c, _ := newTestCache[string, int](t)

	c.Set("k", 1, 0)
	c.Set("k2", 1, -time.Second)

	assert.Equal(t, 0, c.Len())
}

func TestTTLCache_Invalidate(t *testing.T) {
	c, _ := newTestCache[string, int](t)

	c.Set("k", 1, time.Hour)
	c.Invalidate("k")

	_, ok := c.Get("k")
	assert.False(t, ok)

	// Invalidating a missing key is a no-op.
	c.Invalidate("missing")
}

func TestTTLCache_Purge(t *testing.T) {
	c, now := newTestCache[string, int](t)

	c.Set("fresh", 1, time.Hour)
	c.Set("stale1", 2, time.Second)
	c.Set("stale2", 3, time.Second)

	*now = now.Add(time.Minute)

	assert.Equal(t, 2, c.Purge())
	assert.Equal(t, 1, c.Len())

	_, ok := c.Get("fresh")
	assert.True(t, ok)
}

func TestTTLCache_Clear(t *testing.T) {
	c, _ := newTestCache[string, int](t)

	c.Set("a", 1, time.Hour)
	c.Set("b", 2, time.Hour)
	c.Clear()

	assert.Equal(t, 0, c.Len())
}

func TestTTLCache_ConcurrentAccess(t *testing.T) {
	c := NewTTLCache[int, int]()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Set(i%10, i, time.Minute)
			c.Get(i % 10)
			c.Invalidate(i % 20)
		}()
	}
	wg.Wait()
}
