package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheSlidingExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewTTLCache[int]().WithClock(func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	c.Set("forever", 2, 0)

	now = now.Add(50 * time.Second)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	// the read above extended the deadline
	now = now.Add(50 * time.Second)
	_, ok = c.Get("a")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	assert.ElementsMatch(t, []int{1}, c.Sweep())
	_, ok = c.Get("a")
	assert.False(t, ok)

	assert.Equal(t, []int{2}, c.Values())
	assert.Equal(t, 1, c.Len())
}

func TestTTLCacheDelete(t *testing.T) {
	c := NewTTLCache[string]()
	c.Set("k", "v", time.Hour)
	v, ok := c.Delete("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	_, ok = c.Delete("k")
	assert.False(t, ok)
}
