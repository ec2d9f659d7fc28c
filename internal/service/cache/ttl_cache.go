package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	v   V
	exp time.Time
	ttl time.Duration
}

// TTLCache is an in-process map with per-entry sliding expiry: every Get
// pushes the deadline out by the entry's ttl. A zero ttl never expires.
type TTLCache[V any] struct {
	mu  sync.RWMutex
	m   map[string]entry[V]
	now func() time.Time
}

func NewTTLCache[V any]() *TTLCache[V] {
	return &TTLCache[V]{m: make(map[string]entry[V]), now: time.Now}
}

// WithClock replaces the time source, for tests.
func (c *TTLCache[V]) WithClock(now func() time.Time) *TTLCache[V] {
	c.now = now
	return c
}

func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		var zero V
		return zero, false
	}
	now := c.now()
	if !e.exp.IsZero() && now.After(e.exp) {
		delete(c.m, key)
		var zero V
		return zero, false
	}
	if e.ttl > 0 {
		e.exp = now.Add(e.ttl)
		c.m[key] = e
	}
	return e.v, true
}

func (c *TTLCache[V]) Set(key string, v V, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.m[key] = entry[V]{v: v, exp: exp, ttl: ttl}
	c.mu.Unlock()
}

func (c *TTLCache[V]) Delete(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	delete(c.m, key)
	return e.v, ok
}

func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Values returns the live entries without touching their expiry.
func (c *TTLCache[V]) Values() []V {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]V, 0, len(c.m))
	for _, e := range c.m {
		if e.exp.IsZero() || !now.After(e.exp) {
			out = append(out, e.v)
		}
	}
	return out
}

// Sweep drops expired entries and returns them.
func (c *TTLCache[V]) Sweep() []V {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	var evicted []V
	for k, e := range c.m {
		if !e.exp.IsZero() && now.After(e.exp) {
			evicted = append(evicted, e.v)
			delete(c.m, k)
		}
	}
	return evicted
}
