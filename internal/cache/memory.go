package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process Cache for single-instance deployments.
type MemoryCache struct {
	mu     sync.RWMutex
	window time.Duration
	items  map[string]Entry
	now    func() time.Time
}

func NewMemoryCache(window time.Duration) *MemoryCache {
	return &MemoryCache{
		window: window,
		items:  make(map[string]Entry),
		now:    time.Now,
	}
}

// WithClock replaces the time source. Used by tests to step past the window.
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || !c.fresh(e) {
		return Entry{}, false
	}
	return e, true
}

func (c *MemoryCache) Set(_ context.Context, key string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry
}

// Prune drops expired slots and returns how many were removed.
func (c *MemoryCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.items {
		if !c.fresh(e) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *MemoryCache) fresh(e Entry) bool {
	return c.now().Sub(e.FetchedAt) < c.window
}
