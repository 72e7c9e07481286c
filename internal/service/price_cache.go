package service

import (
	"time"

	"coinfeed_go/internal/domain"
)

// PriceCache is a single-slot cache of the last broadcast snapshot.
// It is not safe for concurrent use: the publisher loop owns it, and all
// mutations (including invalidation on order acceptance) are routed through
// that loop.
type PriceCache struct {
	snapshot  domain.Snapshot
	fetchedAt time.Time
	duration  time.Duration
	now       func() time.Time
}

// NewPriceCache creates a cache whose entries stay fresh for duration.
func NewPriceCache(duration time.Duration) *PriceCache {
	return &PriceCache{
		duration: duration,
		now:      time.Now,
	}
}

// Get returns the cached snapshot and whether it is still fresh.
// A snapshot set at time T is fresh for any query before T + duration.
func (c *PriceCache) Get() (domain.Snapshot, bool) {
	if c.snapshot == nil {
		return nil, false
	}
	fresh := c.now().Sub(c.fetchedAt) < c.duration
	return c.snapshot, fresh
}

// Set replaces the cached snapshot wholesale and stamps it with the current time.
func (c *PriceCache) Set(snapshot domain.Snapshot) {
	c.snapshot = snapshot
	c.fetchedAt = c.now()
}

// Invalidate empties the cache, forcing the next cycle to refetch.
// Invalidating an already-invalid cache is a no-op.
func (c *PriceCache) Invalidate() {
	c.snapshot = nil
	c.fetchedAt = time.Time{}
}
