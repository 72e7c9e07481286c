package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coinfeed_go/internal/domain"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

type refEntry struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// ReferenceCache caches the last known reference price per coin.
// Its freshness window is deliberately longer than the broadcast cache so a
// client submitting shortly after a page load still validates against the
// price it saw. Concurrent fetches for the same coin are coalesced.
type ReferenceCache struct {
	source     domain.PriceSource
	vsCurrency string
	ttl        time.Duration

	mu      sync.RWMutex
	entries map[string]refEntry
	group   singleflight.Group
	now     func() time.Time
}

// NewReferenceCache creates a per-coin reference price cache backed by source.
func NewReferenceCache(source domain.PriceSource, vsCurrency string, ttl time.Duration) *ReferenceCache {
	return &ReferenceCache{
		source:     source,
		vsCurrency: vsCurrency,
		ttl:        ttl,
		entries:    make(map[string]refEntry),
		now:        time.Now,
	}
}

// Resolve returns the reference price for coinID, reporting whether it was
// served from cache. On a miss the price is fetched from the source; callers
// arriving while a fetch for the same coin is in flight share its result.
func (rc *ReferenceCache) Resolve(ctx context.Context, coinID string) (decimal.Decimal, bool, error) {
	if price, ok := rc.lookup(coinID); ok {
		return price, true, nil
	}

	// The fetch result is shared by every coalesced caller, so it must not
	// die with the first caller's request. The source carries its own timeout.
	fetchCtx := context.WithoutCancel(ctx)

	v, err, _ := rc.group.Do(coinID, func() (any, error) {
		// Recheck under the flight: a concurrent caller may have
		// refreshed the entry while this one waited.
		if price, ok := rc.lookup(coinID); ok {
			return price, nil
		}

		price, err := rc.source.CoinPrice(fetchCtx, coinID, rc.vsCurrency)
		if err != nil {
			return decimal.Decimal{}, err
		}

		// Inactive or delisted coins report a zero price; there is no
		// reference to validate against, and variance math divides by it.
		if !price.IsPositive() {
			return decimal.Decimal{}, fmt.Errorf("%w: no positive %s price for %s",
				domain.ErrReferenceUnavailable, rc.vsCurrency, coinID)
		}

		rc.mu.Lock()
		rc.entries[coinID] = refEntry{price: price, fetchedAt: rc.now()}
		rc.mu.Unlock()
		return price, nil
	})
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	return v.(decimal.Decimal), false, nil
}

func (rc *ReferenceCache) lookup(coinID string) (decimal.Decimal, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	entry, ok := rc.entries[coinID]
	if !ok || rc.now().Sub(entry.fetchedAt) >= rc.ttl {
		return decimal.Decimal{}, false
	}
	return entry.price, true
}
