package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderStore defines the persistence boundary for orders.
type OrderStore interface {
	// List returns all orders projected to coin id, unit price, quantity
	// and total. No storage ids are exposed.
	List(ctx context.Context) ([]Order, error)
	Insert(ctx context.Context, order *Order) error
}

// PriceSource defines the external market price boundary.
type PriceSource interface {
	// SimplePrice resolves current prices for a set of coin ids in the
	// given currency. Coins unknown upstream are absent from the result.
	SimplePrice(ctx context.Context, ids []string, vsCurrency string) (map[string]decimal.Decimal, error)
	// CoinPrice resolves the current price of a single coin. Returns
	// ErrCoinNotFound when the id is unknown upstream.
	CoinPrice(ctx context.Context, id, vsCurrency string) (decimal.Decimal, error)
}

// Broadcaster is the fan-out surface the publisher delivers snapshots to.
type Broadcaster interface {
	// Count reports raw live connections, without identity dedup.
	Count() int
	// Broadcast delivers a named event to every registered connection.
	// Delivery is fire-and-forget per connection.
	Broadcast(event string, payload any)
}
