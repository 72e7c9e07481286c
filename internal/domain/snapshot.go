package domain

import "github.com/shopspring/decimal"

// Valuation is the per-coin view broadcast to clients in one publish cycle.
// Quantity and Total come from the first stored order for the coin.
type Valuation struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

// Snapshot maps a coin id to its current valuation.
type Snapshot map[string]Valuation

// EventMarketData is the event name snapshots are broadcast under.
const EventMarketData = "marketData"
