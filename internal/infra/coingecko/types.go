package coingecko

import "github.com/shopspring/decimal"

// simplePriceResponse maps coin id -> currency -> price,
// e.g. {"bitcoin": {"inr": 5000000}}.
type simplePriceResponse map[string]map[string]decimal.Decimal

// coinResponse is the subset of the coin detail payload we consume.
type coinResponse struct {
	ID         string `json:"id"`
	MarketData struct {
		CurrentPrice map[string]decimal.Decimal `json:"current_price"`
	} `json:"market_data"`
	Image struct {
		Thumb string `json:"thumb"`
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"image"`
}

// CoinDetail is the resolved view of a single coin.
type CoinDetail struct {
	ID      string
	Price   decimal.Decimal
	IconURL string
}
