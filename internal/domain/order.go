package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order represents an accepted buy order for a priced asset.
// Orders are created only through intake validation and are immutable afterwards.
type Order struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	CoinID    string          `gorm:"index" json:"coinId"`
	UnitPrice decimal.Decimal `gorm:"type:numeric" json:"unitPrice"`
	Quantity  decimal.Decimal `gorm:"type:numeric" json:"quantity"`
	Total     decimal.Decimal `gorm:"type:numeric" json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

// Notional returns UnitPrice * Quantity, the expected total for the order.
func (o *Order) Notional() decimal.Decimal {
	return o.UnitPrice.Mul(o.Quantity)
}

// Variance returns |a - b| / b as a ratio. b must be non-zero.
func Variance(a, b decimal.Decimal) decimal.Decimal {
	return a.Sub(b).Abs().Div(b)
}
