package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrMalformedInput is returned when a submitted order is missing fields
	// or carries non-positive amounts. Client error, not retriable.
	ErrMalformedInput = errors.New("malformed input")

	// ErrReferenceUnavailable is returned when the external price source
	// cannot be reached or times out. The client may retry.
	ErrReferenceUnavailable = errors.New("reference price unavailable")

	// ErrCoinNotFound is returned when the price source does not know the
	// requested coin id. Distinct from an upstream failure.
	ErrCoinNotFound = errors.New("coin not found")
)

// PriceMismatchError rejects an order whose declared unit price drifted too
// far from the reference price. It carries corrective data so the caller can
// resubmit with current terms.
type PriceMismatchError struct {
	Reference decimal.Decimal
	Variance  decimal.Decimal // ratio, e.g. 0.03 for 3%
}

func (e *PriceMismatchError) Error() string {
	return fmt.Sprintf("price mismatch: reference=%s variance=%s%%", e.Reference, e.VariancePercent())
}

// VariancePercent formats the variance as a percentage with two decimals.
func (e *PriceMismatchError) VariancePercent() string {
	return e.Variance.Mul(decimal.NewFromInt(100)).StringFixed(2)
}

// TotalMismatchError rejects an order whose declared total does not match
// unit price * quantity within tolerance.
type TotalMismatchError struct {
	Expected decimal.Decimal
	Variance decimal.Decimal
}

func (e *TotalMismatchError) Error() string {
	return fmt.Sprintf("total mismatch: expected=%s variance=%s%%", e.Expected, e.VariancePercent())
}

// VariancePercent formats the variance as a percentage with two decimals.
func (e *TotalMismatchError) VariancePercent() string {
	return e.Variance.Mul(decimal.NewFromInt(100)).StringFixed(2)
}
