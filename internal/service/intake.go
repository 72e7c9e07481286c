package service

import (
	"context"
	"fmt"
	"log/slog"

	"coinfeed_go/internal/domain"
	"coinfeed_go/internal/infra"

	"github.com/shopspring/decimal"
)

// CacheInvalidator is the publisher-side hook the intake fires after
// accepting an order.
type CacheInvalidator interface {
	InvalidateAndPublish()
}

// Intake validates proposed buy orders against a reference price and an
// internal consistency check before persisting them.
type Intake struct {
	store          domain.OrderStore
	refs           *ReferenceCache
	publisher      CacheInvalidator
	priceTolerance decimal.Decimal
	totalTolerance decimal.Decimal
	logger         *slog.Logger
	metrics        *infra.Metrics
}

// NewIntake creates an order intake validator.
func NewIntake(store domain.OrderStore, refs *ReferenceCache, publisher CacheInvalidator,
	priceTolerance, totalTolerance decimal.Decimal, metrics *infra.Metrics) *Intake {
	return &Intake{
		store:          store,
		refs:           refs,
		publisher:      publisher,
		priceTolerance: priceTolerance,
		totalTolerance: totalTolerance,
		logger:         slog.Default().With("module", "intake"),
		metrics:        metrics,
	}
}

// Submit runs the validation sequence and persists the order when every check
// passes. Checks fail fast: the first failing one wins.
func (in *Intake) Submit(ctx context.Context, coinID string, unitPrice, quantity, total decimal.Decimal) (*domain.Order, error) {
	// 1. Presence and positivity.
	if coinID == "" {
		return nil, in.reject(fmt.Errorf("%w: coin id is required", domain.ErrMalformedInput))
	}
	if !unitPrice.IsPositive() || !quantity.IsPositive() || !total.IsPositive() {
		return nil, in.reject(fmt.Errorf("%w: price, quantity and total must be positive", domain.ErrMalformedInput))
	}

	// 2. Reference price, cached per coin or freshly fetched.
	reference, cached, err := in.refs.Resolve(ctx, coinID)
	if err != nil {
		return nil, in.reject(err)
	}

	// 3. Declared price must sit within tolerance of the reference. The
	// window absorbs propagation delay between server-side refresh and
	// client submission.
	priceVariance := domain.Variance(unitPrice, reference)
	if priceVariance.GreaterThan(in.priceTolerance) {
		return nil, in.reject(&domain.PriceMismatchError{Reference: reference, Variance: priceVariance})
	}

	// 4. Declared total must match unit price * quantity within a tighter
	// tolerance that only absorbs rounding noise.
	notional := unitPrice.Mul(quantity)
	totalVariance := domain.Variance(total, notional)
	if totalVariance.GreaterThan(in.totalTolerance) {
		return nil, in.reject(&domain.TotalMismatchError{Expected: notional, Variance: totalVariance})
	}

	// 5. Persist, then invalidate the broadcast cache and publish out of band.
	order := &domain.Order{
		CoinID:    coinID,
		UnitPrice: unitPrice,
		Quantity:  quantity,
		Total:     total,
	}
	if err := in.store.Insert(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	in.metrics.RecordOrderAccepted()
	in.logger.Info("Order accepted",
		slog.String("coin", coinID),
		slog.String("price", unitPrice.String()),
		slog.Bool("reference_cached", cached),
	)

	in.publisher.InvalidateAndPublish()
	return order, nil
}

func (in *Intake) reject(err error) error {
	in.metrics.RecordOrderRejected()
	return err
}
