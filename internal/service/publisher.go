package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"coinfeed_go/internal/domain"
	"coinfeed_go/internal/infra"
)

// Publisher drives the market-data broadcast cycle: on a fixed cadence it
// resolves live prices for every coin referenced by stored orders and fans
// the resulting snapshot out to all connected clients.
//
// All cycles run on a single goroutine, so a timer fire while a cycle is in
// flight simply queues behind it and the price cache never sees concurrent
// mutation. Order acceptance invalidates the cache and triggers an
// out-of-band cycle through the same goroutine.
type Publisher struct {
	store      domain.OrderStore
	source     domain.PriceSource
	sink       domain.Broadcaster
	cache      *PriceCache
	vsCurrency string
	interval   time.Duration

	kick    chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  *slog.Logger
	metrics *infra.Metrics
}

// NewPublisher creates a publisher broadcasting every interval.
func NewPublisher(store domain.OrderStore, source domain.PriceSource, sink domain.Broadcaster,
	cache *PriceCache, vsCurrency string, interval time.Duration, metrics *infra.Metrics) *Publisher {
	return &Publisher{
		store:      store,
		source:     source,
		sink:       sink,
		cache:      cache,
		vsCurrency: vsCurrency,
		interval:   interval,
		kick:       make(chan struct{}, 1),
		logger:     slog.Default().With("module", "publisher"),
		metrics:    metrics,
	}
}

// Start launches the publish loop.
func (p *Publisher) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Publish loop panic recovered", slog.Any("panic", r))
			}
		}()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Info("Publish loop stopped")
				return
			case <-ticker.C:
				p.cycle(ctx)
			case <-p.kick:
				// Order accepted: drop the cached snapshot and
				// publish out of band.
				p.cache.Invalidate()
				p.cycle(ctx)
			}
		}
	}()
}

// Stop halts the publish loop and waits for an in-flight cycle to finish.
func (p *Publisher) Stop() {
	if p.cancel != nil {
		p.cancel()
		p.wg.Wait()
	}
}

// InvalidateAndPublish signals the loop to invalidate the price cache and run
// an immediate cycle. Signals arriving while one is already pending coalesce.
func (p *Publisher) InvalidateAndPublish() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// cycle runs one Idle -> Fetching -> Publishing transition.
func (p *Publisher) cycle(ctx context.Context) {
	// Nobody listening: no fetch, no broadcast.
	if p.sink.Count() == 0 {
		p.metrics.RecordPublishSkip()
		return
	}

	if snapshot, fresh := p.cache.Get(); fresh {
		p.sink.Broadcast(domain.EventMarketData, snapshot)
		p.metrics.RecordBroadcast()
		return
	}

	snapshot, err := p.buildSnapshot(ctx)
	if err != nil {
		// Abort the cycle: the stale cache keeps its previous values
		// and nothing is broadcast rather than misleading clients.
		p.logger.Warn("Publish cycle aborted", slog.Any("error", err))
		p.metrics.RecordFetchError()
		return
	}
	if len(snapshot) == 0 {
		return
	}

	p.cache.Set(snapshot)
	p.sink.Broadcast(domain.EventMarketData, snapshot)
	p.metrics.RecordBroadcast()
}

// buildSnapshot reads all orders, resolves prices for the distinct coins they
// reference and combines them into the broadcast view. Each coin's quantity
// and total come from the first stored order for that coin; multiple orders
// for the same coin are not aggregated.
func (p *Publisher) buildSnapshot(ctx context.Context) (domain.Snapshot, error) {
	orders, err := p.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return domain.Snapshot{}, nil
	}

	firstOrder := make(map[string]*domain.Order, len(orders))
	ids := make([]string, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		if _, seen := firstOrder[o.CoinID]; !seen {
			firstOrder[o.CoinID] = o
			ids = append(ids, o.CoinID)
		}
	}

	prices, err := p.source.SimplePrice(ctx, ids, p.vsCurrency)
	if err != nil {
		return nil, err
	}

	snapshot := make(domain.Snapshot, len(ids))
	for _, id := range ids {
		price, ok := prices[id]
		if !ok {
			continue // coin unknown upstream, skip silently
		}
		order := firstOrder[id]
		snapshot[id] = domain.Valuation{
			Price:    price,
			Quantity: order.Quantity,
			Total:    order.Total,
		}
	}
	return snapshot, nil
}
