package service

import (
	"context"
	"sync"
	"sync/atomic"

	"coinfeed_go/internal/domain"

	"github.com/shopspring/decimal"
)

type fakeStore struct {
	mu        sync.Mutex
	orders    []domain.Order
	listErr   error
	insertErr error
	listCalls int
}

func (f *fakeStore) List(ctx context.Context) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Order(nil), f.orders...), nil
}

func (f *fakeStore) Insert(ctx context.Context, order *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.orders = append(f.orders, *order)
	return nil
}

type fakeSource struct {
	mu          sync.Mutex
	prices      map[string]decimal.Decimal
	simpleErr   error
	coinErr     error
	simpleCalls int
	coinCalls   int
}

func (f *fakeSource) SimplePrice(ctx context.Context, ids []string, vsCurrency string) (map[string]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simpleCalls++
	if f.simpleErr != nil {
		return nil, f.simpleErr
	}
	result := make(map[string]decimal.Decimal)
	for _, id := range ids {
		if price, ok := f.prices[id]; ok {
			result[id] = price
		}
	}
	return result, nil
}

func (f *fakeSource) CoinPrice(ctx context.Context, id, vsCurrency string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coinCalls++
	if f.coinErr != nil {
		return decimal.Decimal{}, f.coinErr
	}
	price, ok := f.prices[id]
	if !ok {
		return decimal.Decimal{}, domain.ErrCoinNotFound
	}
	return price, nil
}

type broadcastRecord struct {
	event   string
	payload any
}

type fakeSink struct {
	mu     sync.Mutex
	count  int
	events []broadcastRecord
}

func (f *fakeSink) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func (f *fakeSink) Broadcast(event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, broadcastRecord{event: event, payload: payload})
}

func (f *fakeSink) broadcasts() []broadcastRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]broadcastRecord(nil), f.events...)
}

// blockingSource parks CoinPrice calls until release is closed, so tests can
// hold a fetch in flight.
type blockingSource struct {
	price     decimal.Decimal
	release   chan struct{}
	started   chan struct{}
	startOnce sync.Once
	calls     atomic.Int32
}

func (b *blockingSource) SimplePrice(ctx context.Context, ids []string, vsCurrency string) (map[string]decimal.Decimal, error) {
	return nil, nil
}

func (b *blockingSource) CoinPrice(ctx context.Context, id, vsCurrency string) (decimal.Decimal, error) {
	b.calls.Add(1)
	b.startOnce.Do(func() { close(b.started) })
	<-b.release
	return b.price, nil
}

// ctxCheckSource fails when the fetch context is already cancelled.
type ctxCheckSource struct {
	price decimal.Decimal
	calls atomic.Int32
}

func (c *ctxCheckSource) SimplePrice(ctx context.Context, ids []string, vsCurrency string) (map[string]decimal.Decimal, error) {
	return nil, nil
}

func (c *ctxCheckSource) CoinPrice(ctx context.Context, id, vsCurrency string) (decimal.Decimal, error) {
	c.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return decimal.Decimal{}, err
	}
	return c.price, nil
}

type fakeInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeInvalidator) InvalidateAndPublish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}

func (f *fakeInvalidator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
