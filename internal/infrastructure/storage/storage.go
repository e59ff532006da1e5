package storage

import (
	"context"
	"sync"

	"botty/internal/application/port"
	"botty/internal/domain/model"
)

// InMemoryRepo is a Repository kept entirely in memory, used for dry runs
// and tests.
type InMemoryRepo struct {
	mu        sync.Mutex
	prices    map[string]float64 // "SOURCE:SYMBOL" -> price
	trades    []model.Trade
	snapshots []string
	signals   []string
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		prices: make(map[string]float64),
	}
}

func (r *InMemoryRepo) UpsertLatestPrice(ctx context.Context, source, symbol string, price float64, ts int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prices[source+":"+symbol] = price
	return nil
}

func (r *InMemoryRepo) InsertTrade(ctx context.Context, trade model.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades = append(r.trades, trade)
	return nil
}

func (r *InMemoryRepo) ListTrades(ctx context.Context, limit int) ([]model.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > len(r.trades) {
		limit = len(r.trades)
	}
	out := make([]model.Trade, 0, limit)
	for i := len(r.trades) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.trades[i])
	}
	return out, nil
}

func (r *InMemoryRepo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, payload)
	return nil
}

func (r *InMemoryRepo) InsertSignal(ctx context.Context, ts int64, assetID string, confidence float64, payload string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, payload)
	return nil
}

func (r *InMemoryRepo) Close() error { return nil }

// TradeCount reports stored trades (test helper).
func (r *InMemoryRepo) TradeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trades)
}

var _ port.Repository = (*InMemoryRepo)(nil)
