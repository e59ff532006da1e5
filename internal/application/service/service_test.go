package service

import (
	"context"
	"sync"

	"botty/internal/domain/model"
)

// mockRepository records calls for assertion; all methods are safe for
// concurrent use.
type mockRepository struct {
	mu        sync.Mutex
	prices    []string
	trades    []model.Trade
	snapshots []string
	signals   []string
	failAll   bool
}

type mockErr struct{}

func (mockErr) Error() string { return "mock failure" }

func (m *mockRepository) UpsertLatestPrice(_ context.Context, source, symbol string, _ float64, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return mockErr{}
	}
	m.prices = append(m.prices, source+"/"+symbol)
	return nil
}

func (m *mockRepository) InsertTrade(_ context.Context, t model.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return mockErr{}
	}
	m.trades = append(m.trades, t)
	return nil
}

func (m *mockRepository) ListTrades(_ context.Context, limit int) ([]model.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.trades) {
		limit = len(m.trades)
	}
	return append([]model.Trade(nil), m.trades[:limit]...), nil
}

func (m *mockRepository) InsertSnapshot(_ context.Context, _ int64, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return mockErr{}
	}
	m.snapshots = append(m.snapshots, payload)
	return nil
}

func (m *mockRepository) InsertSignal(_ context.Context, _ int64, assetID string, _ float64, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return mockErr{}
	}
	m.signals = append(m.signals, assetID+":"+payload)
	return nil
}

func (m *mockRepository) Close() error { return nil }

// scriptedCompleter replays canned responses in order; the last one
// repeats.
type scriptedCompleter struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (c *scriptedCompleter) Complete(_ context.Context, _ string, prompt string, _ bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	c.calls++
	c.prompts = append(c.prompts, prompt)
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	if i < 0 {
		return "", mockErr{}
	}
	return c.responses[i], nil
}
