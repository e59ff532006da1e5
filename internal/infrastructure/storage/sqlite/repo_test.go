package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"botty/internal/domain/model"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepoUpsertPrice(t *testing.T) {
	repo := newTestRepo(t)

	ctx := context.Background()
	if err := repo.UpsertLatestPrice(ctx, "COINBASE", "BTC-USD", 45000.0, 1234567890); err != nil {
		t.Fatalf("UpsertLatestPrice failed: %v", err)
	}
	// upsert with fresh price must not violate the unique constraint
	if err := repo.UpsertLatestPrice(ctx, "COINBASE", "BTC-USD", 46000.0, 1234567999); err != nil {
		t.Fatalf("second UpsertLatestPrice failed: %v", err)
	}
}

func TestSQLiteRepoInsertAndListTrades(t *testing.T) {
	repo := newTestRepo(t)

	ctx := context.Background()
	trade := model.Trade{
		ID:           "t-1",
		AssetID:      "BTC",
		Symbol:       "BTC",
		Side:         model.SideSell,
		PositionType: model.PositionLong,
		Quantity:     0.1,
		Price:        60000,
		Total:        6000,
		Leverage:     1,
		PnL:          1000,
		HasPnL:       true,
		AgentID:      "agent-1",
		Reason:       "take profit",
		Timestamp:    1234567890,
	}
	if err := repo.InsertTrade(ctx, trade); err != nil {
		t.Fatalf("InsertTrade failed: %v", err)
	}

	trades, err := repo.ListTrades(ctx, 10)
	if err != nil {
		t.Fatalf("ListTrades failed: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	got := trades[0]
	if got.ID != "t-1" || got.Side != model.SideSell || !got.HasPnL || got.PnL != 1000 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.AgentID != "agent-1" {
		t.Errorf("expected agent attribution to survive, got %q", got.AgentID)
	}
}

func TestSQLiteRepoTradeWithoutPnL(t *testing.T) {
	repo := newTestRepo(t)

	ctx := context.Background()
	trade := model.Trade{
		ID:           "t-2",
		AssetID:      "ETH",
		Symbol:       "ETH",
		Side:         model.SideBuy,
		PositionType: model.PositionLong,
		Quantity:     10,
		Price:        2000,
		Total:        20000,
		Leverage:     1,
		Timestamp:    1234567890,
	}
	if err := repo.InsertTrade(ctx, trade); err != nil {
		t.Fatalf("InsertTrade failed: %v", err)
	}

	trades, err := repo.ListTrades(ctx, 10)
	if err != nil {
		t.Fatalf("ListTrades failed: %v", err)
	}
	if trades[0].HasPnL {
		t.Errorf("opening trade must not carry realized pnl")
	}
}

func TestSQLiteRepoInsertSnapshot(t *testing.T) {
	repo := newTestRepo(t)

	ctx := context.Background()
	payload := `{"cash":10000,"positions":[]}`
	if err := repo.InsertSnapshot(ctx, 1234567890, payload); err != nil {
		t.Fatalf("InsertSnapshot failed: %v", err)
	}
}

func TestSQLiteRepoInsertSignal(t *testing.T) {
	repo := newTestRepo(t)

	ctx := context.Background()
	payload := `{"action":"buy","reasoning":"RSI oversold"}`
	if err := repo.InsertSignal(ctx, 1234567890, "BTC", 87.5, payload); err != nil {
		t.Fatalf("InsertSignal failed: %v", err)
	}
}
