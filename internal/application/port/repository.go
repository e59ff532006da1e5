package port

import (
	"context"

	"botty/internal/domain/model"
)

type Repository interface {
	// Price operations
	UpsertLatestPrice(ctx context.Context, source, symbol string, price float64, ts int64) error

	// Trade log (append-only audit trail)
	InsertTrade(ctx context.Context, trade model.Trade) error
	ListTrades(ctx context.Context, limit int) ([]model.Trade, error)

	// Portfolio snapshot operations
	InsertSnapshot(ctx context.Context, ts int64, payload string) error

	// Signal operations
	InsertSignal(ctx context.Context, ts int64, assetID string, confidence float64, payload string) error

	// Connection management
	Close() error
}
