package port

import "context"

type Tick struct {
	Source   string  // feed name, "COINBASE" "SIM"
	Symbol   string  // currency pair, "BTC-USD"
	PriceStr string  // raw string
	PriceNum float64 // parsed float64 (best-effort)
	Ts       int64   // unix ms
}

type PriceFeed interface {
	Name() string
	Subscribe(ctx context.Context, pairs []string) (<-chan Tick, error)
}
