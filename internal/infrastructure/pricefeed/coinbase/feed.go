package coinbase

import (
	"strconv"
	"time"

	"context"

	"github.com/rs/zerolog/log"

	"botty/internal/application/port"
)

// PollingFeed emits spot prices for a set of currency pairs by polling the
// REST API on a fixed interval. It implements port.PriceFeed.
type PollingFeed struct {
	client   *SpotClient
	interval time.Duration
}

func NewPollingFeed(baseURL string, interval time.Duration) *PollingFeed {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &PollingFeed{
		client:   NewSpotClient(baseURL),
		interval: interval,
	}
}

func (f *PollingFeed) Name() string { return "COINBASE" }

func (f *PollingFeed) Subscribe(ctx context.Context, pairs []string) (<-chan port.Tick, error) {
	out := make(chan port.Tick, 1024)
	go f.run(ctx, pairs, out)
	return out, nil
}

func (f *PollingFeed) run(ctx context.Context, pairs []string, out chan<- port.Tick) {
	defer close(out)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	// poll once immediately so the simulator has marks before the
	// first interval elapses
	f.pollAll(ctx, pairs, out)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.pollAll(ctx, pairs, out)
		}
	}
}

func (f *PollingFeed) pollAll(ctx context.Context, pairs []string, out chan<- port.Tick) {
	for _, pair := range pairs {
		price, err := f.client.SpotPrice(ctx, pair)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Str("feed", f.Name()).Str("pair", pair).Err(err).Msg("spot price fetch failed")
			continue
		}
		out <- port.Tick{
			Source:   f.Name(),
			Symbol:   pair,
			PriceStr: strconv.FormatFloat(price, 'f', -1, 64),
			PriceNum: price,
			Ts:       time.Now().UnixMilli(),
		}
	}
}

var _ port.PriceFeed = (*PollingFeed)(nil)
