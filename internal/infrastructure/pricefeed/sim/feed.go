package sim

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"botty/internal/application/port"
)

// Feed generates random-walk prices for offline runs: each tick the price
// moves by a slightly upward-biased random fraction of its volatility and
// never drops below 80% of its previous value in one step.
type Feed struct {
	interval   time.Duration
	volatility float64

	mu     sync.Mutex
	prices map[string]float64
	rng    *rand.Rand
}

// New creates a simulated feed. seeds maps currency pairs to their initial
// prices.
func New(interval time.Duration, volatility float64, seeds map[string]float64) *Feed {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if volatility <= 0 {
		volatility = 0.02
	}
	prices := make(map[string]float64, len(seeds))
	for pair, px := range seeds {
		prices[pair] = px
	}
	return &Feed{
		interval:   interval,
		volatility: volatility,
		prices:     prices,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (f *Feed) Name() string { return "SIM" }

func (f *Feed) Subscribe(ctx context.Context, pairs []string) (<-chan port.Tick, error) {
	out := make(chan port.Tick, 1024)
	go f.run(ctx, pairs, out)
	return out, nil
}

func (f *Feed) run(ctx context.Context, pairs []string, out chan<- port.Tick) {
	defer close(out)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	f.emitAll(pairs, out)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.emitAll(pairs, out)
		}
	}
}

func (f *Feed) emitAll(pairs []string, out chan<- port.Tick) {
	now := time.Now().UnixMilli()
	for _, pair := range pairs {
		px := f.step(pair)
		out <- port.Tick{
			Source:   f.Name(),
			Symbol:   pair,
			PriceStr: strconv.FormatFloat(px, 'f', -1, 64),
			PriceNum: px,
			Ts:       now,
		}
	}
}

func (f *Feed) step(pair string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, ok := f.prices[pair]
	if !ok || current <= 0 {
		current = 100
	}

	// slight upward bias (0.48 instead of 0.5) and a floor at 80% of
	// the previous price
	change := (f.rng.Float64() - 0.48) * f.volatility * current
	next := current + change
	if floor := current * 0.8; next < floor {
		next = floor
	}
	f.prices[pair] = next
	return next
}

var _ port.PriceFeed = (*Feed)(nil)
