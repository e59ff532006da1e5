package simulator

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"botty/internal/application/port"
	"botty/internal/application/service"
	"botty/internal/domain/model"
)

// minHistory is how many observations an asset needs before agents are
// asked about it; the indicators are noise below this.
const minHistory = 10

type ServiceDeps struct {
	Feeds  []port.PriceFeed
	Assets []model.Asset
	Agents []model.AgentConfig

	SignalEvery   time.Duration
	SnapshotEvery time.Duration
	HistoryLimit  int

	// DefaultPositionPct sizes buys (percent of cash) when the agents
	// do not suggest a quantity.
	DefaultPositionPct float64

	Sink      port.Sink
	Prices    *service.PriceService
	Signals   *service.SignalService
	Trading   *service.TradingService
	Snapshots *service.SnapshotService
}

// Service is the simulation loop: it merges price feeds into the asset
// state, keeps the book marked, and periodically asks the agents for a
// consensus decision per asset.
type Service struct {
	deps ServiceDeps
	st   *State
	fmt  *Formatter

	deciding atomic.Bool
}

func NewService(deps ServiceDeps) *Service {
	if deps.SignalEvery <= 0 {
		deps.SignalEvery = time.Minute
	}
	if deps.SnapshotEvery <= 0 {
		deps.SnapshotEvery = 5 * time.Minute
	}
	if deps.DefaultPositionPct <= 0 {
		deps.DefaultPositionPct = 10
	}
	return &Service{
		deps: deps,
		st:   NewState(deps.Assets, deps.HistoryLimit),
		fmt:  NewFormatter(),
	}
}

func (s *Service) Run(ctx context.Context) error {
	if len(s.deps.Feeds) == 0 {
		return errors.New("no feeds")
	}

	merged := make(chan port.Tick, 1024)
	pairs := s.st.Pairs()

	for _, feed := range s.deps.Feeds {
		ch, err := feed.Subscribe(ctx, pairs)
		if err != nil {
			return err
		}
		go func(in <-chan port.Tick) {
			for {
				select {
				case <-ctx.Done():
					return
				case t, ok := <-in:
					if !ok {
						return
					}
					merged <- t
				}
			}
		}(ch)

		log.Info().Str("feed", feed.Name()).Msg("feed started")
	}

	signalTicker := time.NewTicker(s.deps.SignalEvery)
	defer signalTicker.Stop()
	snapTicker := time.NewTicker(s.deps.SnapshotEvery)
	defer snapTicker.Stop()

	_ = s.deps.Sink.WriteLive(s.fmt.Render(s.st, s.deps.Trading.Snapshot(), RenderLive))

	for {
		select {
		case <-ctx.Done():
			_ = s.deps.Sink.NewLine()
			return ctx.Err()

		case <-signalTicker.C:
			// previous round may still be queued behind the rate
			// limiter; never stack rounds
			if s.deciding.CompareAndSwap(false, true) {
				go func() {
					defer s.deciding.Store(false)
					s.decide(ctx)
				}()
			}

		case now := <-snapTicker.C:
			snap := s.deps.Trading.Snapshot()
			line := s.fmt.Render(s.st, snap, RenderSnapshot)
			_ = s.deps.Sink.WriteSnapshot(now, line)
			if err := s.deps.Snapshots.SavePortfolio(ctx, now.UnixMilli(), snap); err != nil {
				log.Error().Err(err).Msg("snapshot persistence failed")
			}

		case t := <-merged:
			if !s.st.Apply(t) {
				continue
			}
			if err := s.deps.Trading.MarkPrices(s.st.Prices()); err != nil {
				log.Error().Err(err).Msg("mark failed")
			}
			_ = s.deps.Sink.WriteLive(s.fmt.Render(s.st, s.deps.Trading.Snapshot(), RenderLive))
			if s.deps.Prices != nil && t.PriceNum > 0 {
				_ = s.deps.Prices.UpdatePrice(ctx, t.Source, t.Symbol, t.PriceNum, t.Ts)
			}
		}
	}
}

// decide runs one full decision round: every enabled agent votes on
// every asset with enough history, and the consensus is executed.
func (s *Service) decide(ctx context.Context) {
	snap := s.deps.Trading.Snapshot()

	for _, asset := range s.st.Assets() {
		if ctx.Err() != nil {
			return
		}
		if len(asset.History) < minHistory {
			continue
		}

		var signals []model.TradingSignal
		for _, agent := range s.deps.Agents {
			if !agent.Enabled {
				continue
			}
			signals = append(signals, s.deps.Signals.Generate(ctx, asset, agent, snap))
		}
		if len(signals) == 0 {
			continue
		}

		final := service.Consensus(signals)
		log.Debug().
			Str("asset", asset.ID).
			Str("action", string(final.Action)).
			Float64("confidence", final.Confidence).
			Msg("consensus")

		s.act(ctx, asset, final)
	}
}

func (s *Service) act(ctx context.Context, asset model.Asset, sig model.TradingSignal) {
	if sig.Action == model.ActionHold || asset.CurrentPrice <= 0 {
		return
	}

	snap := s.deps.Trading.Snapshot()
	req := service.TradeRequest{
		AssetID:      asset.ID,
		Symbol:       asset.Symbol,
		Price:        asset.CurrentPrice,
		PositionType: sig.PositionType,
		Leverage:     sig.Leverage,
		AgentID:      "consensus",
		Reason:       sig.Reasoning,
	}

	switch sig.Action {
	case model.ActionBuy:
		req.Side = model.SideBuy
		req.Quantity = sig.SuggestedQuantity
		if req.Quantity <= 0 {
			req.Quantity = snap.Cash * s.deps.DefaultPositionPct / 100 / asset.CurrentPrice
		}
	case model.ActionSell, model.ActionClose:
		pos := snap.FindPosition(asset.ID, sig.PositionType)
		if pos == nil {
			return
		}
		req.Side = model.SideSell
		req.Quantity = pos.Quantity
		if sig.Action == model.ActionSell && sig.SuggestedQuantity > 0 && sig.SuggestedQuantity < pos.Quantity {
			req.Quantity = sig.SuggestedQuantity
		}
	default:
		return
	}

	if req.Quantity <= 0 {
		return
	}
	if _, err := s.deps.Trading.Execute(ctx, req); err != nil {
		log.Warn().Err(err).Str("asset", asset.ID).Msg("consensus trade rejected")
	}
}
