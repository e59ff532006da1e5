package svc

import (
	"context"
	"fmt"
	"os"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"botty/internal/application/port"
	"botty/internal/application/service"
	"botty/internal/application/usecase/simulator"
	"botty/internal/domain/ledger"
	"botty/internal/domain/model"
	"botty/internal/domain/risk"
	"botty/internal/infrastructure/config"
	"botty/internal/infrastructure/llm"
	"botty/internal/infrastructure/pricefeed/coinbase"
	"botty/internal/infrastructure/pricefeed/sim"
	compositerepo "botty/internal/infrastructure/storage/composite"
	pgrepo "botty/internal/infrastructure/storage/postgres"
	redisrepo "botty/internal/infrastructure/storage/redis"
	sqliterepo "botty/internal/infrastructure/storage/sqlite"
	"botty/internal/infrastructure/throttle"
	"botty/internal/interfaces/console"
)

// ServiceContext owns every initialized dependency. It is the single
// entry point for application startup; construction order follows the
// dependency graph and Close unwinds it in reverse.
type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	redisClient *redisclient.Client
	repo        port.Repository

	Sink port.Sink

	book       *ledger.Book
	limiter    *throttle.Limiter
	completer  port.Completer
	priceFeeds []port.PriceFeed

	trading   *service.TradingService
	signals   *service.SignalService
	snapshots *service.SnapshotService
	prices    *service.PriceService

	closerChain []func() error
}

func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	sc := &ServiceContext{
		Ctx:         ctx,
		Config:      cfg,
		Sink:        console.NewSink(),
		closerChain: make([]func() error, 0),
	}

	if err := sc.initializeComponents(); err != nil {
		_ = sc.Close()
		return nil, err
	}
	return sc, nil
}

func (sc *ServiceContext) initializeComponents() error {
	if err := sc.initializeStorage(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInitFailed, err)
	}

	if err := sc.initFeeds(); err != nil {
		return err
	}

	sc.initLLM()

	sc.book = ledger.NewBook(model.NewPortfolio(sc.Config.App.StartingBalance))
	limits := risk.NewManager(sc.Config.Risk.MaxPositionUSD, sc.Config.Risk.MaxTotalPositions, sc.Config.Risk.MaxDrawdownPct)
	sc.trading = service.NewTradingService(sc.book, sc.repo).WithRisk(limits)
	sc.signals = service.NewSignalService(sc.completer, sc.limiter, sc.repo)
	sc.snapshots = service.NewSnapshotService(sc.repo)
	sc.prices = service.NewPriceService(sc.repo)

	log.Info().
		Int("feeds", len(sc.priceFeeds)).
		Float64("starting_balance", sc.Config.App.StartingBalance).
		Msg("all components initialized")

	return nil
}

// initializeStorage wires sqlite (always on), plus redis and postgres
// when enabled, behind one composite repository.
func (sc *ServiceContext) initializeStorage() error {
	repos := make([]port.Repository, 0, 3)

	sqlite, err := sqliterepo.New(sc.Config.SQLite.Path)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	repos = append(repos, sqlite)
	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return sqlite.Close()
	})
	log.Info().Str("path", sc.Config.SQLite.Path).Msg("sqlite initialized")

	if sc.Config.Redis.Enabled {
		rdb := redisclient.NewClient(&redisclient.Options{
			Addr: sc.Config.Redis.Addr,
			DB:   sc.Config.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(sc.Ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}

		sc.redisClient = rdb
		ttl := time.Duration(sc.Config.Redis.TTLSec) * time.Second
		repos = append(repos, redisrepo.New(rdb, "botty", ttl, "", ""))
		sc.closerChain = append(sc.closerChain, func() error {
			log.Info().Msg("closing redis connection")
			return rdb.Close()
		})
		log.Info().Str("addr", sc.Config.Redis.Addr).Int("db", sc.Config.Redis.DB).Msg("redis initialized")
	}

	if sc.Config.Postgres.Enabled {
		pg, err := pgrepo.New(sc.Config.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		repos = append(repos, pg)
		sc.closerChain = append(sc.closerChain, func() error {
			log.Info().Msg("closing postgres connection")
			return pg.Close()
		})
		log.Info().Msg("postgres initialized")
	}

	if len(repos) == 1 {
		sc.repo = repos[0]
	} else {
		sc.repo = compositerepo.New(repos...)
	}
	return nil
}

func (sc *ServiceContext) initFeeds() error {
	var feeds []port.PriceFeed

	if sc.Config.Coinbase.Enabled {
		poll := time.Duration(sc.Config.Coinbase.PollSeconds) * time.Second
		feeds = append(feeds, coinbase.NewPollingFeed(sc.Config.Coinbase.RestURL, poll))
		if sc.Config.Coinbase.WsEnabled {
			feeds = append(feeds, coinbase.NewTickerFeed(sc.Config.Coinbase.WsURL))
		}
	}

	if sc.Config.Sim.Enabled {
		seeds := make(map[string]float64, len(sc.Config.Assets))
		for _, a := range sc.Config.Assets {
			if a.SeedPrice > 0 {
				seeds[a.CurrencyPair] = a.SeedPrice
			}
		}
		interval := time.Duration(sc.Config.Sim.IntervalMs) * time.Millisecond
		feeds = append(feeds, sim.New(interval, sc.Config.Sim.Volatility, seeds))
	}

	if len(feeds) == 0 {
		return ErrNoFeedsEnabled
	}
	sc.priceFeeds = feeds
	return nil
}

func (sc *ServiceContext) initLLM() {
	apiKey := os.Getenv(sc.Config.LLM.APIKeyEnv)
	if apiKey == "" {
		log.Warn().Str("env", sc.Config.LLM.APIKeyEnv).Msg("llm api key not set, completions will fail")
	}
	sc.completer = llm.NewClient(sc.Config.LLM.BaseURL, apiKey)
	sc.limiter = throttle.New(
		time.Duration(sc.Config.LLM.MinDelayMs)*time.Millisecond,
		sc.Config.LLM.MaxRetries,
		time.Duration(sc.Config.LLM.RetryDelayMs)*time.Millisecond,
	)
}

// BuildSimulatorDeps assembles the dependency set for the simulation
// loop; called by the application layer.
func (sc *ServiceContext) BuildSimulatorDeps() simulator.ServiceDeps {
	return simulator.ServiceDeps{
		Feeds:              sc.priceFeeds,
		Assets:             sc.backfillHistory(assetsFromConfig(sc.Config.Assets)),
		Agents:             agentsFromConfig(sc.Config.Agents),
		SignalEvery:        sc.Config.SignalEvery(),
		SnapshotEvery:      sc.Config.SnapshotEvery(),
		HistoryLimit:       sc.Config.App.HistoryLimit,
		DefaultPositionPct: sc.Config.App.DefaultPositionPct,
		Sink:               sc.Sink,
		Prices:             sc.prices,
		Signals:            sc.signals,
		Trading:            sc.trading,
		Snapshots:          sc.snapshots,
	}
}

// backfillHistory seeds each asset with daily closes so the indicators
// have data before the live feed builds its own history. Best effort:
// a failed pair just starts empty.
func (sc *ServiceContext) backfillHistory(assets []model.Asset) []model.Asset {
	if !sc.Config.Coinbase.Enabled {
		return assets
	}
	client := coinbase.NewSpotClient(sc.Config.Coinbase.RestURL)
	for i := range assets {
		ctx, cancel := context.WithTimeout(sc.Ctx, 30*time.Second)
		history, err := client.DailyHistory(ctx, assets[i].CurrencyPair, 14)
		cancel()
		if err != nil || len(history) == 0 {
			log.Warn().Str("pair", assets[i].CurrencyPair).Err(err).Msg("history backfill failed")
			continue
		}
		assets[i].History = history
	}
	return assets
}

// Book exposes the portfolio ledger, mainly for shutdown reporting.
func (sc *ServiceContext) Book() *ledger.Book {
	return sc.book
}

func (sc *ServiceContext) Repo() port.Repository {
	return sc.repo
}

func (sc *ServiceContext) Close() error {
	for _, feed := range sc.priceFeeds {
		if closeable, ok := feed.(interface{ Close() error }); ok {
			if err := closeable.Close(); err != nil {
				log.Error().Err(err).Msg("error closing price feed")
			}
		}
	}

	for i := len(sc.closerChain) - 1; i >= 0; i-- {
		if err := sc.closerChain[i](); err != nil {
			log.Error().Err(err).Msg("error closing resource")
		}
	}
	return nil
}

func assetsFromConfig(in []config.AssetConfig) []model.Asset {
	out := make([]model.Asset, 0, len(in))
	for _, a := range in {
		out = append(out, model.Asset{
			ID:           a.ID,
			Symbol:       a.Symbol,
			Name:         a.Name,
			CurrencyPair: a.CurrencyPair,
			CurrentPrice: a.SeedPrice,
		})
	}
	return out
}

func agentsFromConfig(in []config.AgentConfig) []model.AgentConfig {
	out := make([]model.AgentConfig, 0, len(in))
	for _, a := range in {
		out = append(out, model.AgentConfig{
			ID:              a.ID,
			Name:            a.Name,
			Model:           a.Model,
			Mode:            model.TradingMode(a.Mode),
			Enabled:         a.Enabled,
			MaxLeverage:     a.MaxLeverage,
			MaxPositionSize: a.MaxPositionPct,
			StopLossPct:     a.StopLossPct,
			TakeProfitPct:   a.TakeProfitPct,
		})
	}
	return out
}
