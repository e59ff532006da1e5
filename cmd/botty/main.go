package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"botty/internal/application/usecase/simulator"
	"botty/internal/domain/ledger"
	"botty/internal/infrastructure/config"
	"botty/internal/infrastructure/logger"
	"botty/internal/infrastructure/svc"
)

func main() {
	logger.Setup()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service context initialization failed")
	}
	defer func() { _ = sc.Close() }()

	loop := simulator.NewService(sc.BuildSimulatorDeps())

	log.Info().
		Str("config", *configPath).
		Int("assets", len(cfg.Assets)).
		Int("agents", len(cfg.Agents)).
		Float64("starting_balance", cfg.App.StartingBalance).
		Msg("botty started")

	if err := loop.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("simulation loop exited")
	}

	final := sc.Book().Snapshot()
	equity := ledger.PortfolioValue(final, nil)
	log.Info().
		Float64("cash", final.Cash).
		Float64("equity", equity).
		Float64("total_pnl", final.TotalPnL).
		Float64("max_drawdown", final.MaxDrawdown).
		Int("trades", len(final.Trades)).
		Msg("final portfolio")
}
