package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App struct {
		StartingBalance    float64 `toml:"starting_balance"`
		SignalEverySec     int     `toml:"signal_every_sec"`
		SnapshotEveryMin   int     `toml:"snapshot_every_min"`
		HistoryLimit       int     `toml:"history_limit"`
		DefaultPositionPct float64 `toml:"default_position_pct"`
	} `toml:"app"`

	Risk struct {
		MaxPositionUSD    float64 `toml:"max_position_usd"`
		MaxTotalPositions int     `toml:"max_total_positions"`
		MaxDrawdownPct    float64 `toml:"max_drawdown_pct"`
	} `toml:"risk"`

	Assets []AssetConfig `toml:"assets"`
	Agents []AgentConfig `toml:"agents"`

	LLM struct {
		BaseURL      string `toml:"base_url"`
		APIKeyEnv    string `toml:"api_key_env"`
		Model        string `toml:"model"`
		MinDelayMs   int    `toml:"min_delay_ms"`
		MaxRetries   int    `toml:"max_retries"`
		RetryDelayMs int    `toml:"retry_delay_ms"`
	} `toml:"llm"`

	Coinbase struct {
		Enabled     bool   `toml:"enabled"`
		RestURL     string `toml:"rest_url"`
		WsEnabled   bool   `toml:"ws_enabled"`
		WsURL       string `toml:"ws_url"`
		PollSeconds int    `toml:"poll_seconds"`
	} `toml:"coinbase"`

	Sim struct {
		Enabled    bool    `toml:"enabled"`
		IntervalMs int     `toml:"interval_ms"`
		Volatility float64 `toml:"volatility"`
	} `toml:"sim"`

	SQLite struct {
		Path string `toml:"path"`
	} `toml:"sqlite"`

	Redis struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
		DB      int    `toml:"db"`
		TTLSec  int    `toml:"ttl_sec"`
	} `toml:"redis"`

	Postgres struct {
		Enabled bool   `toml:"enabled"`
		DSN     string `toml:"dsn"`
	} `toml:"postgres"`
}

type AssetConfig struct {
	ID           string  `toml:"id"`
	Symbol       string  `toml:"symbol"`
	Name         string  `toml:"name"`
	CurrencyPair string  `toml:"currency_pair"`
	SeedPrice    float64 `toml:"seed_price"`
}

type AgentConfig struct {
	ID             string  `toml:"id"`
	Name           string  `toml:"name"`
	Model          string  `toml:"model"`
	Mode           string  `toml:"mode"`
	Enabled        bool    `toml:"enabled"`
	MaxLeverage    float64 `toml:"max_leverage"`
	MaxPositionPct float64 `toml:"max_position_pct"`
	StopLossPct    float64 `toml:"stop_loss_pct"`
	TakeProfitPct  float64 `toml:"take_profit_pct"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.StartingBalance <= 0 {
		cfg.App.StartingBalance = 10000
	}
	if cfg.App.SignalEverySec <= 0 {
		cfg.App.SignalEverySec = 60
	}
	if cfg.App.SnapshotEveryMin <= 0 {
		cfg.App.SnapshotEveryMin = 5
	}
	if cfg.App.HistoryLimit <= 0 {
		cfg.App.HistoryLimit = 100
	}
	if cfg.App.DefaultPositionPct <= 0 {
		cfg.App.DefaultPositionPct = 10
	}

	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.MinDelayMs <= 0 {
		cfg.LLM.MinDelayMs = 1000
	}
	if cfg.LLM.MaxRetries <= 0 {
		cfg.LLM.MaxRetries = 3
	}
	if cfg.LLM.RetryDelayMs <= 0 {
		cfg.LLM.RetryDelayMs = 2000
	}

	if cfg.Coinbase.PollSeconds <= 0 {
		cfg.Coinbase.PollSeconds = 10
	}
	if cfg.Sim.IntervalMs <= 0 {
		cfg.Sim.IntervalMs = 1000
	}
	if cfg.Sim.Volatility <= 0 {
		cfg.Sim.Volatility = 0.02
	}

	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = "data/botty.db"
	}
	if cfg.Redis.TTLSec <= 0 {
		cfg.Redis.TTLSec = 3600
	}

	for i := range cfg.Agents {
		a := &cfg.Agents[i]
		if a.Mode == "" {
			a.Mode = "moderate"
		}
		if a.Model == "" {
			a.Model = cfg.LLM.Model
		}
		if a.MaxLeverage < 1 {
			a.MaxLeverage = 1
		}
		if a.MaxPositionPct <= 0 {
			a.MaxPositionPct = 25
		}
		if a.StopLossPct <= 0 {
			a.StopLossPct = 5
		}
		if a.TakeProfitPct <= 0 {
			a.TakeProfitPct = 10
		}
	}
}

func validate(cfg *Config) error {
	cfg.Assets = normalizeAssets(cfg.Assets)
	if len(cfg.Assets) == 0 {
		return errors.New("assets list is empty")
	}

	if !cfg.Coinbase.Enabled && !cfg.Sim.Enabled {
		return errors.New("no price feed enabled")
	}
	if cfg.Coinbase.WsEnabled && !cfg.Coinbase.Enabled {
		return errors.New("coinbase.ws_enabled requires coinbase.enabled")
	}
	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return errors.New("redis.addr empty but enabled")
	}
	if cfg.Postgres.Enabled && strings.TrimSpace(cfg.Postgres.DSN) == "" {
		return errors.New("postgres.dsn empty but enabled")
	}

	for _, a := range cfg.Agents {
		switch a.Mode {
		case "conservative", "moderate", "aggressive":
		default:
			return fmt.Errorf("agent %q: unknown mode %q", a.ID, a.Mode)
		}
	}
	return nil
}

func normalizeAssets(in []AssetConfig) []AssetConfig {
	out := make([]AssetConfig, 0, len(in))
	seen := map[string]struct{}{}
	for _, a := range in {
		a.ID = strings.ToLower(strings.TrimSpace(a.ID))
		a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
		a.CurrencyPair = strings.ToUpper(strings.TrimSpace(a.CurrencyPair))
		if a.ID == "" || a.CurrencyPair == "" {
			continue
		}
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		if a.Symbol == "" {
			a.Symbol, _, _ = strings.Cut(a.CurrencyPair, "-")
		}
		out = append(out, a)
	}
	return out
}

func (c *Config) SignalEvery() time.Duration {
	return time.Duration(c.App.SignalEverySec) * time.Second
}

func (c *Config) SnapshotEvery() time.Duration {
	return time.Duration(c.App.SnapshotEveryMin) * time.Minute
}
