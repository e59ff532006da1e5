package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"botty/internal/application/port"
	"botty/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS prices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  source TEXT NOT NULL,
  symbol TEXT NOT NULL,
  price REAL NOT NULL,
  ts_ms INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  UNIQUE(source, symbol)
);
CREATE INDEX IF NOT EXISTS idx_prices_ts ON prices(ts_ms);
CREATE INDEX IF NOT EXISTS idx_prices_symbol ON prices(symbol);

CREATE TABLE IF NOT EXISTS trades (
  id TEXT PRIMARY KEY,
  asset_id TEXT NOT NULL,
  symbol TEXT NOT NULL,
  side TEXT NOT NULL,
  position_type TEXT NOT NULL,
  quantity REAL NOT NULL,
  price REAL NOT NULL,
  total REAL NOT NULL,
  leverage REAL NOT NULL,
  pnl REAL,
  agent_id TEXT,
  reason TEXT,
  ts_ms INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(ts_ms);
CREATE INDEX IF NOT EXISTS idx_trades_asset ON trades(asset_id);

CREATE TABLE IF NOT EXISTS snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_ms INTEGER NOT NULL,
  payload TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts_ms);

CREATE TABLE IF NOT EXISTS signals (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_ms INTEGER NOT NULL,
  asset_id TEXT NOT NULL,
  confidence REAL NOT NULL,
  payload TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(ts_ms);
CREATE INDEX IF NOT EXISTS idx_signals_asset ON signals(asset_id);
`)
	return err
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, source, symbol string, price float64, ts int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO prices(source, symbol, price, ts_ms, created_at)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(source, symbol) DO UPDATE SET
		price=excluded.price, ts_ms=excluded.ts_ms
	`, source, symbol, price, ts, ts)
	return err
}

func (r *Repo) InsertTrade(ctx context.Context, trade model.Trade) error {
	var pnl sql.NullFloat64
	if trade.HasPnL {
		pnl = sql.NullFloat64{Float64: trade.PnL, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trades(id, asset_id, symbol, side, position_type, quantity, price, total, leverage, pnl, agent_id, reason, ts_ms, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, trade.ID, trade.AssetID, trade.Symbol, string(trade.Side), string(trade.PositionType),
		trade.Quantity, trade.Price, trade.Total, trade.Leverage, pnl, trade.AgentID, trade.Reason,
		trade.Timestamp, trade.Timestamp)
	return err
}

func (r *Repo) ListTrades(ctx context.Context, limit int) ([]model.Trade, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, asset_id, symbol, side, position_type, quantity, price, total, leverage, pnl, agent_id, reason, ts_ms
		FROM trades ORDER BY ts_ms DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trades := []model.Trade{}
	for rows.Next() {
		var t model.Trade
		var side, posType string
		var pnl sql.NullFloat64
		var agentID, reason sql.NullString
		if err := rows.Scan(&t.ID, &t.AssetID, &t.Symbol, &side, &posType, &t.Quantity, &t.Price, &t.Total, &t.Leverage, &pnl, &agentID, &reason, &t.Timestamp); err != nil {
			return nil, err
		}
		t.Side = model.Side(side)
		t.PositionType = model.PositionType(posType)
		if pnl.Valid {
			t.PnL = pnl.Float64
			t.HasPnL = true
		}
		t.AgentID = agentID.String
		t.Reason = reason.String
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO snapshots(ts_ms, payload, created_at) VALUES(?, ?, ?)`, ts, payload, ts)
	return err
}

func (r *Repo) InsertSignal(ctx context.Context, ts int64, assetID string, confidence float64, payload string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO signals(ts_ms, asset_id, confidence, payload, created_at) VALUES(?, ?, ?, ?, ?)`, ts, assetID, confidence, payload, ts)
	return err
}

var _ port.Repository = (*Repo)(nil)
