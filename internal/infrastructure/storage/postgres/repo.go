package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"botty/internal/application/port"
	"botty/internal/domain/model"
)

// Repo archives snapshots, trades and signals in Postgres for long-term
// analysis. Latest-price upserts are served by the sqlite/redis repos.
type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

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
CREATE TABLE IF NOT EXISTS snapshots (
  id BIGSERIAL PRIMARY KEY,
  ts_ms BIGINT NOT NULL,
  payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts_ms);

CREATE TABLE IF NOT EXISTS trades (
  id TEXT PRIMARY KEY,
  asset_id TEXT NOT NULL,
  symbol TEXT NOT NULL,
  side TEXT NOT NULL,
  position_type TEXT NOT NULL,
  quantity DOUBLE PRECISION NOT NULL,
  price DOUBLE PRECISION NOT NULL,
  total DOUBLE PRECISION NOT NULL,
  leverage DOUBLE PRECISION NOT NULL,
  pnl DOUBLE PRECISION,
  agent_id TEXT,
  reason TEXT,
  ts_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(ts_ms);

CREATE TABLE IF NOT EXISTS signals (
  id BIGSERIAL PRIMARY KEY,
  ts_ms BIGINT NOT NULL,
  asset_id TEXT NOT NULL,
  confidence DOUBLE PRECISION NOT NULL,
  payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(ts_ms);
`)
	return err
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, source, symbol string, price float64, ts int64) error {
	// latest prices live in sqlite/redis; the archive keeps trades and snapshots
	return nil
}

func (r *Repo) InsertTrade(ctx context.Context, trade model.Trade) error {
	var pnl sql.NullFloat64
	if trade.HasPnL {
		pnl = sql.NullFloat64{Float64: trade.PnL, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trades(id, asset_id, symbol, side, position_type, quantity, price, total, leverage, pnl, agent_id, reason, ts_ms)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`, trade.ID, trade.AssetID, trade.Symbol, string(trade.Side), string(trade.PositionType),
		trade.Quantity, trade.Price, trade.Total, trade.Leverage, pnl, trade.AgentID, trade.Reason, trade.Timestamp)
	return err
}

func (r *Repo) ListTrades(ctx context.Context, limit int) ([]model.Trade, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, asset_id, symbol, side, position_type, quantity, price, total, leverage, pnl, agent_id, reason, ts_ms
		FROM trades ORDER BY ts_ms DESC LIMIT $1
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
	_, err := r.db.ExecContext(ctx, `INSERT INTO snapshots(ts_ms, payload) VALUES($1, $2)`, ts, payload)
	return err
}

func (r *Repo) InsertSignal(ctx context.Context, ts int64, assetID string, confidence float64, payload string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO signals(ts_ms, asset_id, confidence, payload) VALUES($1, $2, $3, $4)`, ts, assetID, confidence, payload)
	return err
}

var _ port.Repository = (*Repo)(nil)
