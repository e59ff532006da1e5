package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"botty/internal/application/port"
	"botty/internal/domain/model"
)

type Repo struct {
	rdb          *redis.Client
	prefix       string
	ttl          time.Duration
	keyLatest    string // prefix + ":latest"
	keyTrades    string // prefix + ":trades"
	signalStream string
	signalChan   string
}

type LatestPrice struct {
	Source string  `json:"source"`
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Ts     int64   `json:"ts"`
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, signalStream, signalChan string) *Repo {
	if strings.TrimSpace(signalStream) == "" {
		signalStream = prefix + ":signals"
	}
	if strings.TrimSpace(signalChan) == "" {
		signalChan = prefix + ":signals:pub"
	}
	return &Repo{
		rdb:          rdb,
		prefix:       prefix,
		ttl:          ttl,
		keyLatest:    prefix + ":latest",
		keyTrades:    prefix + ":trades",
		signalStream: signalStream,
		signalChan:   signalChan,
	}
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, source, symbol string, price float64, ts int64) error {
	if price <= 0 {
		return nil
	}
	lp := LatestPrice{Source: source, Symbol: symbol, Price: price, Ts: ts}
	b, _ := json.Marshal(lp)

	// Hash: field = "COINBASE:BTC-USD" -> json
	field := fmt.Sprintf("%s:%s", source, symbol)
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, field, string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Repo) InsertTrade(ctx context.Context, trade model.Trade) error {
	b, err := json.Marshal(trade)
	if err != nil {
		return err
	}
	// capped list: newest first, keep the last 500 trades hot
	pipe := r.rdb.Pipeline()
	pipe.LPush(ctx, r.keyTrades, string(b))
	pipe.LTrim(ctx, r.keyTrades, 0, 499)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Repo) ListTrades(ctx context.Context, limit int) ([]model.Trade, error) {
	if limit <= 0 {
		limit = 100
	}
	raw, err := r.rdb.LRange(ctx, r.keyTrades, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	trades := make([]model.Trade, 0, len(raw))
	for _, item := range raw {
		var t model.Trade
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			continue
		}
		trades = append(trades, t)
	}
	return trades, nil
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	key := r.prefix + ":snapshot"
	pipe := r.rdb.Pipeline()
	pipe.Set(ctx, key, payload, 0)
	pipe.HSet(ctx, key+":meta", "ts_ms", ts)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Repo) InsertSignal(ctx context.Context, ts int64, assetID string, confidence float64, payload string) error {
	// 1) Stream: XADD <stream> * ts asset confidence payload
	_, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.signalStream,
		Values: map[string]any{
			"ts_ms":      ts,
			"asset_id":   assetID,
			"confidence": confidence,
			"payload":    payload,
		},
	}).Result()
	if err != nil {
		return err
	}

	// 2) PubSub: PUBLISH <channel> json
	msg := fmt.Sprintf(`{"ts_ms":%d,"asset_id":"%s","confidence":%.2f,"payload":%q}`, ts, assetID, confidence, payload)
	return r.rdb.Publish(ctx, r.signalChan, msg).Err()
}

func (r *Repo) Close() error { return nil }

var _ port.Repository = (*Repo)(nil)
