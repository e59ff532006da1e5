package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"botty/internal/application/port"
	"botty/internal/domain/ledger"
	"botty/internal/domain/model"
	"botty/internal/domain/risk"
)

// TradeRequest describes one order to run against the book.
type TradeRequest struct {
	Side         model.Side
	AssetID      string
	Symbol       string
	Quantity     float64
	Price        float64
	PositionType model.PositionType
	Leverage     float64
	AgentID      string
	Reason       string
}

// TradingService is the only trade path into the book. Every request is
// gated through the feasibility check inside the same book update, so the
// check and the execution see the same snapshot.
type TradingService struct {
	book *ledger.Book
	repo port.Repository
	risk *risk.Manager
}

func NewTradingService(book *ledger.Book, repo port.Repository) *TradingService {
	return &TradingService{book: book, repo: repo}
}

// WithRisk adds portfolio-wide limits on top of the feasibility check.
func (s *TradingService) WithRisk(m *risk.Manager) *TradingService {
	s.risk = m
	return s
}

// Execute validates and applies one trade, persists the resulting trade
// record, and returns the new snapshot. A failed feasibility check
// returns an error carrying the human-readable reason; the book is left
// untouched.
func (s *TradingService) Execute(ctx context.Context, req TradeRequest) (model.Portfolio, error) {
	if req.Leverage < 1 {
		req.Leverage = 1
	}
	if req.PositionType == "" {
		req.PositionType = model.PositionLong
	}

	err := s.book.Update(func(p model.Portfolio) (model.Portfolio, error) {
		if res := ledger.CanExecute(p, req.Side, req.AssetID, req.Quantity, req.Price); !res.OK {
			return model.Portfolio{}, fmt.Errorf("trade rejected: %s", res.Reason)
		}
		if err := s.risk.Check(p, req.Side, req.AssetID, req.Quantity, req.Price, req.Leverage, req.PositionType); err != nil {
			return model.Portfolio{}, fmt.Errorf("trade rejected: %s", err)
		}
		return ledger.ExecuteAgentTrade(p, req.Side, req.AssetID, req.Symbol, req.Quantity, req.Price, req.PositionType, req.Leverage, req.AgentID, req.Reason), nil
	})
	if err != nil {
		return model.Portfolio{}, err
	}

	snap := s.book.Snapshot()
	trade := snap.Trades[len(snap.Trades)-1]
	if err := s.repo.InsertTrade(ctx, trade); err != nil {
		// the ledger is the source of truth; a persistence failure
		// must not roll back an executed trade
		log.Error().Err(err).Str("trade", trade.ID).Msg("trade persistence failed")
	}

	log.Info().
		Str("side", string(req.Side)).
		Str("asset", req.AssetID).
		Float64("quantity", req.Quantity).
		Float64("price", req.Price).
		Str("agent", req.AgentID).
		Msg("trade executed")

	return snap, nil
}

// MarkPrices updates the marks on all open positions from the latest
// ticks.
func (s *TradingService) MarkPrices(prices map[string]float64) error {
	return s.book.Update(func(p model.Portfolio) (model.Portfolio, error) {
		return ledger.MarkPrices(p, prices), nil
	})
}

// Snapshot returns the current portfolio.
func (s *TradingService) Snapshot() model.Portfolio {
	return s.book.Snapshot()
}
