package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"botty/internal/domain/model"
)

// Pure copy-on-write transformations over model.Portfolio. Every function
// takes a snapshot and returns a wholly new one; the input is never
// mutated, not even transiently. Callers serialize mutations through a
// Book (single writer), these functions never suspend or do I/O.

// CheckResult is the outcome of a trade feasibility check.
type CheckResult struct {
	OK     bool
	Reason string
}

// CanExecute verifies a trade is feasible against the snapshot. It has no
// side effects and must pass before ExecuteTrade is called; ExecuteTrade
// itself does not re-validate funds or holdings.
func CanExecute(p model.Portfolio, side model.Side, assetID string, quantity, price float64) CheckResult {
	if quantity <= 0 {
		return CheckResult{Reason: "quantity must be greater than zero"}
	}

	if side == model.SideBuy {
		cost := quantity * price
		if p.Cash < cost {
			return CheckResult{Reason: fmt.Sprintf("insufficient funds: need $%.2f, have $%.2f", cost, p.Cash)}
		}
		return CheckResult{OK: true}
	}

	var held float64
	for i := range p.Positions {
		if p.Positions[i].AssetID == assetID {
			held = p.Positions[i].Quantity
			break
		}
	}
	if held < quantity {
		return CheckResult{Reason: fmt.Sprintf("insufficient holdings: have %v, trying to sell %v", held, quantity)}
	}
	return CheckResult{OK: true}
}

// ExecuteTrade applies one order to the snapshot and returns the new one.
// Buys debit cash by total/leverage and open or average into the
// (assetID, positionType) position. Sells realize P&L at the position's
// current mark, credit cash, and shrink the position, removing it when
// quantity reaches zero. Drawdown stats are recomputed after every trade.
func ExecuteTrade(p model.Portfolio, side model.Side, assetID, symbol string, quantity, price float64, posType model.PositionType, leverage float64) model.Portfolio {
	return executeTrade(p, side, assetID, symbol, quantity, price, posType, leverage, "", "")
}

// ExecuteAgentTrade is ExecuteTrade with agent attribution stamped on the
// trade record.
func ExecuteAgentTrade(p model.Portfolio, side model.Side, assetID, symbol string, quantity, price float64, posType model.PositionType, leverage float64, agentID, reason string) model.Portfolio {
	return executeTrade(p, side, assetID, symbol, quantity, price, posType, leverage, agentID, reason)
}

func executeTrade(p model.Portfolio, side model.Side, assetID, symbol string, quantity, price float64, posType model.PositionType, leverage float64, agentID, reason string) model.Portfolio {
	if leverage < 1 {
		leverage = 1
	}
	now := time.Now().UnixMilli()

	trade := model.Trade{
		ID:           uuid.NewString(),
		AssetID:      assetID,
		Symbol:       symbol,
		Side:         side,
		PositionType: posType,
		Quantity:     quantity,
		Price:        price,
		Timestamp:    now,
		Total:        quantity * price,
		Leverage:     leverage,
		AgentID:      agentID,
		Reason:       reason,
	}

	next := p
	next.Positions = clonePositions(p.Positions)

	if side == model.SideBuy {
		next.Cash -= trade.Total / leverage

		if pos := next.FindPosition(assetID, posType); pos != nil {
			totalQty := pos.Quantity + quantity
			totalCost := pos.Quantity*pos.AvgEntryPrice + trade.Total
			pos.Quantity = totalQty
			pos.AvgEntryPrice = totalCost / totalQty
			pos.CurrentPrice = price
			pos.UnrealizedPnL, _ = PositionPnL(*pos)
		} else {
			next.Positions = append(next.Positions, model.Position{
				AssetID:       assetID,
				Symbol:        symbol,
				Quantity:      quantity,
				AvgEntryPrice: price,
				CurrentPrice:  price,
				Type:          posType,
				Leverage:      leverage,
				OpenedAt:      now,
			})
		}
	} else {
		if pos := next.FindPosition(assetID, posType); pos != nil {
			pnl, _ := PositionPnL(*pos)
			trade.PnL = pnl
			trade.HasPnL = true

			next.Cash += trade.Total / leverage
			next.TotalPnL += pnl

			pos.Quantity -= quantity
			if pos.Quantity <= 0 {
				next.Positions = removePosition(next.Positions, assetID, posType)
			}
		}
	}

	next.Trades = append(append([]model.Trade{}, p.Trades...), trade)

	value := PortfolioValue(next, nil)
	drawdown := (next.StartingBalance - value) / next.StartingBalance * 100
	if drawdown < 0 {
		drawdown = 0
	}
	next.CurrentDrawdown = drawdown
	if drawdown > next.MaxDrawdown {
		next.MaxDrawdown = drawdown
	}

	return next
}

// MarkPrices replaces the current mark on every position whose assetID has
// an entry in prices; positions without a fresh price keep their last mark.
func MarkPrices(p model.Portfolio, prices map[string]float64) model.Portfolio {
	next := p
	next.Positions = clonePositions(p.Positions)
	for i := range next.Positions {
		if px, ok := prices[next.Positions[i].AssetID]; ok {
			next.Positions[i].CurrentPrice = px
			next.Positions[i].UnrealizedPnL, _ = PositionPnL(next.Positions[i])
		}
	}
	return next
}

// PortfolioValue is cash plus mark-to-market of all open positions. A nil
// prices map values every position at its last mark. Shorts are valued as
// quantity * (2*avgEntry - current) * leverage to reflect inverse exposure.
func PortfolioValue(p model.Portfolio, prices map[string]float64) float64 {
	value := p.Cash
	for i := range p.Positions {
		pos := p.Positions[i]
		px := pos.CurrentPrice
		if fresh, ok := prices[pos.AssetID]; ok {
			px = fresh
		}
		if pos.Type == model.PositionLong {
			value += pos.Quantity * px * pos.Leverage
		} else {
			value += pos.Quantity * (2*pos.AvgEntryPrice - px) * pos.Leverage
		}
	}
	return value
}

// PositionPnL returns the unrealized P&L of a position at its current
// mark, and that P&L as a percentage of cost basis.
func PositionPnL(pos model.Position) (pnl, pnlPercent float64) {
	costBasis := pos.Quantity * pos.AvgEntryPrice * pos.Leverage
	if pos.Type == model.PositionLong {
		pnl = pos.Quantity*pos.CurrentPrice*pos.Leverage - costBasis
	} else {
		pnl = costBasis - pos.Quantity*pos.CurrentPrice*pos.Leverage
	}
	if costBasis != 0 {
		pnlPercent = pnl / costBasis * 100
	}
	return pnl, pnlPercent
}

func clonePositions(in []model.Position) []model.Position {
	out := make([]model.Position, len(in))
	copy(out, in)
	return out
}

func removePosition(in []model.Position, assetID string, posType model.PositionType) []model.Position {
	out := make([]model.Position, 0, len(in))
	for _, pos := range in {
		if pos.AssetID == assetID && pos.Type == posType {
			continue
		}
		out = append(out, pos)
	}
	return out
}
