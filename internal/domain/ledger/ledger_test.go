package ledger

import (
	"math"
	"testing"

	"botty/internal/domain/model"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCanExecuteRejectsNonPositiveQuantity(t *testing.T) {
	p := model.NewPortfolio(10000)

	res := CanExecute(p, model.SideBuy, "BTC", 0, 50000)
	if res.OK {
		t.Errorf("expected rejection for zero quantity")
	}
	res = CanExecute(p, model.SideSell, "BTC", -1, 50000)
	if res.OK {
		t.Errorf("expected rejection for negative quantity")
	}
}

func TestCanExecuteInsufficientFunds(t *testing.T) {
	p := model.NewPortfolio(10000)

	res := CanExecute(p, model.SideBuy, "BTC", 1, 50000)
	if res.OK {
		t.Fatalf("expected insufficient funds, got ok")
	}
	if res.Reason == "" {
		t.Errorf("expected a reason string")
	}
}

func TestCanExecuteInsufficientHoldings(t *testing.T) {
	p := model.NewPortfolio(10000)

	res := CanExecute(p, model.SideSell, "BTC", 0.1, 50000)
	if res.OK {
		t.Errorf("expected rejection with no open position")
	}

	p = ExecuteTrade(p, model.SideBuy, "BTC", "BTC", 0.1, 50000, model.PositionLong, 1)
	res = CanExecute(p, model.SideSell, "BTC", 0.2, 50000)
	if res.OK {
		t.Errorf("expected rejection selling more than held")
	}
	res = CanExecute(p, model.SideSell, "BTC", 0.1, 50000)
	if !res.OK {
		t.Errorf("expected ok selling exact holdings, got %q", res.Reason)
	}
}

func TestExecuteTradeBuyOpensPosition(t *testing.T) {
	p := model.NewPortfolio(10000)

	next := ExecuteTrade(p, model.SideBuy, "BTC", "BTC", 0.1, 50000, model.PositionLong, 1)

	if !almostEqual(next.Cash, 5000) {
		t.Errorf("expected cash 5000, got %v", next.Cash)
	}
	if len(next.Positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(next.Positions))
	}
	pos := next.Positions[0]
	if pos.AssetID != "BTC" || !almostEqual(pos.Quantity, 0.1) || !almostEqual(pos.AvgEntryPrice, 50000) {
		t.Errorf("unexpected position %+v", pos)
	}
	if len(next.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(next.Trades))
	}
	if next.Trades[0].ID == "" {
		t.Errorf("expected trade id to be set")
	}
	if !almostEqual(next.Trades[0].Total, 5000) {
		t.Errorf("expected total 5000, got %v", next.Trades[0].Total)
	}

	// input snapshot untouched
	if len(p.Positions) != 0 || len(p.Trades) != 0 || !almostEqual(p.Cash, 10000) {
		t.Errorf("input snapshot was mutated: %+v", p)
	}
}

func TestExecuteTradeBuyAveragesIntoExisting(t *testing.T) {
	p := model.NewPortfolio(100000)

	p = ExecuteTrade(p, model.SideBuy, "BTC", "BTC", 0.1, 50000, model.PositionLong, 1)
	p = ExecuteTrade(p, model.SideBuy, "BTC", "BTC", 0.3, 60000, model.PositionLong, 1)

	if len(p.Positions) != 1 {
		t.Fatalf("expected 1 merged position, got %d", len(p.Positions))
	}
	pos := p.Positions[0]
	if !almostEqual(pos.Quantity, 0.4) {
		t.Errorf("expected quantity 0.4, got %v", pos.Quantity)
	}
	// volume-weighted: (0.1*50000 + 0.3*60000) / 0.4 = 57500
	if !almostEqual(pos.AvgEntryPrice, 57500) {
		t.Errorf("expected avg entry 57500, got %v", pos.AvgEntryPrice)
	}
	if len(p.Trades) != 2 {
		t.Errorf("expected 2 trades, got %d", len(p.Trades))
	}
}

func TestExecuteTradeLongAndShortAreIndependent(t *testing.T) {
	p := model.NewPortfolio(100000)

	p = ExecuteTrade(p, model.SideBuy, "BTC", "BTC", 0.1, 50000, model.PositionLong, 1)
	p = ExecuteTrade(p, model.SideBuy, "BTC", "BTC", 0.2, 50000, model.PositionShort, 1)

	if len(p.Positions) != 2 {
		t.Fatalf("expected independent long and short positions, got %d", len(p.Positions))
	}
}

func TestExecuteTradeSellFullClose(t *testing.T) {
	p := model.NewPortfolio(10000)

	p = ExecuteTrade(p, model.SideBuy, "BTC", "BTC", 0.1, 50000, model.PositionLong, 1)
	p = MarkPrices(p, map[string]float64{"BTC": 60000})
	p = ExecuteTrade(p, model.SideSell, "BTC", "BTC", 0.1, 60000, model.PositionLong, 1)

	// realized pnl = (60000-50000)*0.1 = 1000; cash = 5000 + 6000 = 11000
	if !almostEqual(p.Cash, 11000) {
		t.Errorf("expected cash 11000, got %v", p.Cash)
	}
	if !almostEqual(p.TotalPnL, 1000) {
		t.Errorf("expected totalPnL 1000, got %v", p.TotalPnL)
	}
	if len(p.Positions) != 0 {
		t.Errorf("expected position removed after full close, got %d", len(p.Positions))
	}
	last := p.Trades[len(p.Trades)-1]
	if !last.HasPnL || !almostEqual(last.PnL, 1000) {
		t.Errorf("expected realized pnl 1000 on trade, got %+v", last)
	}
}

func TestExecuteTradePartialSellKeepsPosition(t *testing.T) {
	p := model.NewPortfolio(100000)

	p = ExecuteTrade(p, model.SideBuy, "ETH", "ETH", 10, 2000, model.PositionLong, 1)
	p = ExecuteTrade(p, model.SideSell, "ETH", "ETH", 4, 2000, model.PositionLong, 1)

	if len(p.Positions) != 1 {
		t.Fatalf("expected position to remain after partial sell")
	}
	if !almostEqual(p.Positions[0].Quantity, 6) {
		t.Errorf("expected quantity 6, got %v", p.Positions[0].Quantity)
	}
}

func TestExecuteTradeLeverageReducesCashRequired(t *testing.T) {
	p := model.NewPortfolio(10000)

	p = ExecuteTrade(p, model.SideBuy, "BTC", "BTC", 0.1, 50000, model.PositionLong, 5)

	// cost = total / leverage = 5000 / 5 = 1000
	if !almostEqual(p.Cash, 9000) {
		t.Errorf("expected cash 9000 with 5x leverage, got %v", p.Cash)
	}
}

func TestDrawdownNeverNegativeAndMaxMonotone(t *testing.T) {
	p := model.NewPortfolio(10000)

	p = ExecuteTrade(p, model.SideBuy, "BTC", "BTC", 0.1, 50000, model.PositionLong, 1)
	p = MarkPrices(p, map[string]float64{"BTC": 40000})
	p = ExecuteTrade(p, model.SideSell, "BTC", "BTC", 0.1, 40000, model.PositionLong, 1)

	if p.CurrentDrawdown < 0 {
		t.Errorf("drawdown must never be negative, got %v", p.CurrentDrawdown)
	}
	if !almostEqual(p.CurrentDrawdown, 10) {
		t.Errorf("expected 10%% drawdown after 1000 loss, got %v", p.CurrentDrawdown)
	}
	maxSoFar := p.MaxDrawdown

	// recover: a gain clamps current drawdown to 0 but max stays
	p = ExecuteTrade(p, model.SideBuy, "BTC", "BTC", 0.1, 40000, model.PositionLong, 1)
	p = MarkPrices(p, map[string]float64{"BTC": 80000})
	p = ExecuteTrade(p, model.SideSell, "BTC", "BTC", 0.1, 80000, model.PositionLong, 1)

	if p.CurrentDrawdown != 0 {
		t.Errorf("expected drawdown clamped to 0 after recovery, got %v", p.CurrentDrawdown)
	}
	if p.MaxDrawdown < maxSoFar {
		t.Errorf("maxDrawdown must be monotone: was %v, now %v", maxSoFar, p.MaxDrawdown)
	}
}

func TestMarkPricesKeepsStaleMarks(t *testing.T) {
	p := model.NewPortfolio(100000)

	p = ExecuteTrade(p, model.SideBuy, "BTC", "BTC", 0.1, 50000, model.PositionLong, 1)
	p = ExecuteTrade(p, model.SideBuy, "ETH", "ETH", 10, 2000, model.PositionLong, 1)

	next := MarkPrices(p, map[string]float64{"BTC": 55000})

	if !almostEqual(next.FindPosition("BTC", model.PositionLong).CurrentPrice, 55000) {
		t.Errorf("expected BTC marked to 55000")
	}
	if !almostEqual(next.FindPosition("ETH", model.PositionLong).CurrentPrice, 2000) {
		t.Errorf("expected ETH to keep its last mark")
	}
	// input untouched
	if !almostEqual(p.FindPosition("BTC", model.PositionLong).CurrentPrice, 50000) {
		t.Errorf("input snapshot was mutated")
	}
}

func TestPositionPnLShort(t *testing.T) {
	pos := model.Position{
		AssetID:       "BTC",
		Quantity:      0.1,
		AvgEntryPrice: 50000,
		CurrentPrice:  45000,
		Type:          model.PositionShort,
		Leverage:      2,
	}
	pnl, pct := PositionPnL(pos)
	// (50000-45000)*0.1*2 = 1000; basis = 0.1*50000*2 = 10000 -> 10%
	if !almostEqual(pnl, 1000) {
		t.Errorf("expected short pnl 1000, got %v", pnl)
	}
	if !almostEqual(pct, 10) {
		t.Errorf("expected 10%%, got %v", pct)
	}
}

func TestPortfolioValueShortUsesInverseExposure(t *testing.T) {
	p := model.NewPortfolio(10000)
	p = ExecuteTrade(p, model.SideBuy, "BTC", "BTC", 0.1, 50000, model.PositionShort, 1)

	// value = cash + qty*(2*entry - current) = 5000 + 0.1*(100000-45000) = 10500
	v := PortfolioValue(p, map[string]float64{"BTC": 45000})
	if !almostEqual(v, 10500) {
		t.Errorf("expected 10500, got %v", v)
	}
}

func TestExecuteAgentTradeStampsAttribution(t *testing.T) {
	p := model.NewPortfolio(10000)
	p = ExecuteAgentTrade(p, model.SideBuy, "BTC", "BTC", 0.01, 50000, model.PositionLong, 1, "agent-1", "RSI oversold")

	trade := p.Trades[0]
	if trade.AgentID != "agent-1" || trade.Reason != "RSI oversold" {
		t.Errorf("expected agent attribution, got %+v", trade)
	}
}
