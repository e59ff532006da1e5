package model

// ========== Trading Models ==========

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// PositionType is the direction of an exposure.
type PositionType string

const (
	PositionLong  PositionType = "long"
	PositionShort PositionType = "short"
)

// Position is one open exposure to an asset in one direction.
// At most one position exists per (AssetID, Type) pair; repeat buys
// average into it.
type Position struct {
	AssetID       string       `json:"asset_id"`
	Symbol        string       `json:"symbol"`
	Quantity      float64      `json:"quantity"`
	AvgEntryPrice float64      `json:"avg_entry_price"` // volume-weighted
	CurrentPrice  float64      `json:"current_price"`   // last observed mark
	Type          PositionType `json:"type"`
	Leverage      float64      `json:"leverage"`
	TakeProfit    float64      `json:"take_profit,omitempty"`
	StopLoss      float64      `json:"stop_loss,omitempty"`
	OpenedAt      int64        `json:"opened_at"` // unix ms
	UnrealizedPnL float64      `json:"unrealized_pnl"`
}

// Trade is an immutable record of one executed order. Trades are the
// audit trail: never mutated or removed after creation.
type Trade struct {
	ID           string       `json:"id"`
	AssetID      string       `json:"asset_id"`
	Symbol       string       `json:"symbol"`
	Side         Side         `json:"side"`
	PositionType PositionType `json:"position_type"`
	Quantity     float64      `json:"quantity"`
	Price        float64      `json:"price"`
	Timestamp    int64        `json:"ts_ms"`
	Total        float64      `json:"total"` // quantity * price
	Leverage     float64      `json:"leverage"`
	PnL          float64      `json:"pnl,omitempty"` // realized, set on closing/reducing trades
	HasPnL       bool         `json:"has_pnl,omitempty"`
	AgentID      string       `json:"agent_id,omitempty"`
	Reason       string       `json:"reason,omitempty"`
}

// Portfolio is the ledger aggregate root. It exclusively owns its
// Positions and Trades; callers must treat snapshots as immutable and
// replace the whole aggregate rather than patching fields in place.
type Portfolio struct {
	Cash            float64    `json:"cash"`
	Positions       []Position `json:"positions"`
	Trades          []Trade    `json:"trades"`
	StartingBalance float64    `json:"starting_balance"`
	MaxDrawdown     float64    `json:"max_drawdown"`     // percent, monotone non-decreasing
	CurrentDrawdown float64    `json:"current_drawdown"` // percent, never negative
	TotalPnL        float64    `json:"total_pnl"`        // running realized P&L
}

// NewPortfolio creates a fresh portfolio with cash = startingBalance.
func NewPortfolio(startingBalance float64) Portfolio {
	return Portfolio{
		Cash:            startingBalance,
		Positions:       []Position{},
		Trades:          []Trade{},
		StartingBalance: startingBalance,
	}
}

// FindPosition returns the open position for (assetID, posType), or nil.
func (p *Portfolio) FindPosition(assetID string, posType PositionType) *Position {
	for i := range p.Positions {
		if p.Positions[i].AssetID == assetID && p.Positions[i].Type == posType {
			return &p.Positions[i]
		}
	}
	return nil
}

// ========== Signal Models ==========

// SignalAction is what an agent recommends doing.
type SignalAction string

const (
	ActionBuy  SignalAction = "buy"
	ActionSell SignalAction = "sell"
	ActionHold SignalAction = "hold"
	ActionClose SignalAction = "close"
)

// TradingSignal is one agent's recommendation for one asset.
type TradingSignal struct {
	Action            SignalAction `json:"action"`
	AssetID           string       `json:"asset_id"`
	Confidence        float64      `json:"confidence"` // 0-100
	Reasoning         string       `json:"reasoning"`
	PositionType      PositionType `json:"position_type"`
	SuggestedQuantity float64      `json:"suggested_quantity"`
	TakeProfit        float64      `json:"take_profit,omitempty"`
	StopLoss          float64      `json:"stop_loss,omitempty"`
	Leverage          float64      `json:"leverage"`
	Timestamp         int64        `json:"ts_ms"`
}

// TradingMode tunes how aggressive an agent's prompt criteria are.
type TradingMode string

const (
	ModeConservative TradingMode = "conservative"
	ModeModerate     TradingMode = "moderate"
	ModeAggressive   TradingMode = "aggressive"
)

// AgentConfig describes one LLM trading agent.
type AgentConfig struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Model           string      `json:"model"` // LLM model name
	Mode            TradingMode `json:"mode"`
	Enabled         bool        `json:"enabled"`
	MaxLeverage     float64     `json:"max_leverage"`
	MaxPositionSize float64     `json:"max_position_size"` // percent of cash
	StopLossPct     float64     `json:"stop_loss_pct"`
	TakeProfitPct   float64     `json:"take_profit_pct"`
	RiskReward      float64     `json:"risk_reward"`
	VolatilityMax   float64     `json:"volatility_max"` // percent
}

// ========== Market Models ==========

// PricePoint is one observation in an asset's price history.
type PricePoint struct {
	Timestamp int64   `json:"ts_ms"`
	Price     float64 `json:"price"`
}

// Asset is a tradable instrument with its recent price history.
type Asset struct {
	ID           string       `json:"id"`
	Symbol       string       `json:"symbol"`
	Name         string       `json:"name"`
	CurrencyPair string       `json:"currency_pair"` // e.g. BTC-USD
	CurrentPrice float64      `json:"current_price"`
	History      []PricePoint `json:"history"`
	Volatility   float64      `json:"volatility"` // stddev of returns, clamped
}
