package risk

import (
	"fmt"

	"botty/internal/domain/model"
)

// Manager enforces portfolio-wide limits on top of the per-trade
// feasibility checks. A zero limit disables that check.
type Manager struct {
	MaxPositionValue  float64 // notional per position, USD
	MaxTotalPositions int
	MaxDrawdownPct    float64 // entries halt at or above this
}

func NewManager(maxPositionValue float64, maxTotalPositions int, maxDrawdownPct float64) *Manager {
	return &Manager{
		MaxPositionValue:  maxPositionValue,
		MaxTotalPositions: maxTotalPositions,
		MaxDrawdownPct:    maxDrawdownPct,
	}
}

// Check validates one prospective trade against the current snapshot.
// Sells are always allowed, they only ever reduce exposure.
func (m *Manager) Check(p model.Portfolio, side model.Side, assetID string, quantity, price, leverage float64, posType model.PositionType) error {
	if m == nil || side != model.SideBuy {
		return nil
	}
	if leverage < 1 {
		leverage = 1
	}

	if m.MaxDrawdownPct > 0 && p.CurrentDrawdown >= m.MaxDrawdownPct {
		return fmt.Errorf("drawdown %.2f%% at or above limit %.2f%%", p.CurrentDrawdown, m.MaxDrawdownPct)
	}

	existing := p.FindPosition(assetID, posType)
	if m.MaxTotalPositions > 0 && existing == nil && len(p.Positions) >= m.MaxTotalPositions {
		return fmt.Errorf("open positions at limit %d", m.MaxTotalPositions)
	}

	if m.MaxPositionValue > 0 {
		notional := quantity * price * leverage
		if existing != nil {
			notional += existing.Quantity * existing.AvgEntryPrice * existing.Leverage
		}
		if notional > m.MaxPositionValue {
			return fmt.Errorf("position notional %.2f exceeds limit %.2f", notional, m.MaxPositionValue)
		}
	}
	return nil
}
