package service

import (
	"fmt"
	"strings"

	"botty/internal/domain/indicator"
	"botty/internal/domain/model"
)

type modeParameters struct {
	Style    string
	Criteria []string
}

func parametersFor(mode model.TradingMode) modeParameters {
	switch mode {
	case model.ModeConservative:
		return modeParameters{
			Style: "Minimal risk, long-term positions, high confidence threshold",
			Criteria: []string{
				"Only trade when confidence is above 80",
				"Prefer holding over marginal entries",
				"Avoid assets in a volatile downtrend",
				"Keep leverage at 1x",
			},
		}
	case model.ModeAggressive:
		return modeParameters{
			Style: "High risk/reward, short-term trades, quick execution",
			Criteria: []string{
				"Act on momentum even at moderate confidence",
				"Short overbought assets, buy oversold ones",
				"Leverage up to the configured maximum is acceptable",
				"Cut losers quickly, let winners run",
			},
		}
	default:
		return modeParameters{
			Style: "Balanced risk/reward, medium-term holds",
			Criteria: []string{
				"Trade when confidence is above 65",
				"Weigh trend and momentum equally",
				"Moderate position sizes relative to cash",
				"Leverage above 2x only on strong setups",
			},
		}
	}
}

// buildPrompt renders the decision prompt for one asset. The response
// format block pins the JSON keys the parser expects.
func buildPrompt(asset model.Asset, agent model.AgentConfig, p model.Portfolio) string {
	params := parametersFor(agent.Mode)
	levels := indicator.SupportResistance(asset.History, asset.CurrentPrice)

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, an autonomous crypto trading agent.\n\n", agent.Name)
	fmt.Fprintf(&b, "TRADING MODE: %s\n%s\n\n", agent.Mode, params.Style)

	fmt.Fprintf(&b, "ASSET: %s (%s)\n", asset.Name, asset.Symbol)
	fmt.Fprintf(&b, "Current price: %.2f\n\n", asset.CurrentPrice)

	b.WriteString("TECHNICAL ANALYSIS:\n")
	fmt.Fprintf(&b, "- RSI(14): %.1f\n", indicator.RSI(asset.History))
	fmt.Fprintf(&b, "- Trend: %s\n", indicator.Trend(asset.History))
	fmt.Fprintf(&b, "- Momentum: %.2f%%\n", indicator.Momentum(asset.History))
	fmt.Fprintf(&b, "- Volatility: %.2f%% (%s)\n", indicator.Volatility(asset.History)*100, indicator.VolatilityTrend(asset.History))
	fmt.Fprintf(&b, "- Price strength: %s\n", indicator.PriceStrength(asset.History))
	macd := indicator.MACD(asset.History)
	fmt.Fprintf(&b, "- MACD histogram: %+.4f\n", macd.Histogram)
	bands := indicator.Bollinger(asset.History)
	fmt.Fprintf(&b, "- Bollinger: lower %.2f / mid %.2f / upper %.2f\n", bands.Lower, bands.Middle, bands.Upper)
	fmt.Fprintf(&b, "- Support: %.2f / Resistance: %.2f\n\n", levels.Support, levels.Resistance)

	b.WriteString("PORTFOLIO STATE:\n")
	fmt.Fprintf(&b, "- Cash: %.2f\n", p.Cash)
	fmt.Fprintf(&b, "- Open positions: %d\n", len(p.Positions))
	if pos := p.FindPosition(asset.ID, model.PositionLong); pos != nil {
		fmt.Fprintf(&b, "- Long %s: %.6f @ %.2f\n", asset.Symbol, pos.Quantity, pos.AvgEntryPrice)
	}
	if pos := p.FindPosition(asset.ID, model.PositionShort); pos != nil {
		fmt.Fprintf(&b, "- Short %s: %.6f @ %.2f\n", asset.Symbol, pos.Quantity, pos.AvgEntryPrice)
	}
	fmt.Fprintf(&b, "- Current drawdown: %.2f%%\n\n", p.CurrentDrawdown)

	b.WriteString("RISK PARAMETERS:\n")
	fmt.Fprintf(&b, "- Max position size: %.0f%% of cash\n", agent.MaxPositionSize)
	fmt.Fprintf(&b, "- Max leverage: %.0fx\n", agent.MaxLeverage)
	fmt.Fprintf(&b, "- Stop loss: %.1f%% / Take profit: %.1f%%\n\n", agent.StopLossPct, agent.TakeProfitPct)

	b.WriteString("DECISION CRITERIA:\n")
	for _, c := range params.Criteria {
		fmt.Fprintf(&b, "- %s\n", c)
	}

	b.WriteString("\nRespond with a single JSON object:\n")
	b.WriteString(`{"action":"buy|sell|hold","confidence":0-100,"reasoning":"...","position_type":"long|short","suggested_quantity":0.0,"take_profit":0.0,"stop_loss":0.0,"leverage":1}`)
	b.WriteString("\n")

	return b.String()
}
