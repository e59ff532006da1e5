package indicator

import (
	"math"
	"sort"

	"botty/internal/domain/model"
)

// Technical indicators over price history. All functions are pure and
// return neutral defaults when the history is too short to compute.

// RSI computes a 14-period relative strength index. Returns 50 when the
// history is too short.
func RSI(history []model.PricePoint) float64 {
	if len(history) < 15 {
		return 50
	}

	changes := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		changes = append(changes, history[i].Price-history[i-1].Price)
	}
	recent := changes[len(changes)-14:]

	var gains, losses float64
	for _, c := range recent {
		if c > 0 {
			gains += c
		} else {
			losses += -c
		}
	}
	gains /= 14
	losses /= 14

	if losses == 0 {
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}

// Trend compares the average of the last 10 points against the 10 before
// them and classifies the move.
func Trend(history []model.PricePoint) string {
	if len(history) < 3 {
		return "neutral"
	}

	recent := tail(history, 10)
	older := window(history, 20, 10)
	if len(recent) == 0 || len(older) == 0 {
		return "neutral"
	}

	diff := (avg(recent) - avg(older)) / avg(older) * 100
	switch {
	case diff > 2:
		return "strong uptrend"
	case diff > 0.5:
		return "uptrend"
	case diff < -2:
		return "strong downtrend"
	case diff < -0.5:
		return "downtrend"
	default:
		return "neutral"
	}
}

// Momentum is the percent change of the last 5-point average versus the
// 5 points before them.
func Momentum(history []model.PricePoint) float64 {
	if len(history) < 10 {
		return 0
	}
	recent := tail(history, 5)
	older := window(history, 10, 5)
	if len(recent) == 0 || len(older) == 0 {
		return 0
	}
	return (avg(recent) - avg(older)) / avg(older) * 100
}

// VolatilityTrend classifies whether realized volatility is picking up.
func VolatilityTrend(history []model.PricePoint) string {
	if len(history) < 30 {
		return "stable"
	}
	recentVol := StdDev(pricesOf(tail(history, 15)))
	olderVol := StdDev(pricesOf(window(history, 30, 15)))
	if olderVol == 0 {
		return "stable"
	}
	change := (recentVol - olderVol) / olderVol * 100
	switch {
	case change > 20:
		return "increasing"
	case change < -20:
		return "decreasing"
	default:
		return "stable"
	}
}

// StdDev is the population standard deviation.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// Levels holds support/resistance estimates as the 10th and 90th price
// percentiles of the observed history.
type Levels struct {
	Support            float64
	Resistance         float64
	DistFromSupport    float64 // percent
	DistFromResistance float64 // percent
}

// SupportResistance estimates support and resistance levels. With under
// 20 points it falls back to +/-5% bands around the current price.
func SupportResistance(history []model.PricePoint, currentPrice float64) Levels {
	if len(history) < 20 {
		return Levels{
			Support:            currentPrice * 0.95,
			Resistance:         currentPrice * 1.05,
			DistFromSupport:    5,
			DistFromResistance: 5,
		}
	}

	prices := pricesOf(history)
	sort.Float64s(prices)
	support := prices[len(prices)/10]
	resistance := prices[len(prices)*9/10]

	return Levels{
		Support:            support,
		Resistance:         resistance,
		DistFromSupport:    (currentPrice - support) / support * 100,
		DistFromResistance: (resistance - currentPrice) / currentPrice * 100,
	}
}

// Returns is the total percent return across the whole history.
func Returns(history []model.PricePoint) float64 {
	if len(history) < 2 {
		return 0
	}
	first := history[0].Price
	last := history[len(history)-1].Price
	return (last - first) / first * 100
}

// PriceStrength classifies the share of up-moves across the last 5 points.
func PriceStrength(history []model.PricePoint) string {
	if len(history) < 5 {
		return "neutral"
	}
	recent := tail(history, 5)
	up := 0
	for i := 1; i < len(recent); i++ {
		if recent[i].Price > recent[i-1].Price {
			up++
		}
	}
	strength := float64(up) / float64(len(recent)-1)
	switch {
	case strength >= 0.75:
		return "strong bullish"
	case strength >= 0.6:
		return "bullish"
	case strength <= 0.25:
		return "strong bearish"
	case strength <= 0.4:
		return "bearish"
	default:
		return "neutral"
	}
}

// MACDResult holds the MACD line, signal line and histogram.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD computes the 12/26 EMA difference with a 9-period signal.
func MACD(history []model.PricePoint) MACDResult {
	if len(history) < 26 {
		return MACDResult{}
	}
	prices := pricesOf(history)
	macd := EMA(prices, 12) - EMA(prices, 26)
	signal := EMA([]float64{macd}, 9)
	return MACDResult{MACD: macd, Signal: signal, Histogram: macd - signal}
}

// EMA computes an exponential moving average seeded with the SMA of the
// first period values. With fewer points than the period it returns the
// last value.
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return prices[len(prices)-1]
	}

	multiplier := 2.0 / float64(period+1)
	ema := 0.0
	for _, p := range prices[:period] {
		ema += p
	}
	ema /= float64(period)

	for _, p := range prices[period:] {
		ema = (p-ema)*multiplier + ema
	}
	return ema
}

// Bands holds Bollinger band levels.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger computes 20-period bands at 2 standard deviations.
func Bollinger(history []model.PricePoint) Bands {
	const period = 20
	const mult = 2.0

	if len(history) < period {
		var current float64
		if len(history) > 0 {
			current = history[len(history)-1].Price
		}
		return Bands{Upper: current * 1.02, Middle: current, Lower: current * 0.98}
	}

	prices := pricesOf(tail(history, period))
	sma := avgPrices(prices)
	sd := StdDev(prices)
	return Bands{Upper: sma + sd*mult, Middle: sma, Lower: sma - sd*mult}
}

// Volatility is the stddev of point-to-point returns, clamped to
// [0.01, 0.05]. It seeds the simulated feed and the agent prompts.
func Volatility(history []model.PricePoint) float64 {
	if len(history) < 2 {
		return 0.02
	}
	returns := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		returns = append(returns, (history[i].Price-history[i-1].Price)/history[i-1].Price)
	}
	sd := StdDev(returns)
	if sd < 0.01 {
		return 0.01
	}
	if sd > 0.05 {
		return 0.05
	}
	return sd
}

func tail(history []model.PricePoint, n int) []model.PricePoint {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// window returns the slice [len-from, len-from+n), clipped to the history.
func window(history []model.PricePoint, from, n int) []model.PricePoint {
	start := len(history) - from
	if start < 0 {
		start = 0
	}
	end := start + n
	if end > len(history) {
		end = len(history)
	}
	return history[start:end]
}

func pricesOf(history []model.PricePoint) []float64 {
	out := make([]float64, len(history))
	for i, p := range history {
		out[i] = p.Price
	}
	return out
}

func avg(points []model.PricePoint) float64 {
	if len(points) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range points {
		sum += p.Price
	}
	return sum / float64(len(points))
}

func avgPrices(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range prices {
		sum += p
	}
	return sum / float64(len(prices))
}
