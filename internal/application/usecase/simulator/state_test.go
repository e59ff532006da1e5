package simulator

import (
	"strings"
	"testing"

	"botty/internal/application/port"
	"botty/internal/domain/model"
)

func btcAsset() model.Asset {
	return model.Asset{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", CurrencyPair: "BTC-USD"}
}

func ethAsset() model.Asset {
	return model.Asset{ID: "ethereum", Symbol: "ETH", Name: "Ethereum", CurrencyPair: "ETH-USD"}
}

func TestStateApplyMapsPairToAsset(t *testing.T) {
	st := NewState([]model.Asset{btcAsset(), ethAsset()}, 100)

	if !st.Apply(port.Tick{Source: "SIM", Symbol: "btc-usd", PriceNum: 50000, Ts: 1}) {
		t.Fatal("first tick should report change")
	}
	prices := st.Prices()
	if prices["bitcoin"] != 50000 {
		t.Errorf("bitcoin price = %v", prices["bitcoin"])
	}
	if _, ok := prices["ethereum"]; ok {
		t.Error("ethereum has a price before any tick")
	}
}

func TestStateApplyIgnoresUnknownAndInvalid(t *testing.T) {
	st := NewState([]model.Asset{btcAsset()}, 100)

	if st.Apply(port.Tick{Symbol: "DOGE-USD", PriceNum: 1}) {
		t.Error("unknown pair reported change")
	}
	if st.Apply(port.Tick{Symbol: "BTC-USD", PriceNum: 0}) {
		t.Error("zero price reported change")
	}
	if st.Apply(port.Tick{Symbol: "", PriceNum: 5}) {
		t.Error("empty pair reported change")
	}
}

func TestStateApplyDirectionAndDedup(t *testing.T) {
	st := NewState([]model.Asset{btcAsset()}, 100)

	st.Apply(port.Tick{Symbol: "BTC-USD", PriceNum: 50000, Ts: 1})
	if dir, _ := st.dirOf("bitcoin"); dir != DirSame {
		t.Errorf("first tick dir = %v, want same", dir)
	}
	st.Apply(port.Tick{Symbol: "BTC-USD", PriceNum: 50100, Ts: 2})
	if dir, _ := st.dirOf("bitcoin"); dir != DirUp {
		t.Errorf("dir = %v, want up", dir)
	}
	if st.Apply(port.Tick{Symbol: "BTC-USD", PriceNum: 50100, Ts: 3}) {
		t.Error("unchanged price reported change")
	}
	st.Apply(port.Tick{Symbol: "BTC-USD", PriceNum: 50050, Ts: 4})
	if dir, _ := st.dirOf("bitcoin"); dir != DirDown {
		t.Errorf("dir = %v, want down", dir)
	}
}

func TestStateHistoryCapped(t *testing.T) {
	st := NewState([]model.Asset{btcAsset()}, 5)

	for i := 0; i < 20; i++ {
		st.Apply(port.Tick{Symbol: "BTC-USD", PriceNum: 50000 + float64(i), Ts: int64(i)})
	}
	assets := st.Assets()
	if len(assets[0].History) != 5 {
		t.Fatalf("history length = %d, want 5", len(assets[0].History))
	}
	if assets[0].History[4].Price != 50019 {
		t.Errorf("newest point = %v, want 50019", assets[0].History[4].Price)
	}
	if assets[0].History[0].Price != 50015 {
		t.Errorf("oldest kept point = %v, want 50015", assets[0].History[0].Price)
	}
}

func TestStateAssetsReturnsCopies(t *testing.T) {
	st := NewState([]model.Asset{btcAsset()}, 100)
	st.Apply(port.Tick{Symbol: "BTC-USD", PriceNum: 50000, Ts: 1})

	assets := st.Assets()
	assets[0].History[0].Price = 1
	assets[0].CurrentPrice = 1

	again := st.Assets()
	if again[0].History[0].Price != 50000 || again[0].CurrentPrice != 50000 {
		t.Error("mutating returned assets leaked into state")
	}
}

func TestFormatterRendersPortfolioSummary(t *testing.T) {
	st := NewState([]model.Asset{btcAsset()}, 100)
	st.Apply(port.Tick{Symbol: "BTC-USD", PriceNum: 50000, Ts: 1})

	line := NewFormatter().Render(st, model.NewPortfolio(10000), RenderSnapshot)
	for _, want := range []string{"BTC", "50000.00", "cash=10000.00", "eq=10000.00", "dd=0.00%", "pos=0"} {
		if !strings.Contains(line, want) {
			t.Errorf("line missing %q: %s", want, line)
		}
	}
}

func TestFormatterPlaceholderBeforeFirstTick(t *testing.T) {
	st := NewState([]model.Asset{btcAsset()}, 100)
	line := NewFormatter().Render(st, model.NewPortfolio(10000), RenderSnapshot)
	if !strings.Contains(line, "--") {
		t.Errorf("expected placeholder in %q", line)
	}
}
