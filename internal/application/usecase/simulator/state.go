package simulator

import (
	"strings"
	"sync"

	"botty/internal/application/port"
	"botty/internal/domain/indicator"
	"botty/internal/domain/model"
)

type Dir int

const (
	DirSame Dir = 0
	DirUp   Dir = +1
	DirDown Dir = -1
)

type assetState struct {
	asset model.Asset
	dir   Dir
	seen  bool
}

// State holds the latest price and rolling history for every tracked
// asset. Ticks arrive keyed by currency pair; everything else in the
// system addresses assets by id.
type State struct {
	mu sync.Mutex

	order        []string
	byID         map[string]*assetState
	byPair       map[string]string
	historyLimit int
}

func NewState(assets []model.Asset, historyLimit int) *State {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	order := make([]string, 0, len(assets))
	byID := make(map[string]*assetState, len(assets))
	byPair := make(map[string]string, len(assets))
	for _, a := range assets {
		if a.ID == "" || a.CurrencyPair == "" {
			continue
		}
		order = append(order, a.ID)
		byID[a.ID] = &assetState{asset: a}
		byPair[strings.ToUpper(a.CurrencyPair)] = a.ID
	}
	return &State{order: order, byID: byID, byPair: byPair, historyLimit: historyLimit}
}

// Pairs lists the currency pairs to subscribe feeds with.
func (s *State) Pairs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].asset.CurrencyPair)
	}
	return out
}

// Apply folds one tick into the state. Returns whether the display
// should refresh, i.e. the price actually changed.
func (s *State) Apply(t port.Tick) bool {
	pair := strings.ToUpper(strings.TrimSpace(t.Symbol))
	if pair == "" || t.PriceNum <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byPair[pair]
	if !ok {
		return false
	}
	st := s.byID[id]

	prev := st.asset.CurrentPrice
	if st.seen && prev == t.PriceNum {
		return false
	}

	switch {
	case !st.seen || t.PriceNum == prev:
		st.dir = DirSame
	case t.PriceNum > prev:
		st.dir = DirUp
	default:
		st.dir = DirDown
	}
	st.seen = true
	st.asset.CurrentPrice = t.PriceNum
	st.asset.History = append(st.asset.History, model.PricePoint{Timestamp: t.Ts, Price: t.PriceNum})
	if n := len(st.asset.History); n > s.historyLimit {
		st.asset.History = st.asset.History[n-s.historyLimit:]
	}
	st.asset.Volatility = indicator.Volatility(st.asset.History)
	return true
}

// Assets returns deep copies of every tracked asset, in configured
// order.
func (s *State) Assets() []model.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Asset, 0, len(s.order))
	for _, id := range s.order {
		a := s.byID[id].asset
		a.History = append([]model.PricePoint(nil), a.History...)
		out = append(out, a)
	}
	return out
}

// Prices returns the latest mark per asset id, skipping assets that
// have not ticked yet.
func (s *State) Prices() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.order))
	for _, id := range s.order {
		st := s.byID[id]
		if st.seen {
			out[id] = st.asset.CurrentPrice
		}
	}
	return out
}

func (s *State) dirOf(id string) (Dir, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.byID[id]
	if !ok {
		return DirSame, false
	}
	return st.dir, st.seen
}
