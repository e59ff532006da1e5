package simulator

import (
	"fmt"
	"strings"

	"botty/internal/domain/ledger"
	"botty/internal/domain/model"
)

const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

func colorize(s, c string) string { return c + s + ansiReset }

type Formatter struct{}

func NewFormatter() *Formatter { return &Formatter{} }

type RenderMode int

const (
	RenderLive RenderMode = iota
	RenderSnapshot
)

// Render produces one status line: per-asset marks with direction
// colors, then the portfolio summary.
func (f *Formatter) Render(st *State, p model.Portfolio, mode RenderMode) string {
	assets := st.Assets()
	prices := st.Prices()

	var sb strings.Builder
	if mode == RenderLive {
		sb.WriteString("\r")
	}

	sb.WriteString(colorize("[BOTTY] ", ansiDim))

	for i, a := range assets {
		if i > 0 {
			sb.WriteString(colorize("  ||  ", ansiDim))
		}
		px := "--"
		col := ansiYellow
		if dir, seen := st.dirOf(a.ID); seen {
			px = fmt.Sprintf("%.2f", a.CurrentPrice)
			switch dir {
			case DirUp:
				col = ansiGreen
			case DirDown:
				col = ansiRed
			}
		}
		sb.WriteString(a.Symbol)
		sb.WriteString(" ")
		sb.WriteString(colorize(px, col))
	}

	equity := ledger.PortfolioValue(p, prices)
	pnl := equity - p.StartingBalance
	pnlCol := ansiYellow
	switch {
	case pnl > 0:
		pnlCol = ansiGreen
	case pnl < 0:
		pnlCol = ansiRed
	}

	sb.WriteString(colorize("  ||  ", ansiDim))
	sb.WriteString(fmt.Sprintf("cash=%.2f eq=%.2f ", p.Cash, equity))
	sb.WriteString(colorize(fmt.Sprintf("pnl=%+.2f", pnl), pnlCol))
	sb.WriteString(fmt.Sprintf(" dd=%.2f%% pos=%d", p.CurrentDrawdown, len(p.Positions)))

	if mode == RenderLive {
		sb.WriteString(ansiClearEOL)
	}
	return sb.String()
}
