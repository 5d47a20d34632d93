package market

import (
	"SignalSentinel/internal/model"
)

// MaxRecent bounds every recent-signals query.
const MaxRecent = 100

// SignalSource is the read side of the signal store.
type SignalSource interface {
	Recent(symbol string, limit int) []model.Signal
}

// View answers symbol, signal, bias and price queries for the bot commands
// and the HTTP API.
type View struct {
	symbols []string
	board   *Board
	signals SignalSource
}

// NewView creates a View over the configured symbols.
func NewView(symbols []string, board *Board, signals SignalSource) *View {
	return &View{
		symbols: append([]string(nil), symbols...),
		board:   board,
		signals: signals,
	}
}

// Symbols returns the watched symbols in configured order.
func (v *View) Symbols() []string {
	return append([]string(nil), v.symbols...)
}

// Watched reports whether symbol is configured.
func (v *View) Watched(symbol string) bool {
	for _, s := range v.symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// RecentSignals returns retained signals newest first. limit is clamped to
// 1..MaxRecent.
func (v *View) RecentSignals(symbol string, limit int) []model.Signal {
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}
	return v.signals.Recent(symbol, limit)
}

func (v *View) Bias(symbol string) (model.Bias, bool) { return v.board.Bias(symbol) }

func (v *View) Quote(symbol string) (model.Quote, bool) { return v.board.Quote(symbol) }
