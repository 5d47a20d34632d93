// Package market keeps the latest per-symbol view (bias, price, indicators)
// that the bot commands and the API answer from.
package market

import (
	"sync"
	"time"

	"SignalSentinel/internal/calculator"
	"SignalSentinel/internal/model"
)

// DayWindow returns how many tf candles span 24 hours: 96 for 15m.
func DayWindow(tf model.Timeframe) int {
	d, err := tf.Duration()
	if err != nil || d > 24*time.Hour {
		return 1
	}
	return int(24 * time.Hour / d)
}

// Board holds the latest bias and quote per symbol. It is written by the
// symbol tasks and read concurrently by queries.
type Board struct {
	mu     sync.RWMutex
	bias   map[string]model.Bias
	quotes map[string]model.Quote
}

// NewBoard creates an empty Board.
func NewBoard() *Board {
	return &Board{
		bias:   make(map[string]model.Bias),
		quotes: make(map[string]model.Quote),
	}
}

// SetBias records b unless a newer bias is already held.
func (b *Board) SetBias(bias model.Bias) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.bias[bias.Symbol]; ok && cur.EvaluatedAt.After(bias.EvaluatedAt) {
		return
	}
	b.bias[bias.Symbol] = bias
}

// SetQuote records q unless a newer quote is already held.
func (b *Board) SetQuote(q model.Quote) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.quotes[q.Symbol]; ok && cur.Timestamp.After(q.Timestamp) {
		return
	}
	b.quotes[q.Symbol] = q
}

func (b *Board) Bias(symbol string) (model.Bias, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.bias[symbol]
	return v, ok
}

func (b *Board) Quote(symbol string) (model.Quote, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.quotes[symbol]
	return v, ok
}

// BuildQuote derives the quote for symbol from its closed entry candles and
// their snapshots. The 24h fields stay nil until a day of candles exists.
func BuildQuote(symbol string, candles []model.Candle, snaps []model.IndicatorSnapshot, tf model.Timeframe) (model.Quote, error) {
	if len(candles) == 0 || len(snaps) != len(candles) {
		return model.Quote{}, model.ErrInsufficientHistory
	}
	last := candles[len(candles)-1]
	q := model.Quote{
		Symbol:    symbol,
		Price:     last.Close,
		Snapshot:  snaps[len(snaps)-1],
		Timestamp: last.CloseTime(tf),
	}
	if ws, err := calculator.Window(candles, DayWindow(tf)); err == nil {
		q.Change24h = ws.ChangePct
		q.Volume24h = model.Float(ws.Volume)
		q.High24h = model.Float(ws.High)
		q.Low24h = model.Float(ws.Low)
		q.RangePosition24h = model.Float(calculator.Position(last.Close, ws.High, ws.Low))
	}
	return q, nil
}
