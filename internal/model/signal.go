package model

import (
	"time"

	"github.com/google/uuid"
)

// SignalType is the kind of trade idea.
type SignalType string

const (
	SignalBuy      SignalType = "BUY"
	SignalSell     SignalType = "SELL"
	SignalReversal SignalType = "REVERSAL"
)

// Confidence grades how many corroborating conditions held.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// Valid reports whether c is one of the known grades.
func (c Confidence) Valid() bool {
	return c == ConfidenceLow || c == ConfidenceMedium || c == ConfidenceHigh
}

// BiasClass is the directional classification of a timeframe.
type BiasClass string

const (
	Bullish BiasClass = "BULLISH"
	Bearish BiasClass = "BEARISH"
	Range   BiasClass = "RANGE"
)

// Bias is the classification of the confirmation timeframe at one evaluation.
// EvaluatedAt is the close time of the candle it was computed from.
type Bias struct {
	Symbol         string            `json:"symbol"`
	Timeframe      Timeframe         `json:"timeframe"`
	Classification BiasClass         `json:"bias"`
	Price          float64           `json:"price"`
	Snapshot       IndicatorSnapshot `json:"snapshot"`
	EvaluatedAt    time.Time         `json:"evaluated_at"`
}

// Stale reports whether the bias is older than one timeframe interval at now.
func (b Bias) Stale(now time.Time) bool {
	d, err := b.Timeframe.Duration()
	if err != nil {
		return true
	}
	return now.Sub(b.EvaluatedAt) > d
}

// signalNamespace scopes the name-based signal ids.
var signalNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("signalsentinel/signal"))

// Signal is an emitted trade idea. Signals are immutable once created.
type Signal struct {
	ID              string     `json:"id"`
	Type            SignalType `json:"signal_type"`
	Direction       Direction  `json:"direction"`
	Symbol          string     `json:"symbol"`
	Timeframe       Timeframe  `json:"timeframe"`
	Bias            BiasClass  `json:"bias"`
	Structure       string     `json:"structure"`
	EntryPrice      float64    `json:"entry_price"`
	StopLoss        float64    `json:"stop_loss"`
	TakeProfit      *float64   `json:"take_profit,omitempty"`
	Confidence      Confidence `json:"confidence"`
	CandleCloseTime time.Time  `json:"candle_close_time"`
	EMA20           *float64   `json:"ema_20"`
	EMA50           *float64   `json:"ema_50"`
	RSI             *float64   `json:"rsi"`
	StochRSIK       *float64   `json:"stoch_rsi_k"`
	StochRSID       *float64   `json:"stoch_rsi_d"`
	ATR             *float64   `json:"atr"`
	LiquiditySweep  bool       `json:"liquidity_sweep"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Key is the dedup key: symbol, entry timeframe, candle close time and type.
func (s *Signal) Key() string {
	return s.Symbol + "|" + string(s.Timeframe) + "|" +
		s.CandleCloseTime.UTC().Format(time.RFC3339) + "|" + string(s.Type)
}

// AssignID derives the id from the dedup key, so equal keys get equal ids.
func (s *Signal) AssignID() {
	s.ID = uuid.NewSHA1(signalNamespace, []byte(s.Key())).String()
}
