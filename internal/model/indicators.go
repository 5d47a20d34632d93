package model

import "time"

// IndicatorSnapshot holds the derived values for one candle. A nil field means
// the indicator's lookback is not yet satisfied at that candle.
type IndicatorSnapshot struct {
	Time      time.Time `json:"time"`
	Close     float64   `json:"close"`
	EMA20     *float64  `json:"ema_20"`
	EMA50     *float64  `json:"ema_50"`
	EMA100    *float64  `json:"ema_100"`
	EMA200    *float64  `json:"ema_200"`
	RSI       *float64  `json:"rsi"`
	StochRSIK *float64  `json:"stoch_rsi_k"`
	StochRSID *float64  `json:"stoch_rsi_d"`
	ATR       *float64  `json:"atr"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
