package calculator

import (
	"github.com/markcheno/go-talib"

	"SignalSentinel/internal/model"
)

// ATR returns Wilder's average true range. The first value sits at index
// period, where period true ranges (each needing a previous close) exist.
func ATR(candles []model.Candle, period int) []*float64 {
	if period <= 0 || len(candles) <= period {
		return make([]*float64, len(candles))
	}
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i], lows[i], closes[i] = c.High, c.Low, c.Close
	}
	return mask(talib.Atr(highs, lows, closes, period), period)
}
