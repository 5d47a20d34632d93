package calculator

import "SignalSentinel/internal/model"

// Indicator periods.
const (
	RSIPeriod    = 14
	StochPeriod  = 14
	StochKSmooth = 3
	StochDSmooth = 3
	ATRPeriod    = 14
	EMAFast      = 20
	EMAMid       = 50
	EMASlow      = 100
	EMATrend     = 200
)

// Compute derives one IndicatorSnapshot per candle. The result is a pure
// function of candles; nothing is cached between calls.
func Compute(candles []model.Candle) []model.IndicatorSnapshot {
	closes := extractCloses(candles)
	ema20 := EMA(closes, EMAFast)
	ema50 := EMA(closes, EMAMid)
	ema100 := EMA(closes, EMASlow)
	ema200 := EMA(closes, EMATrend)
	rsi := RSI(closes, RSIPeriod)
	k, d := StochRSI(rsi, StochPeriod, StochKSmooth, StochDSmooth)
	atr := ATR(candles, ATRPeriod)

	out := make([]model.IndicatorSnapshot, len(candles))
	for i, c := range candles {
		out[i] = model.IndicatorSnapshot{
			Time:      c.OpenTime,
			Close:     c.Close,
			EMA20:     ema20[i],
			EMA50:     ema50[i],
			EMA100:    ema100[i],
			EMA200:    ema200[i],
			RSI:       rsi[i],
			StochRSIK: k[i],
			StochRSID: d[i],
			ATR:       atr[i],
		}
	}
	return out
}

// Latest returns the snapshot of the last candle. ok is false for an empty
// series.
func Latest(candles []model.Candle) (model.IndicatorSnapshot, bool) {
	snaps := Compute(candles)
	if len(snaps) == 0 {
		return model.IndicatorSnapshot{}, false
	}
	return snaps[len(snaps)-1], true
}
