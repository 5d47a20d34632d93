package strategy

import (
	"math"

	"SignalSentinel/internal/model"
	"SignalSentinel/internal/structure"
)

// proximity is how close the entry candle closed to the nearer of EMA20 and
// EMA50, in percent of that EMA.
type proximity struct {
	DistancePct float64
	Within      bool // inside the proximity band
	NearMiss    bool // outside the band by at most the near-miss margin
}

func scoreProximity(price float64, snap model.IndicatorSnapshot, p Params) proximity {
	best := math.Inf(1)
	for _, ema := range []*float64{snap.EMA20, snap.EMA50} {
		if ema == nil || *ema == 0 {
			continue
		}
		if d := math.Abs(price-*ema) / *ema * 100; d < best {
			best = d
		}
	}
	if math.IsInf(best, 1) {
		return proximity{}
	}
	return proximity{
		DistancePct: best,
		Within:      best <= p.ProximityPct,
		NearMiss:    best > p.ProximityPct && best <= p.ProximityPct+p.NearMissPct,
	}
}

// stochTrigger reports whether %K crossed threshold in direction dir on one of
// the last lookback candles ending at last. UP means k[j-1] <= th < k[j];
// DOWN means k[j-1] >= th > k[j].
func stochTrigger(snaps []model.IndicatorSnapshot, last, lookback int, dir model.Direction, th float64) bool {
	if lookback <= 0 {
		lookback = 1
	}
	for j := last; j > last-lookback && j >= 1; j-- {
		prev, cur := snaps[j-1].StochRSIK, snaps[j].StochRSIK
		if prev == nil || cur == nil {
			continue
		}
		if dir == model.Up && *prev <= th && *cur > th {
			return true
		}
		if dir == model.Down && *prev >= th && *cur < th {
			return true
		}
	}
	return false
}

// stopLoss places the stop at the most recent confirmed swing opposite the
// entry direction when it sits on the losing side of entry; otherwise at
// entry -/+ atrMultiple * ATR. ok is false when neither is available.
func stopLoss(dir model.Direction, entry float64, a structure.Analysis, atr *float64, atrMultiple float64) (float64, bool) {
	switch dir {
	case model.Up:
		if a.LastLow != nil && a.LastLow.Price < entry {
			return a.LastLow.Price, true
		}
	case model.Down:
		if a.LastHigh != nil && a.LastHigh.Price > entry {
			return a.LastHigh.Price, true
		}
	}
	if atr == nil || *atr <= 0 || atrMultiple <= 0 {
		return 0, false
	}
	dist := atrMultiple * *atr
	if dir == model.Up {
		return entry - dist, true
	}
	return entry + dist, true
}

// takeProfit is entry plus r times the risk in the trade direction. Nil when
// r is not positive.
func takeProfit(dir model.Direction, entry, stop, r float64) *float64 {
	if r <= 0 {
		return nil
	}
	risk := math.Abs(entry - stop)
	if dir == model.Up {
		return model.Float(entry + r*risk)
	}
	return model.Float(entry - r*risk)
}

// recentSweep reports whether a liquidity sweep in direction dir happened on
// one of the candles from..to inclusive.
func recentSweep(events []model.StructureEvent, dir model.Direction, from, to int) (model.StructureEvent, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if e.Kind() != model.KindLiquiditySweep || e.Dir() != dir {
			continue
		}
		if e.Bar() >= from && e.Bar() <= to {
			return e, true
		}
	}
	return nil, false
}
