// Package structure detects swing points and the market-structure events
// (break of structure, change of character, liquidity sweep) they imply.
package structure

import "SignalSentinel/internal/model"

// DefaultLag is the number of candles on each side of a swing.
const DefaultLag = 2

// Trend is the prevailing direction set by the last break. The zero value
// means no break has happened yet.
type Trend struct {
	Set bool
	Dir model.Direction
}

// Analysis is the result of one pass over a closed candle series.
type Analysis struct {
	Swings []model.SwingPoint
	Events []model.StructureEvent
	Trend  Trend
	// LastHigh and LastLow are the most recently confirmed swings, broken or
	// not. Nil when none has been confirmed.
	LastHigh *model.SwingPoint
	LastLow  *model.SwingPoint
}

// EventsAt returns the events confirmed by the candle at index.
func (a Analysis) EventsAt(index int) []model.StructureEvent {
	var out []model.StructureEvent
	for _, e := range a.Events {
		if e.Bar() == index {
			out = append(out, e)
		}
	}
	return out
}

// level is a confirmed swing the analyzer is still watching.
type level struct {
	swing  model.SwingPoint
	broken bool
}

func (l *level) live() bool { return l != nil && !l.broken }

// Analyze walks closed candles oldest first. lag <= 0 means DefaultLag. A
// series shorter than 2*lag yields an empty Analysis.
func Analyze(candles []model.Candle, lag int) Analysis {
	if lag <= 0 {
		lag = DefaultLag
	}
	var a Analysis
	if len(candles) < 2*lag {
		return a
	}

	var high, low *level
	for k, c := range candles {
		// Candle k confirms the candidate lag bars back.
		if i := k - lag; i >= lag {
			if isSwingHigh(candles, i, lag) {
				sp := swing(candles, i, k, model.SwingHigh)
				a.Swings = append(a.Swings, sp)
				high = &level{swing: sp}
			}
			if isSwingLow(candles, i, lag) {
				sp := swing(candles, i, k, model.SwingLow)
				a.Swings = append(a.Swings, sp)
				low = &level{swing: sp}
			}
		}

		if high.live() && c.Close > high.swing.Price {
			a.Events = append(a.Events, a.breakEvent(model.Up, high.swing, k, c))
			high.broken = true
		}
		if low.live() && c.Close < low.swing.Price {
			a.Events = append(a.Events, a.breakEvent(model.Down, low.swing, k, c))
			low.broken = true
		}

		if high.live() && c.High > high.swing.Price && c.Close <= high.swing.Price {
			a.Events = append(a.Events, model.NewLiquiditySweep(model.Up, high.swing.Price, k, c.OpenTime, high.swing.Index))
		}
		if low.live() && c.Low < low.swing.Price && c.Close >= low.swing.Price {
			a.Events = append(a.Events, model.NewLiquiditySweep(model.Down, low.swing.Price, k, c.OpenTime, low.swing.Index))
		}
	}

	if high != nil {
		sp := high.swing
		a.LastHigh = &sp
	}
	if low != nil {
		sp := low.swing
		a.LastLow = &sp
	}
	return a
}

// breakEvent records a close through sp in direction dir and updates the trend.
func (a *Analysis) breakEvent(dir model.Direction, sp model.SwingPoint, k int, c model.Candle) model.StructureEvent {
	var e model.StructureEvent
	if a.Trend.Set && a.Trend.Dir != dir {
		e = model.NewCHoCH(dir, sp.Price, k, c.OpenTime, sp.Index)
	} else {
		e = model.NewBOS(dir, sp.Price, k, c.OpenTime, sp.Index)
	}
	a.Trend = Trend{Set: true, Dir: dir}
	return e
}

func swing(candles []model.Candle, i, confirmedAt int, kind model.SwingKind) model.SwingPoint {
	price := candles[i].High
	if kind == model.SwingLow {
		price = candles[i].Low
	}
	return model.SwingPoint{
		Index:       i,
		Time:        candles[i].OpenTime,
		Price:       price,
		Kind:        kind,
		ConfirmedAt: confirmedAt,
	}
}

// isSwingHigh: the lag candles before i have strictly lower highs and the lag
// candles after i do not exceed it.
func isSwingHigh(candles []model.Candle, i, lag int) bool {
	h := candles[i].High
	for j := i - lag; j < i; j++ {
		if candles[j].High >= h {
			return false
		}
	}
	for j := i + 1; j <= i+lag; j++ {
		if candles[j].High > h {
			return false
		}
	}
	return true
}

func isSwingLow(candles []model.Candle, i, lag int) bool {
	l := candles[i].Low
	for j := i - lag; j < i; j++ {
		if candles[j].Low <= l {
			return false
		}
	}
	for j := i + 1; j <= i+lag; j++ {
		if candles[j].Low < l {
			return false
		}
	}
	return true
}
