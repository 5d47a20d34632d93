package calculator

import (
	"math"

	"SignalSentinel/internal/model"
)

// WindowStats summarises the most recent candles of a series.
type WindowStats struct {
	High   float64
	Low    float64
	Volume float64
	// ChangePct is the percent change from the first open to the last close.
	ChangePct *float64
}

// Window scans the most recent n candles and returns their range, summed
// volume and percent change. Fewer than n candles yields ErrInsufficientHistory.
func Window(candles []model.Candle, n int) (WindowStats, error) {
	if n <= 0 || len(candles) < n {
		return WindowStats{}, model.ErrInsufficientHistory
	}
	recent := candles[len(candles)-n:]
	ws := WindowStats{High: math.Inf(-1), Low: math.Inf(1)}
	for _, c := range recent {
		if c.High > ws.High {
			ws.High = c.High
		}
		if c.Low < ws.Low {
			ws.Low = c.Low
		}
		ws.Volume += c.Volume
	}
	if open := recent[0].Open; open != 0 {
		ws.ChangePct = model.Float((recent[len(recent)-1].Close - open) / open * 100)
	}
	return ws, nil
}

// Position returns where price sits within [low, high] as 0.0~1.0.
func Position(price, high, low float64) float64 {
	if high <= low {
		return 0.5
	}
	return math.Max(0, math.Min(1, (price-low)/(high-low)))
}
