package strategy

import (
	"fmt"
	"time"

	"SignalSentinel/internal/model"
)

// ResolveBias classifies the confirmation timeframe from the snapshot of its
// latest closed candle. BULLISH needs price > EMA20 > EMA50 > EMA100 and
// BEARISH the mirror; anything else is RANGE. asOf is the close time of that
// candle and drives Bias.Stale.
func ResolveBias(symbol string, tf model.Timeframe, snap model.IndicatorSnapshot, asOf time.Time) (model.Bias, error) {
	if snap.EMA20 == nil || snap.EMA50 == nil || snap.EMA100 == nil {
		return model.Bias{}, fmt.Errorf("bias %s %s: %w", symbol, tf, model.ErrInsufficientHistory)
	}
	price, e20, e50, e100 := snap.Close, *snap.EMA20, *snap.EMA50, *snap.EMA100

	class := model.Range
	switch {
	case price > e20 && e20 > e50 && e50 > e100:
		class = model.Bullish
	case price < e20 && e20 < e50 && e50 < e100:
		class = model.Bearish
	}

	return model.Bias{
		Symbol:         symbol,
		Timeframe:      tf,
		Classification: class,
		Price:          price,
		Snapshot:       snap,
		EvaluatedAt:    asOf,
	}, nil
}
