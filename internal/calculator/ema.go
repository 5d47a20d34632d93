package calculator

import "github.com/markcheno/go-talib"

// EMA returns the exponential moving average of closes, seeded with the SMA of
// the first period closes. Entries before index period-1 are absent.
func EMA(closes []float64, period int) []*float64 {
	if period <= 0 || len(closes) < period {
		return make([]*float64, len(closes))
	}
	return mask(talib.Ema(closes, period), period-1)
}
