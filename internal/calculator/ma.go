package calculator

import "SignalSentinel/internal/model"

// SMA returns the simple moving average of values over period. A window that
// contains an absent value is absent.
func SMA(values []*float64, period int) []*float64 {
	out := make([]*float64, len(values))
	if period <= 0 {
		return out
	}
	sum, valid := 0.0, 0
	for i, v := range values {
		if v != nil {
			sum += *v
			valid++
		}
		if i >= period {
			if old := values[i-period]; old != nil {
				sum -= *old
				valid--
			}
		}
		if i >= period-1 && valid == period {
			out[i] = model.Float(sum / float64(period))
		}
	}
	return out
}

func extractCloses(candles []model.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// mask converts a talib output into optional values, leaving the first
// lookback entries absent.
func mask(values []float64, lookback int) []*float64 {
	out := make([]*float64, len(values))
	for i := lookback; i < len(values); i++ {
		out[i] = model.Float(values[i])
	}
	return out
}
