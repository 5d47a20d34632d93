package calculator

import "SignalSentinel/internal/model"

// RSI computes the Wilder-smoothed RSI for every close. The first value needs
// period changes, so entries before index period are absent.
func RSI(closes []float64, period int) []*float64 {
	out := make([]*float64, len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}

	// Initial average gain/loss over the first `period` changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change // make positive
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = model.Float(rsiValue(avgGain, avgLoss))

	// Wilder smoothing for remaining closes
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = model.Float(rsiValue(avgGain, avgLoss))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
