package calculator

import "SignalSentinel/internal/model"

// StochRSI applies a min-max transform to rsi over period values, scaled to
// 0..100, then smooths it: %K is the SMA of the raw value over kSmooth and %D
// the SMA of %K over dSmooth. A flat window yields 0.
func StochRSI(rsi []*float64, period, kSmooth, dSmooth int) (k, d []*float64) {
	raw := make([]*float64, len(rsi))
	if period > 0 {
		for i := period - 1; i < len(rsi); i++ {
			lo, hi, ok := window(rsi[i-period+1 : i+1])
			if !ok {
				continue
			}
			v := 0.0
			if hi > lo {
				v = (*rsi[i] - lo) / (hi - lo) * 100
			}
			raw[i] = model.Float(v)
		}
	}
	k = SMA(raw, kSmooth)
	d = SMA(k, dSmooth)
	return k, d
}

// window returns the min and max of vs; ok is false if any value is absent.
func window(vs []*float64) (lo, hi float64, ok bool) {
	for i, v := range vs {
		if v == nil {
			return 0, 0, false
		}
		if i == 0 || *v < lo {
			lo = *v
		}
		if i == 0 || *v > hi {
			hi = *v
		}
	}
	return lo, hi, len(vs) > 0
}
