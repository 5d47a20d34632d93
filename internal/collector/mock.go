package collector

import (
	"context"
	"math"
	"time"

	"SignalSentinel/internal/model"
)

// MockFetcher returns controllable data for development and testing. When
// Candles has an entry for the symbol and timeframe it is returned as is;
// otherwise a deterministic wave around Price is generated, ending with the
// candle forming at Now.
type MockFetcher struct {
	Price   float64
	Candles map[string][]model.Candle // keyed by SeriesKey
	Now     func() time.Time
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) Fetch(_ context.Context, symbol string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	if c, ok := m.Candles[SeriesKey(symbol, tf)]; ok {
		if limit > 0 && len(c) > limit {
			c = c[len(c)-limit:]
		}
		out := make([]model.Candle, len(c))
		copy(out, c)
		return out, nil
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	return generateMockCandles(m.Price, tf, limit, now()), nil
}

func generateMockCandles(basePrice float64, tf model.Timeframe, count int, now time.Time) []model.Candle {
	if basePrice <= 0 {
		basePrice = 100
	}
	d := tf.MustDuration()
	start := now.UTC().Truncate(d).Add(-time.Duration(count-1) * d)
	candles := make([]model.Candle, count)
	prev := basePrice
	for i := 0; i < count; i++ {
		p := basePrice * (1 + 0.02*math.Sin(float64(i)/6) + float64(i-count/2)*0.0002)
		candles[i] = model.Candle{
			OpenTime: start.Add(time.Duration(i) * d),
			Open:     prev,
			High:     math.Max(prev, p) * 1.002,
			Low:      math.Min(prev, p) * 0.998,
			Close:    p,
			Volume:   1000,
		}
		prev = p
	}
	return candles
}
