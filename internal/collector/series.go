package collector

import (
	"fmt"
	"sync"
	"time"

	"SignalSentinel/internal/model"
)

// Series is the bounded, strictly ordered candle history of one symbol and
// timeframe. Writes come from the owning symbol task; reads may come from the
// query layer, so access is guarded.
type Series struct {
	Symbol    string
	Timeframe model.Timeframe

	mu        sync.RWMutex
	retain    int
	candles   []model.Candle
	refreshed time.Time
}

// NewSeries returns an empty series keeping at most retain candles.
func NewSeries(symbol string, tf model.Timeframe, retain int) *Series {
	if retain <= 0 {
		retain = 500
	}
	return &Series{Symbol: symbol, Timeframe: tf, retain: retain}
}

// Merge folds a batch into the series. Candles of the batch replace existing
// candles with the same open time and fill gaps; existing candles outside the
// batch range are kept. A batch that is not strictly increasing is rejected
// and the series is left untouched.
func (s *Series) Merge(batch []model.Candle, at time.Time) error {
	for i := 1; i < len(batch); i++ {
		if !batch[i].OpenTime.After(batch[i-1].OpenTime) {
			return fmt.Errorf("%s %s at %s: %w", s.Symbol, s.Timeframe,
				batch[i].OpenTime.UTC().Format(time.RFC3339), ErrOutOfOrder)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshed = at
	if len(batch) == 0 {
		return nil
	}

	first, last := batch[0].OpenTime, batch[len(batch)-1].OpenTime
	merged := make([]model.Candle, 0, len(s.candles)+len(batch))
	for _, c := range s.candles {
		if c.OpenTime.Before(first) {
			merged = append(merged, c)
		}
	}
	merged = append(merged, batch...)
	for _, c := range s.candles {
		if c.OpenTime.After(last) {
			merged = append(merged, c)
		}
	}

	if len(merged) > s.retain {
		merged = merged[len(merged)-s.retain:]
	}
	s.candles = merged
	return nil
}

// Candles returns a copy of the retained history, including any forming candle.
func (s *Series) Candles() []model.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Candle, len(s.candles))
	copy(out, s.candles)
	return out
}

// Closed returns a copy of the candles that have closed at now.
func (s *Series) Closed(now time.Time) []model.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.candles)
	for n > 0 && !s.candles[n-1].ClosedAt(s.Timeframe, now) {
		n--
	}
	out := make([]model.Candle, n)
	copy(out, s.candles[:n])
	return out
}

// Len returns the number of retained candles.
func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.candles)
}

// RefreshedAt returns when the series last received a batch.
func (s *Series) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshed
}

// Stale reports whether the last refresh is older than one interval at now.
func (s *Series) Stale(now time.Time) bool {
	refreshed := s.RefreshedAt()
	if refreshed.IsZero() {
		return true
	}
	return now.Sub(refreshed) >= s.Timeframe.MustDuration()
}
