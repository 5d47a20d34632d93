package collector

import (
	"context"
	"errors"
	"fmt"

	"SignalSentinel/internal/model"
)

var (
	// ErrTransient marks a fetch failure worth retrying (network, 5xx, timeout).
	ErrTransient = errors.New("transient fetch error")
	// ErrRateLimited marks a fetch refused by the exchange request weight limit.
	ErrRateLimited = errors.New("rate limited")
	// ErrOutOfOrder rejects a batch whose open times are not strictly increasing.
	ErrOutOfOrder = errors.New("candle batch out of order")
)

// Source supplies candles for one symbol and timeframe, oldest first. The
// last candle may still be forming; callers filter with Series.Closed.
type Source interface {
	Fetch(ctx context.Context, symbol string, tf model.Timeframe, limit int) ([]model.Candle, error)
	Name() string
}

// FetchError is returned once every attempt for a series has failed.
type FetchError struct {
	Symbol    string
	Timeframe model.Timeframe
	Attempts  int
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %s failed after %d attempt(s): %v", e.Symbol, e.Timeframe, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// retryable reports whether another attempt may succeed.
func retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrRateLimited)
}

// errorKind is the metrics label for a failed attempt.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "permanent"
	}
}
