package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/metrics"
	"SignalSentinel/internal/model"
)

// Options tunes fetching and retention.
type Options struct {
	Limit          int           // candles requested per fetch
	Retain         int           // candles kept per series
	RequestTimeout time.Duration // per attempt
	MaxAttempts    int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	Rate           float64 // requests per second shared by all symbols
	Burst          int
}

func (o *Options) setDefaults() {
	if o.Limit <= 0 {
		o.Limit = 300
	}
	if o.Retain <= 0 {
		o.Retain = 500
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 500 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 8 * time.Second
	}
	if o.Rate <= 0 {
		o.Rate = 10
	}
	if o.Burst <= 0 {
		o.Burst = 20
	}
}

// SeriesKey identifies a series by symbol and timeframe.
func SeriesKey(symbol string, tf model.Timeframe) string {
	return symbol + "@" + string(tf)
}

// Collector fetches candles from a Source and keeps one Series per symbol and
// timeframe.
type Collector struct {
	source  Source
	opts    Options
	limiter *rate.Limiter
	metrics *metrics.Metrics
	log     *logrus.Entry

	// sleep waits out a backoff; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	series map[string]*Series
}

// New creates a Collector. m may be nil.
func New(source Source, opts Options, m *metrics.Metrics, l *logrus.Logger) *Collector {
	opts.setDefaults()
	if m == nil {
		m = metrics.New()
	}
	return &Collector{
		source:  source,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.Rate), opts.Burst),
		metrics: m,
		log:     logger.Component(l, "collector").WithField("source", source.Name()),
		sleep:   sleepCtx,
		series:  make(map[string]*Series),
	}
}

// Series returns the series for symbol and timeframe, creating it empty.
func (c *Collector) Series(symbol string, tf model.Timeframe) *Series {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := SeriesKey(symbol, tf)
	s, ok := c.series[k]
	if !ok {
		s = NewSeries(symbol, tf, c.opts.Retain)
		c.series[k] = s
	}
	return s
}

// Lookup returns the series for symbol and timeframe if it has been created.
func (c *Collector) Lookup(symbol string, tf model.Timeframe) (*Series, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.series[SeriesKey(symbol, tf)]
	return s, ok
}

// Refresh fetches the latest candles and merges them into the series. On
// failure the series keeps its last good state.
func (c *Collector) Refresh(ctx context.Context, symbol string, tf model.Timeframe, now time.Time) (*Series, error) {
	s := c.Series(symbol, tf)
	batch, err := c.fetch(ctx, symbol, tf)
	if err != nil {
		return s, err
	}
	if err := s.Merge(batch, now); err != nil {
		return s, err
	}
	return s, nil
}

// fetch calls the source with a per-attempt timeout, retrying transient and
// rate-limited failures with capped exponential backoff.
func (c *Collector) fetch(ctx context.Context, symbol string, tf model.Timeframe) ([]model.Candle, error) {
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}

		attempts = attempt
		c.metrics.FetchAttempts.WithLabelValues(string(tf)).Inc()
		actx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
		candles, err := c.source.Fetch(actx, symbol, tf, c.opts.Limit)
		cancel()
		if err == nil {
			return candles, nil
		}

		lastErr = err
		c.metrics.FetchErrors.WithLabelValues(errorKind(err)).Inc()
		entry := c.log.WithFields(logrus.Fields{
			"symbol":    symbol,
			"timeframe": tf,
			"attempt":   attempt,
		}).WithError(err)

		if !retryable(err) || ctx.Err() != nil {
			entry.Warn("fetch failed")
			break
		}
		if attempt == c.opts.MaxAttempts {
			entry.Warn("fetch failed, giving up")
			break
		}

		wait := c.backoff(attempt)
		if errors.Is(err, ErrRateLimited) {
			wait = c.opts.BackoffMax
		}
		entry.WithField("backoff", wait).Debug("fetch failed, retrying")
		if err := c.sleep(ctx, wait); err != nil {
			break
		}
	}
	return nil, &FetchError{Symbol: symbol, Timeframe: tf, Attempts: attempts, Err: lastErr}
}

// backoff returns base * 2^(attempt-1), capped at BackoffMax.
func (c *Collector) backoff(attempt int) time.Duration {
	d := c.opts.BackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= c.opts.BackoffMax {
			return c.opts.BackoffMax
		}
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
