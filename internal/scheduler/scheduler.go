package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"SignalSentinel/internal/calculator"
	"SignalSentinel/internal/collector"
	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/market"
	"SignalSentinel/internal/metrics"
	"SignalSentinel/internal/model"
	"SignalSentinel/internal/strategy"
	"SignalSentinel/internal/structure"
)

// Submitter accepts signal candidates; see store.Store.
type Submitter interface {
	Submit(candidate model.Signal) (model.Signal, bool, error)
}

// Options configures timing and concurrency.
type Options struct {
	Entry        model.Timeframe
	Confirmation model.Timeframe
	SettleDelay  time.Duration // after the boundary, before fetching
	RunDeadline  time.Duration // per symbol task
	Workers      int
	SwingLag     int
}

// Scheduler fires on entry-timeframe boundaries and runs one task per symbol.
// A symbol whose previous task is still running skips the boundary.
type Scheduler struct {
	cron      *cron.Cron
	symbols   []string
	collector *collector.Collector
	generator *strategy.Generator
	submitter Submitter
	board     *market.Board
	opts      Options
	metrics   *metrics.Metrics
	log       *logrus.Entry

	now     func() time.Time
	sem     chan struct{}
	running map[string]*atomic.Bool
	wg      sync.WaitGroup

	mu  sync.Mutex
	ctx context.Context
}

// NewScheduler creates a new Scheduler. board and m may be nil.
func NewScheduler(symbols []string, col *collector.Collector, gen *strategy.Generator, sub Submitter,
	board *market.Board, opts Options, m *metrics.Metrics, l *logrus.Logger) *Scheduler {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.RunDeadline <= 0 {
		opts.RunDeadline = time.Minute
	}
	if board == nil {
		board = market.NewBoard()
	}
	if m == nil {
		m = metrics.New()
	}
	log := logger.Component(l, "scheduler")

	running := make(map[string]*atomic.Bool, len(symbols))
	for _, s := range symbols {
		running[s] = &atomic.Bool{}
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger{log}),
		),
		symbols:   append([]string(nil), symbols...),
		collector: col,
		generator: gen,
		submitter: sub,
		board:     board,
		opts:      opts,
		metrics:   m,
		log:       log,
		now:       time.Now,
		sem:       make(chan struct{}, opts.Workers),
		running:   running,
		ctx:       context.Background(),
	}
}

// Board returns the board the tasks publish bias and quotes to.
func (s *Scheduler) Board() *market.Board { return s.board }

// CronSpec returns the six-field spec firing settle seconds after every
// boundary of entry. Entry must divide an hour or a day evenly.
func CronSpec(entry model.Timeframe, settle time.Duration) (string, error) {
	d, err := entry.Duration()
	if err != nil {
		return "", err
	}
	sec := int(settle / time.Second)
	if sec < 0 || sec > 59 {
		return "", fmt.Errorf("settle delay %s out of range", settle)
	}
	switch {
	case d < time.Hour && d%time.Minute == 0 && time.Hour%d == 0:
		return fmt.Sprintf("%d */%d * * * *", sec, int(d/time.Minute)), nil
	case d >= time.Hour && d < 24*time.Hour && d%time.Hour == 0 && (24*time.Hour)%d == 0:
		return fmt.Sprintf("%d 0 */%d * * *", sec, int(d/time.Hour)), nil
	case d == 24*time.Hour:
		return fmt.Sprintf("%d 0 0 * * *", sec), nil
	}
	return "", fmt.Errorf("timeframe %s does not divide a day into whole minutes", entry)
}

// Start registers the boundary job and starts the cron scheduler. Tasks run
// under ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	spec, err := CronSpec(s.opts.Entry, s.opts.SettleDelay)
	if err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if _, err := s.cron.AddFunc(spec, s.fire); err != nil {
		return fmt.Errorf("register boundary job: %w", err)
	}
	s.cron.Start()
	s.log.WithFields(logrus.Fields{
		"spec":    spec,
		"symbols": len(s.symbols),
		"workers": s.opts.Workers,
	}).Info("scheduler started")
	return nil
}

// Stop stops the cron scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// Wait blocks until every dispatched task has finished.
func (s *Scheduler) Wait() { s.wg.Wait() }

// RunOnce runs every symbol for the current boundary, including the
// confirmation timeframe, and waits for the tasks. Used by run_on_start and
// the scan command.
func (s *Scheduler) RunOnce(ctx context.Context) {
	boundary := s.now().UTC().Truncate(s.opts.Entry.MustDuration())
	tfs := []model.Timeframe{s.opts.Confirmation, s.opts.Entry}
	for _, sym := range s.symbols {
		s.dispatch(ctx, sym, boundary, tfs)
	}
	s.wg.Wait()
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	s.Trigger(ctx, s.now())
}

// Trigger dispatches one task per symbol for the boundary containing now.
func (s *Scheduler) Trigger(ctx context.Context, now time.Time) {
	boundary := now.UTC().Truncate(s.opts.Entry.MustDuration())
	s.log.WithField("boundary", boundary).Debug("boundary reached")
	for _, sym := range s.symbols {
		s.dispatch(ctx, sym, boundary, s.timeframes(sym, boundary, now))
	}
}

// timeframes returns what closes at boundary for symbol: the confirmation
// timeframe when the boundary is aligned to it or its series has gone stale,
// then the entry timeframe.
func (s *Scheduler) timeframes(symbol string, boundary, now time.Time) []model.Timeframe {
	include := boundary.Truncate(s.opts.Confirmation.MustDuration()).Equal(boundary)
	if !include {
		series, ok := s.collector.Lookup(symbol, s.opts.Confirmation)
		include = !ok || series.Stale(now)
	}
	if include {
		return []model.Timeframe{s.opts.Confirmation, s.opts.Entry}
	}
	return []model.Timeframe{s.opts.Entry}
}

// dispatch claims the symbol gate and hands the task to the worker pool. A
// trigger for a symbol that is still running is dropped.
func (s *Scheduler) dispatch(ctx context.Context, symbol string, boundary time.Time, tfs []model.Timeframe) {
	gate, ok := s.running[symbol]
	if !ok {
		return
	}
	if !gate.CompareAndSwap(false, true) {
		s.metrics.DroppedTriggers.WithLabelValues(symbol).Inc()
		s.log.WithFields(logrus.Fields{
			"symbol":   symbol,
			"boundary": boundary,
		}).Warn("previous cycle still running, trigger dropped")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer gate.Store(false)

		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-s.sem }()

		s.runSymbol(ctx, symbol, boundary, tfs)
	}()
}

// runSymbol runs one cycle under the run deadline. Errors end the cycle for
// this symbol only.
func (s *Scheduler) runSymbol(ctx context.Context, symbol string, boundary time.Time, tfs []model.Timeframe) {
	start := time.Now()
	entry := s.log.WithFields(logrus.Fields{
		"symbol":   symbol,
		"boundary": boundary,
	})
	defer func() {
		if r := recover(); r != nil {
			s.metrics.Cycles.WithLabelValues("error").Inc()
			entry.WithField("panic", r).Error("cycle panicked")
		}
	}()

	rctx, cancel := context.WithTimeout(ctx, s.opts.RunDeadline)
	defer cancel()

	entry.WithField("timeframes", tfs).Debug("running cycle")
	emitted, err := s.cycle(rctx, symbol, tfs)
	s.metrics.CycleDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		s.metrics.Cycles.WithLabelValues("ok").Inc()
		entry.WithFields(logrus.Fields{
			"signals": emitted,
			"took":    time.Since(start).Round(time.Millisecond),
		}).Info("cycle complete")
	case errors.Is(err, context.DeadlineExceeded):
		s.metrics.Cycles.WithLabelValues("timeout").Inc()
		entry.WithError(err).Error("cycle exceeded run deadline")
	default:
		s.metrics.Cycles.WithLabelValues("error").Inc()
		entry.WithError(err).Error("cycle failed")
	}
}

// cycle refreshes each timeframe, resolves the bias on the confirmation
// timeframe, then evaluates the entry timeframe and submits the candidates.
// It returns how many new signals were emitted.
func (s *Scheduler) cycle(ctx context.Context, symbol string, tfs []model.Timeframe) (int, error) {
	var (
		candles []model.Candle
		now     time.Time
	)
	for _, tf := range tfs {
		series, err := s.collector.Refresh(ctx, symbol, tf, s.now())
		if err != nil {
			return 0, fmt.Errorf("refresh %s: %w", tf, err)
		}
		now = s.now()
		closed := series.Closed(now)

		if tf == s.opts.Confirmation {
			s.resolveBias(symbol, closed)
			continue
		}
		candles = closed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	snaps := calculator.Compute(candles)
	if q, err := market.BuildQuote(symbol, candles, snaps, s.opts.Entry); err == nil {
		s.board.SetQuote(q)
	}

	in := strategy.Input{
		Symbol:    symbol,
		Timeframe: s.opts.Entry,
		Candles:   candles,
		Snapshots: snaps,
		Structure: structure.Analyze(candles, s.opts.SwingLag),
		Now:       now,
	}
	if b, ok := s.board.Bias(symbol); ok {
		in.Bias = &b
	}

	emitted := 0
	for _, cand := range s.generator.Evaluate(in) {
		_, created, err := s.submitter.Submit(cand)
		if err != nil {
			return emitted, fmt.Errorf("submit %s: %w", cand.Type, err)
		}
		if created {
			emitted++
		}
	}
	return emitted, nil
}

func (s *Scheduler) resolveBias(symbol string, closed []model.Candle) {
	if len(closed) == 0 {
		return
	}
	snaps := calculator.Compute(closed)
	last := len(closed) - 1
	b, err := strategy.ResolveBias(symbol, s.opts.Confirmation, snaps[last], closed[last].CloseTime(s.opts.Confirmation))
	if err != nil {
		s.log.WithField("symbol", symbol).WithError(err).Debug("bias unavailable")
		return
	}
	s.board.SetBias(b)
}

// cronLogger routes robfig/cron's logging through logrus.
type cronLogger struct{ log *logrus.Entry }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.WithFields(kvFields(keysAndValues)).WithError(err).Error(msg)
}

func kvFields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
