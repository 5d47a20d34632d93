// Package store owns emitted signals: it deduplicates, persists, retains and
// fans them out.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/metrics"
	"SignalSentinel/internal/model"
	"SignalSentinel/internal/notifier"
	"SignalSentinel/internal/recorder"
)

var (
	// ErrInvalidSignal rejects a candidate missing its identifying fields.
	ErrInvalidSignal = errors.New("invalid signal")
	// ErrExpired rejects a candidate whose candle is older than every
	// retained signal. Its dedup key may already have been forgotten.
	ErrExpired = errors.New("signal older than retention horizon")
)

// Alerter accepts alert text for asynchronous delivery. Close drains it.
type Alerter interface {
	Enqueue(text string) bool
	Close(ctx context.Context) error
}

// Options bounds what the store keeps in memory.
type Options struct {
	Retain           int // signals kept for queries
	SubscriberBuffer int
}

// Store is the single owner of signal lifetime. All writes go through Submit.
type Store struct {
	recorder recorder.Recorder
	alerts   Alerter
	hub      *Hub
	metrics  *metrics.Metrics
	log      *logrus.Entry
	retain   int

	mu      sync.Mutex
	byKey   map[string]model.Signal
	signals []model.Signal // oldest first, at most retain
	horizon time.Time      // keys for candles before this are pruned
}

// New creates a Store. rec and alerts may be nil.
func New(rec recorder.Recorder, alerts Alerter, opts Options, m *metrics.Metrics, l *logrus.Logger) *Store {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if opts.Retain <= 0 {
		opts.Retain = 500
	}
	if m == nil {
		m = metrics.New()
	}
	return &Store{
		recorder: rec,
		alerts:   alerts,
		hub:      NewHub(opts.SubscriberBuffer),
		metrics:  m,
		log:      logger.Component(l, "store"),
		retain:   opts.Retain,
		byKey:    make(map[string]model.Signal),
	}
}

// Open reloads the persisted log so restarts keep dedup state and history.
// Reloaded signals are not broadcast or alerted again.
func (s *Store) Open() error {
	loaded, err := s.recorder.Load()
	if err != nil {
		return fmt.Errorf("load signal log: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sig := range loaded {
		k := sig.Key()
		if _, ok := s.byKey[k]; ok {
			continue
		}
		s.byKey[k] = sig
		s.appendLocked(sig)
	}
	s.log.WithField("signals", len(s.byKey)).Info("signal store opened")
	return nil
}

// Submit accepts a candidate. A new signal is persisted, retained, broadcast
// and handed to the alert queue, and created is true. A candidate whose dedup
// key already exists returns the stored record with created false.
func (s *Store) Submit(candidate model.Signal) (model.Signal, bool, error) {
	if candidate.Symbol == "" || candidate.Type == "" || candidate.Timeframe == "" || candidate.CandleCloseTime.IsZero() {
		return model.Signal{}, false, fmt.Errorf("submit %q %q: %w", candidate.Symbol, candidate.Type, ErrInvalidSignal)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := candidate.Key()
	if existing, ok := s.byKey[k]; ok {
		s.metrics.Duplicates.Inc()
		return existing, false, nil
	}
	if candidate.CandleCloseTime.Before(s.horizon) {
		return model.Signal{}, false, fmt.Errorf("submit %s %s at %s: %w",
			candidate.Symbol, candidate.Type, candidate.CandleCloseTime.Format(time.RFC3339), ErrExpired)
	}

	sig := candidate
	sig.AssignID()
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = time.Now().UTC()
	}
	entry := s.log.WithFields(logrus.Fields{
		"symbol":     sig.Symbol,
		"type":       sig.Type,
		"confidence": sig.Confidence,
		"id":         sig.ID,
	})

	if err := s.recorder.Append(&sig); err != nil {
		s.metrics.PersistErrors.Inc()
		entry.WithError(err).Error("persist signal failed")
	}

	s.byKey[k] = sig
	s.appendLocked(sig)
	s.metrics.Signals.WithLabelValues(string(sig.Type), string(sig.Confidence)).Inc()

	if dropped := s.hub.Publish(sig); dropped > 0 {
		s.metrics.FanoutDrops.Add(float64(dropped))
		entry.WithField("dropped", dropped).Warn("subscriber buffer full")
	}
	if s.alerts != nil {
		s.alerts.Enqueue(notifier.FormatSignal(&sig))
	}

	entry.Info("signal emitted")
	return sig, true, nil
}

func (s *Store) appendLocked(sig model.Signal) {
	s.signals = append(s.signals, sig)
	if over := len(s.signals) - s.retain; over > 0 {
		trimmed := make([]model.Signal, s.retain)
		copy(trimmed, s.signals[over:])
		s.signals = trimmed
		s.pruneKeysLocked()
	}
}

// pruneKeysLocked forgets dedup keys of candles older than every retained
// signal, so byKey stays bounded by the retention window.
func (s *Store) pruneKeysLocked() {
	horizon := s.signals[0].CandleCloseTime
	for _, sig := range s.signals[1:] {
		if sig.CandleCloseTime.Before(horizon) {
			horizon = sig.CandleCloseTime
		}
	}
	if !horizon.After(s.horizon) {
		return
	}
	s.horizon = horizon
	for k, sig := range s.byKey {
		if sig.CandleCloseTime.Before(horizon) {
			delete(s.byKey, k)
		}
	}
}

// Recent returns up to limit retained signals, newest first. An empty symbol
// matches all symbols; limit <= 0 means all retained.
func (s *Store) Recent(symbol string, limit int) []model.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Signal
	for i := len(s.signals) - 1; i >= 0; i-- {
		if symbol != "" && s.signals[i].Symbol != symbol {
			continue
		}
		out = append(out, s.signals[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Get returns the signal with the given dedup key.
func (s *Store) Get(key string) (model.Signal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig, ok := s.byKey[key]
	return sig, ok
}

// Subscribe registers a live subscriber; see Hub.Subscribe.
func (s *Store) Subscribe() (<-chan model.Signal, func()) {
	return s.hub.Subscribe()
}

// Close ends every subscription, drains the alert queue until ctx ends and
// closes the recorder.
func (s *Store) Close(ctx context.Context) error {
	s.hub.Close()
	var errs []error
	if s.alerts != nil {
		if err := s.alerts.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain alerts: %w", err))
		}
	}
	if err := s.recorder.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close recorder: %w", err))
	}
	return errors.Join(errs...)
}
