package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/metrics"
	"SignalSentinel/internal/model"
	"SignalSentinel/internal/recorder"
)

var closeTime = time.Date(2024, 3, 4, 10, 30, 0, 0, time.UTC)

func candidate(symbol string, typ model.SignalType, offset int) model.Signal {
	return model.Signal{
		Type:            typ,
		Direction:       model.Up,
		Symbol:          symbol,
		Timeframe:       model.TF15m,
		Bias:            model.Bullish,
		EntryPrice:      100,
		StopLoss:        95,
		Confidence:      model.ConfidenceHigh,
		CandleCloseTime: closeTime.Add(time.Duration(offset) * 15 * time.Minute),
	}
}

type fakeAlerter struct {
	mu     sync.Mutex
	texts  []string
	closed bool
}

func (f *fakeAlerter) Enqueue(text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return true
}

func (f *fakeAlerter) Close(context.Context) error {
	f.closed = true
	return nil
}

type failingRecorder struct{}

func (failingRecorder) Append(*model.Signal) error     { return errors.New("disk full") }
func (failingRecorder) Load() ([]model.Signal, error) { return nil, nil }
func (failingRecorder) Close() error                  { return nil }

func counterValue(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	mfs, err := m.Registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	total := 0.0
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestSubmit_Idempotent(t *testing.T) {
	m := metrics.New()
	alerts := &fakeAlerter{}
	s := New(nil, alerts, Options{}, m, logger.Discard())
	ch, cancel := s.Subscribe()
	defer cancel()

	first, created, err := s.Submit(candidate("BTCUSDT", model.SignalBuy, 0))
	if err != nil || !created {
		t.Fatalf("first submit: created=%v err=%v", created, err)
	}
	again := candidate("BTCUSDT", model.SignalBuy, 0)
	again.Confidence = model.ConfidenceLow
	second, created, err := s.Submit(again)
	if err != nil || created {
		t.Fatalf("second submit: created=%v err=%v", created, err)
	}
	if second.ID != first.ID || second.Confidence != model.ConfidenceHigh {
		t.Errorf("duplicate should return the stored record, got %+v", second)
	}

	if got := len(s.Recent("", 0)); got != 1 {
		t.Errorf("retained %d signals, want 1", got)
	}
	if len(alerts.texts) != 1 || !strings.Contains(alerts.texts[0], "BUY SIGNAL") {
		t.Errorf("alerts = %v", alerts.texts)
	}
	select {
	case got := <-ch:
		if got.ID != first.ID {
			t.Errorf("broadcast %s, want %s", got.ID, first.ID)
		}
	default:
		t.Fatal("subscriber got nothing")
	}
	select {
	case got := <-ch:
		t.Errorf("duplicate was broadcast: %+v", got)
	default:
	}
	if v := counterValue(t, m, "sentinel_duplicate_submissions_total"); v != 1 {
		t.Errorf("duplicates = %v, want 1", v)
	}
}

func TestSubmit_DistinctTypesSameCandle(t *testing.T) {
	s := New(nil, nil, Options{}, nil, logger.Discard())
	_, c1, _ := s.Submit(candidate("BTCUSDT", model.SignalBuy, 0))
	_, c2, _ := s.Submit(candidate("BTCUSDT", model.SignalReversal, 0))
	if !c1 || !c2 {
		t.Error("BUY and REVERSAL on the same candle are distinct signals")
	}
}

func TestSubmit_Concurrent(t *testing.T) {
	s := New(nil, nil, Options{}, nil, logger.Discard())
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.Submit(candidate("ETHUSDT", model.SignalSell, 0))
			if err != nil {
				t.Error(err)
			}
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if created != 1 {
		t.Errorf("created %d times, want exactly once", created)
	}
}

func TestSubmit_PersistFailureNotFatal(t *testing.T) {
	m := metrics.New()
	s := New(failingRecorder{}, nil, Options{}, m, logger.Discard())
	sig, created, err := s.Submit(candidate("BTCUSDT", model.SignalBuy, 0))
	if err != nil || !created {
		t.Fatalf("created=%v err=%v", created, err)
	}
	if _, ok := s.Get(sig.Key()); !ok {
		t.Error("signal should still be retained")
	}
	if v := counterValue(t, m, "sentinel_persist_errors_total"); v != 1 {
		t.Errorf("persist errors = %v, want 1", v)
	}
}

func TestSubmit_Invalid(t *testing.T) {
	s := New(nil, nil, Options{}, nil, logger.Discard())
	if _, _, err := s.Submit(model.Signal{Symbol: "BTCUSDT"}); !errors.Is(err, ErrInvalidSignal) {
		t.Errorf("expected ErrInvalidSignal, got %v", err)
	}
}

func TestOpen_ReloadsDedupState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.json")

	rec, err := recorder.NewJSONFileRecorder(path)
	if err != nil {
		t.Fatal(err)
	}
	s := New(rec, nil, Options{}, nil, logger.Discard())
	if err := s.Open(); err != nil {
		t.Fatal(err)
	}
	orig, _, _ := s.Submit(candidate("BTCUSDT", model.SignalBuy, 0))
	s.Submit(candidate("BTCUSDT", model.SignalBuy, 1))
	if err := s.Close(context.Background()); err != nil {
		t.Fatal(err)
	}

	rec, err = recorder.NewJSONFileRecorder(path)
	if err != nil {
		t.Fatal(err)
	}
	restarted := New(rec, nil, Options{}, nil, logger.Discard())
	if err := restarted.Open(); err != nil {
		t.Fatal(err)
	}
	got, created, err := restarted.Submit(candidate("BTCUSDT", model.SignalBuy, 0))
	if err != nil || created {
		t.Fatalf("resubmit after restart: created=%v err=%v", created, err)
	}
	if got.ID != orig.ID {
		t.Errorf("id changed across restart: %s vs %s", got.ID, orig.ID)
	}
	if recent := restarted.Recent("", 0); len(recent) != 2 || !recent[0].CandleCloseTime.After(recent[1].CandleCloseTime) {
		t.Errorf("reloaded history not newest first: %+v", recent)
	}
}

func TestRecent(t *testing.T) {
	s := New(nil, nil, Options{Retain: 3}, nil, logger.Discard())
	s.Submit(candidate("BTCUSDT", model.SignalBuy, 0))
	s.Submit(candidate("ETHUSDT", model.SignalBuy, 1))
	s.Submit(candidate("BTCUSDT", model.SignalBuy, 2))
	s.Submit(candidate("BTCUSDT", model.SignalBuy, 3))

	all := s.Recent("", 0)
	if len(all) != 3 {
		t.Fatalf("retained %d, want 3", len(all))
	}
	if !all[0].CandleCloseTime.Equal(closeTime.Add(45 * time.Minute)) {
		t.Errorf("newest first expected, got %v", all[0].CandleCloseTime)
	}
	if btc := s.Recent("BTCUSDT", 1); len(btc) != 1 || btc[0].Symbol != "BTCUSDT" {
		t.Errorf("filtered recent = %+v", btc)
	}
	// The oldest signal left the retained list and its candle is behind
	// the horizon, so it can neither dedup nor emit again.
	if _, created, err := s.Submit(candidate("BTCUSDT", model.SignalBuy, 0)); created || !errors.Is(err, ErrExpired) {
		t.Errorf("trimmed signal: created=%v err=%v, want ErrExpired", created, err)
	}
}

func TestSubmit_PrunesKeysBehindRetention(t *testing.T) {
	s := New(nil, nil, Options{Retain: 2}, nil, logger.Discard())
	for i := 0; i < 50; i++ {
		s.Submit(candidate("BTCUSDT", model.SignalBuy, i))
		s.Submit(candidate("BTCUSDT", model.SignalReversal, i))
	}

	s.mu.Lock()
	keys := len(s.byKey)
	s.mu.Unlock()
	if keys != 2 {
		t.Errorf("byKey holds %d keys, want the 2 retained", keys)
	}
	pruned := candidate("BTCUSDT", model.SignalBuy, 0)
	if _, ok := s.Get(pruned.Key()); ok {
		t.Error("key of a pruned candle still present")
	}

	// A signal on the newest retained candle still dedups.
	if _, created, err := s.Submit(candidate("BTCUSDT", model.SignalBuy, 49)); created || err != nil {
		t.Errorf("retained duplicate: created=%v err=%v", created, err)
	}
}

func TestClose_DrainsAlertsAndEndsSubscriptions(t *testing.T) {
	alerts := &fakeAlerter{}
	s := New(nil, alerts, Options{}, nil, logger.Discard())
	ch, _ := s.Subscribe()
	if err := s.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-ch; ok {
		t.Error("subscriber channel should be closed")
	}
	if !alerts.closed {
		t.Error("alert queue should be drained on close")
	}
}

func TestHub_NonBlocking(t *testing.T) {
	h := NewHub(1)
	slow, cancelSlow := h.Subscribe()
	fast, cancelFast := h.Subscribe()
	defer cancelSlow()

	sig := candidate("BTCUSDT", model.SignalBuy, 0)
	if dropped := h.Publish(sig); dropped != 0 {
		t.Fatalf("dropped %d on first publish", dropped)
	}
	<-fast
	if dropped := h.Publish(sig); dropped != 1 {
		t.Errorf("dropped = %d, want 1 for the full subscriber", dropped)
	}
	if len(slow) != 1 {
		t.Errorf("slow subscriber holds %d, want 1", len(slow))
	}

	cancelFast()
	cancelFast()
	if h.Len() != 1 {
		t.Errorf("subscribers = %d, want 1", h.Len())
	}
	<-fast // buffered before cancel
	if _, ok := <-fast; ok {
		t.Error("cancelled channel should be closed")
	}
}
