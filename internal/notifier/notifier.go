package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/metrics"
)

// Notifier delivers alert text. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// LogNotifier writes alerts to the log. Used when Telegram is not configured.
type LogNotifier struct {
	log *logrus.Entry
}

func NewLogNotifier(l *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: logger.Component(l, "alert")}
}

func (n *LogNotifier) Notify(_ context.Context, text string) error {
	n.log.Info(text)
	return nil
}

// Queue hands alerts to a Notifier on a background goroutine so producers
// never block on delivery. A full queue drops the alert.
type Queue struct {
	notifier Notifier
	timeout  time.Duration
	metrics  *metrics.Metrics
	log      *logrus.Entry

	ch        chan string
	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewQueue starts the delivery goroutine. timeout bounds each delivery
// including its retries.
func NewQueue(n Notifier, size int, timeout time.Duration, m *metrics.Metrics, l *logrus.Logger) *Queue {
	if size <= 0 {
		size = 64
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	if m == nil {
		m = metrics.New()
	}
	q := &Queue{
		notifier: n,
		timeout:  timeout,
		metrics:  m,
		log:      logger.Component(l, "alert-queue"),
		ch:       make(chan string, size),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Enqueue schedules text for delivery. It reports false when the queue is
// full or closed.
func (q *Queue) Enqueue(text string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.ch <- text:
		return true
	default:
		q.metrics.AlertDrops.Inc()
		q.log.Warn("alert queue full, dropping alert")
		return false
	}
}

func (q *Queue) run() {
	defer q.wg.Done()
	for text := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if err := q.notifier.Notify(ctx, text); err != nil {
			q.metrics.AlertFailures.Inc()
			q.log.WithError(err).Error("alert delivery failed")
		}
		cancel()
	}
}

// Close stops accepting alerts and waits for queued ones to be delivered or
// for ctx to end.
func (q *Queue) Close(ctx context.Context) error {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.ch)
		q.mu.Unlock()
	})
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
