package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the signal pipeline. Each
// instance owns a private registry so tests can build as many as they need.
type Metrics struct {
	Registry *prometheus.Registry

	Cycles          *prometheus.CounterVec // labels: result=ok|error|timeout
	CycleDuration   prometheus.Histogram
	DroppedTriggers *prometheus.CounterVec // labels: symbol

	FetchAttempts *prometheus.CounterVec // labels: timeframe
	FetchErrors   *prometheus.CounterVec // labels: kind=transient|rate_limited|permanent

	Signals       *prometheus.CounterVec // labels: type, confidence
	Duplicates    prometheus.Counter
	FanoutDrops   prometheus.Counter
	PersistErrors prometheus.Counter
	AlertFailures prometheus.Counter
	AlertDrops    prometheus.Counter
}

// New registers and returns all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_cycles_total",
			Help: "Symbol pipeline cycles by result",
		}, []string{"result"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_cycle_duration_seconds",
			Help:    "Duration of one symbol pipeline cycle",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		DroppedTriggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_dropped_triggers_total",
			Help: "Triggers dropped because the symbol was still running",
		}, []string{"symbol"}),
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_fetch_attempts_total",
			Help: "Candle fetch attempts by timeframe",
		}, []string{"timeframe"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_fetch_errors_total",
			Help: "Failed candle fetch attempts by error kind",
		}, []string{"kind"}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_signals_total",
			Help: "New signals accepted by the store",
		}, []string{"type", "confidence"}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_duplicate_submissions_total",
			Help: "Submissions rejected by the dedup key",
		}),
		FanoutDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_fanout_drops_total",
			Help: "Signals not delivered to a full subscriber channel",
		}),
		PersistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_persist_errors_total",
			Help: "Signals that could not be appended to the signal log",
		}),
		AlertFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_alert_failures_total",
			Help: "Alerts that failed after all retries",
		}),
		AlertDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_alert_drops_total",
			Help: "Alerts dropped because the queue was full",
		}),
	}

	m.Registry.MustRegister(
		m.Cycles,
		m.CycleDuration,
		m.DroppedTriggers,
		m.FetchAttempts,
		m.FetchErrors,
		m.Signals,
		m.Duplicates,
		m.FanoutDrops,
		m.PersistErrors,
		m.AlertFailures,
		m.AlertDrops,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
