// Package api serves the query endpoints and the live signal stream used by
// the web dashboard.
package api

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"SignalSentinel/internal/collector"
	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/market"
	"SignalSentinel/internal/metrics"
	"SignalSentinel/internal/model"
)

// CandleSource exposes the collected series; collector.Collector implements it.
type CandleSource interface {
	Lookup(symbol string, tf model.Timeframe) (*collector.Series, bool)
}

// Subscriber hands out live signal subscriptions; store.Store implements it.
type Subscriber interface {
	Subscribe() (<-chan model.Signal, func())
}

// Options describes the running bot for the health endpoint and tunes the
// stream.
type Options struct {
	Entry        model.Timeframe
	Source       string
	Telegram     bool
	PingInterval time.Duration
}

// Server represents the HTTP API server.
type Server struct {
	view    *market.View
	candles CandleSource
	signals Subscriber
	opts    Options
	metrics *metrics.Metrics
	log     *logrus.Entry
	now     func() time.Time

	router     *mux.Router
	httpServer *http.Server
}

// NewServer creates a new API server. m may be nil.
func NewServer(view *market.View, candles CandleSource, signals Subscriber, opts Options, m *metrics.Metrics, l *logrus.Logger) *Server {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if m == nil {
		m = metrics.New()
	}
	s := &Server{
		view:    view,
		candles: candles,
		signals: signals,
		opts:    opts,
		metrics: m,
		log:     logger.Component(l, "api"),
		now:     time.Now,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	apiV1 := s.router.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	apiV1.HandleFunc("/symbols", s.handleSymbols).Methods(http.MethodGet)
	apiV1.HandleFunc("/signals", s.handleSignals).Methods(http.MethodGet)
	apiV1.HandleFunc("/bias/{symbol:.+}", s.handleBias).Methods(http.MethodGet)
	apiV1.HandleFunc("/price/{symbol:.+}", s.handlePrice).Methods(http.MethodGet)
	apiV1.HandleFunc("/chart/{symbol:.+}", s.handleChart).Methods(http.MethodGet)
	apiV1.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
}

// Handler returns the routed handler wrapped in CORS.
func (s *Server) Handler() http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "Accept", "X-Requested-With"}),
	)(s.router)
}

// Start listens on addr until Stop. It returns nil after a clean shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.log.WithField("address", addr).Info("starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return nil
}

// Stop gracefully stops the HTTP server. Open streams end when the store
// closes their subscriptions.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.log.Info("stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   wrapped.statusCode,
			"duration": time.Since(start),
			"remote":   r.RemoteAddr,
		}).Debug("http request")
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.WithFields(logrus.Fields{
					"error": err,
					"path":  r.URL.Path,
				}).Error("panic recovered")
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements the http.Hijacker interface to support WebSocket upgrades
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("ResponseWriter does not implement http.Hijacker")
}
