package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"SignalSentinel/internal/calculator"
	"SignalSentinel/internal/model"
	"SignalSentinel/internal/notifier"
)

const defaultSignalLimit = 50

type signalHistory struct {
	Signals []model.Signal `json:"signals"`
	Total   int            `json:"total"`
}

// chartPoint is one candle with the indicators computed at its close.
type chartPoint struct {
	model.Candle
	Indicators model.IndicatorSnapshot `json:"indicators"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "running",
		"exchange":         s.opts.Source,
		"symbols":          s.view.Symbols(),
		"telegram_enabled": s.opts.Telegram,
		"time":             s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.view.Symbols())
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := ""
	if v := q.Get("symbol"); v != "" {
		symbol = notifier.NormalizeSymbol(v)
	}
	limit := defaultSignalLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	signals := s.view.RecentSignals(symbol, limit)
	if signals == nil {
		signals = []model.Signal{}
	}
	writeJSON(w, http.StatusOK, signalHistory{Signals: signals, Total: len(signals)})
}

// watchedSymbol resolves the {symbol} path variable, writing a 404 when the
// symbol is not configured.
func (s *Server) watchedSymbol(w http.ResponseWriter, r *http.Request) (string, bool) {
	symbol := notifier.NormalizeSymbol(mux.Vars(r)["symbol"])
	if !s.view.Watched(symbol) {
		writeError(w, http.StatusNotFound, "symbol "+symbol+" not monitored")
		return "", false
	}
	return symbol, true
}

func (s *Server) handleBias(w http.ResponseWriter, r *http.Request) {
	symbol, ok := s.watchedSymbol(w, r)
	if !ok {
		return
	}
	b, ok := s.view.Bias(symbol)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no bias for "+symbol+" yet")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	symbol, ok := s.watchedSymbol(w, r)
	if !ok {
		return
	}
	q, ok := s.view.Quote(symbol)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no price for "+symbol+" yet")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	symbol, ok := s.watchedSymbol(w, r)
	if !ok {
		return
	}
	series, ok := s.candles.Lookup(symbol, s.opts.Entry)
	if !ok || series.Len() == 0 {
		writeError(w, http.StatusServiceUnavailable, "no candles for "+symbol+" yet")
		return
	}

	candles := series.Closed(s.now())
	snaps := calculator.Compute(candles)
	points := make([]chartPoint, len(candles))
	for i, c := range candles {
		points[i] = chartPoint{Candle: c, Indicators: snaps[i]}
	}
	writeJSON(w, http.StatusOK, points)
}
