package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/model"
)

// SQLiteRecorder persists signals to a SQLite database. The full signal is
// stored as JSON next to the columns used for querying.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *logrus.Entry
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, l *logrus.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the dashboard can read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: logger.Component(l, "recorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.WithField("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			seq               INTEGER PRIMARY KEY AUTOINCREMENT,
			id                TEXT NOT NULL UNIQUE,
			symbol            TEXT NOT NULL,
			timeframe         TEXT NOT NULL,
			signal_type       TEXT NOT NULL,
			direction         TEXT,
			confidence        TEXT,
			bias              TEXT,
			entry_price       REAL,
			stop_loss         REAL,
			take_profit       REAL,
			candle_close_time INTEGER NOT NULL,
			created_at        INTEGER NOT NULL,
			payload           TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol, candle_close_time)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_close ON signals(candle_close_time)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) Append(sig *model.Signal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("encode signal %s: %w", sig.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var tp sql.NullFloat64
	if sig.TakeProfit != nil {
		tp = sql.NullFloat64{Float64: *sig.TakeProfit, Valid: true}
	}
	_, err = r.db.Exec(`INSERT OR IGNORE INTO signals
		(id, symbol, timeframe, signal_type, direction, confidence, bias,
		 entry_price, stop_loss, take_profit, candle_close_time, created_at, payload)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		sig.ID, sig.Symbol, string(sig.Timeframe), string(sig.Type), string(sig.Direction),
		string(sig.Confidence), string(sig.Bias),
		sig.EntryPrice, sig.StopLoss, tp,
		sig.CandleCloseTime.Unix(), sig.CreatedAt.Unix(), string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert signal %s: %w", sig.ID, err)
	}
	return nil
}

func (r *SQLiteRecorder) Load() ([]model.Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT payload FROM signals ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []model.Signal
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		var sig model.Signal
		if err := json.Unmarshal([]byte(payload), &sig); err != nil {
			r.log.WithError(err).Warn("skipping undecodable signal row")
			continue
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
