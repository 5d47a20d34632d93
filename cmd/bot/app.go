package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"SignalSentinel/internal/api"
	"SignalSentinel/internal/collector"
	"SignalSentinel/internal/config"
	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/market"
	"SignalSentinel/internal/metrics"
	"SignalSentinel/internal/model"
	"SignalSentinel/internal/notifier"
	"SignalSentinel/internal/recorder"
	"SignalSentinel/internal/relay"
	"SignalSentinel/internal/scheduler"
	"SignalSentinel/internal/store"
	"SignalSentinel/internal/strategy"
)

const alertTimeout = time.Minute

// app holds the wired components shared by every command.
type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	metrics   *metrics.Metrics
	source    collector.Source
	collector *collector.Collector
	store     *store.Store
	board     *market.Board
	view      *market.View
	scheduler *scheduler.Scheduler
	telegram  *notifier.TelegramNotifier
}

func newSource(cfg *config.Config) collector.Source {
	if cfg.Exchange.Source == "mock" {
		return &collector.MockFetcher{}
	}
	return collector.NewBinanceFetcher(cfg.Exchange.APIKey, cfg.Exchange.APISecret,
		cfg.Exchange.BaseURL, cfg.Proxy, cfg.Exchange.RequestTimeout)
}

func strategyParams(cfg config.StrategyConfig) strategy.Params {
	return strategy.Params{
		ProximityPct:       cfg.ProximityPct,
		Oversold:           cfg.Oversold,
		Overbought:         cfg.Overbought,
		TriggerLookback:    cfg.TriggerLookback,
		Permissive:         cfg.Permissive,
		NearMissPct:        cfg.NearMissPct,
		TakeProfitR:        cfg.TakeProfitR,
		ATRStopMultiple:    cfg.ATRStopMultiple,
		ReversalConfidence: model.Confidence(cfg.ReversalConfidence),
	}
}

// newApp wires source, collector, store, alerts and scheduler. The store is
// opened, so its persisted history is loaded.
func newApp(cfg *config.Config, l *logrus.Logger) (*app, error) {
	m := metrics.New()
	a := &app{cfg: cfg, log: l, metrics: m, source: newSource(cfg)}

	a.collector = collector.New(a.source, collector.Options{
		Limit:          cfg.History.FetchLimit,
		Retain:         cfg.History.Retain,
		RequestTimeout: cfg.Exchange.RequestTimeout,
		MaxAttempts:    cfg.Exchange.MaxAttempts,
		BackoffBase:    cfg.Exchange.BackoffBase,
		BackoffMax:     cfg.Exchange.BackoffMax,
		Rate:           cfg.Exchange.RateLimit,
		Burst:          cfg.Exchange.RateBurst,
	}, m, l)

	rec, err := recorder.Open(cfg.Store.Backend, cfg.Store.SQLitePath, cfg.Store.JSONPath, l)
	if err != nil {
		return nil, fmt.Errorf("open recorder: %w", err)
	}

	var sink notifier.Notifier = notifier.NewLogNotifier(l)
	if cfg.Telegram.Enabled() {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
			cfg.Proxy, cfg.Telegram.MaxRetries, l)
		sink = a.telegram
	}
	alerts := notifier.NewQueue(sink, cfg.Telegram.QueueSize, alertTimeout, m, l)

	a.store = store.New(rec, alerts, store.Options{
		Retain:           cfg.Store.Retain,
		SubscriberBuffer: cfg.Store.SubscriberBuffer,
	}, m, l)
	if err := a.store.Open(); err != nil {
		a.store.Close(context.Background())
		return nil, fmt.Errorf("open store: %w", err)
	}

	a.board = market.NewBoard()
	a.view = market.NewView(cfg.Symbols, a.board, a.store)
	a.scheduler = scheduler.NewScheduler(cfg.Symbols, a.collector,
		strategy.NewGenerator(strategyParams(cfg.Strategy)), a.store, a.board,
		scheduler.Options{
			Entry:        cfg.EntryTimeframe(),
			Confirmation: cfg.ConfirmationTimeframe(),
			SettleDelay:  cfg.Schedule.SettleDelay,
			RunDeadline:  cfg.Schedule.RunDeadline,
			Workers:      cfg.Schedule.Workers,
			SwingLag:     cfg.Structure.SwingLag,
		}, m, l)
	return a, nil
}

func (a *app) newAPIServer() *api.Server {
	return api.NewServer(a.view, a.collector, a.store, api.Options{
		Entry:    a.cfg.EntryTimeframe(),
		Source:   a.source.Name(),
		Telegram: a.cfg.Telegram.Enabled(),
	}, a.metrics, a.log)
}

func (a *app) newRelay() (*relay.RedisRelay, error) {
	return relay.New(relay.Config{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
		Channel:  a.cfg.Redis.Channel,
	}, a.log)
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	return logger.New(cfg.Log.Level, cfg.Log.Format)
}
