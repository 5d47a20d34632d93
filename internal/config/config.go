package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"SignalSentinel/internal/model"
)

// DefaultPath is used when neither --config nor CONFIG_PATH is given.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Exchange   ExchangeConfig  `yaml:"exchange" env:", prefix=EXCHANGE_"`
	Symbols    []string        `yaml:"symbols" env:"SYMBOLS, overwrite"`
	Timeframes TimeframeConfig `yaml:"timeframes" env:", prefix=TIMEFRAME_"`
	History    HistoryConfig   `yaml:"history" env:", prefix=HISTORY_"`
	Schedule   ScheduleConfig  `yaml:"schedule" env:", prefix=SCHEDULE_"`
	Structure  StructureConfig `yaml:"structure" env:", prefix=STRUCTURE_"`
	Strategy   StrategyConfig  `yaml:"strategy" env:", prefix=STRATEGY_"`
	Store      StoreConfig     `yaml:"store" env:", prefix=STORE_"`
	Telegram   TelegramConfig  `yaml:"telegram" env:", prefix=TELEGRAM_"`
	Redis      RedisConfig     `yaml:"redis" env:", prefix=REDIS_"`
	API        APIConfig       `yaml:"api" env:", prefix=API_"`
	Log        LogConfig       `yaml:"log" env:", prefix=LOG_"`
	Proxy      string          `yaml:"proxy" env:"HTTPS_PROXY, overwrite"`
}

type ExchangeConfig struct {
	Source         string        `yaml:"source" env:"SOURCE, overwrite"` // binance or mock
	APIKey         string        `yaml:"api_key" env:"API_KEY, overwrite"`
	APISecret      string        `yaml:"api_secret" env:"API_SECRET, overwrite"`
	BaseURL        string        `yaml:"base_url" env:"BASE_URL, overwrite"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT, overwrite"`
	RateLimit      float64       `yaml:"rate_limit" env:"RATE_LIMIT, overwrite"`
	RateBurst      int           `yaml:"rate_burst" env:"RATE_BURST, overwrite"`
	MaxAttempts    int           `yaml:"max_attempts" env:"MAX_ATTEMPTS, overwrite"`
	BackoffBase    time.Duration `yaml:"backoff_base" env:"BACKOFF_BASE, overwrite"`
	BackoffMax     time.Duration `yaml:"backoff_max" env:"BACKOFF_MAX, overwrite"`
}

type TimeframeConfig struct {
	Entry        string `yaml:"entry" env:"ENTRY, overwrite"`
	Confirmation string `yaml:"confirmation" env:"CONFIRMATION, overwrite"`
}

type HistoryConfig struct {
	FetchLimit int `yaml:"fetch_limit" env:"FETCH_LIMIT, overwrite"`
	Retain     int `yaml:"retain" env:"RETAIN, overwrite"`
}

type ScheduleConfig struct {
	SettleDelay time.Duration `yaml:"settle_delay" env:"SETTLE_DELAY, overwrite"`
	RunDeadline time.Duration `yaml:"run_deadline" env:"RUN_DEADLINE, overwrite"`
	Workers     int           `yaml:"workers" env:"WORKERS, overwrite"`
	RunOnStart  bool          `yaml:"run_on_start" env:"RUN_ON_START, overwrite"`
}

type StructureConfig struct {
	SwingLag int `yaml:"swing_lag" env:"SWING_LAG, overwrite"`
}

type StrategyConfig struct {
	ProximityPct       float64 `yaml:"proximity_pct" env:"PROXIMITY_PCT, overwrite"`
	Oversold           float64 `yaml:"oversold" env:"OVERSOLD, overwrite"`
	Overbought         float64 `yaml:"overbought" env:"OVERBOUGHT, overwrite"`
	TriggerLookback    int     `yaml:"trigger_lookback" env:"TRIGGER_LOOKBACK, overwrite"`
	Permissive         bool    `yaml:"permissive" env:"PERMISSIVE, overwrite"`
	NearMissPct        float64 `yaml:"near_miss_pct" env:"NEAR_MISS_PCT, overwrite"`
	TakeProfitR        float64 `yaml:"take_profit_r" env:"TAKE_PROFIT_R, overwrite"`
	ATRStopMultiple    float64 `yaml:"atr_stop_multiple" env:"ATR_STOP_MULTIPLE, overwrite"`
	ReversalConfidence string  `yaml:"reversal_confidence" env:"REVERSAL_CONFIDENCE, overwrite"`
}

type StoreConfig struct {
	Backend          string `yaml:"backend" env:"BACKEND, overwrite"` // sqlite, json or none
	SQLitePath       string `yaml:"sqlite_path" env:"SQLITE_PATH, overwrite"`
	JSONPath         string `yaml:"json_path" env:"JSON_PATH, overwrite"`
	Retain           int    `yaml:"retain" env:"RETAIN, overwrite"`
	SubscriberBuffer int    `yaml:"subscriber_buffer" env:"SUBSCRIBER_BUFFER, overwrite"`
}

type TelegramConfig struct {
	BotToken   string `yaml:"bot_token" env:"BOT_TOKEN, overwrite"`
	ChatID     string `yaml:"chat_id" env:"CHAT_ID, overwrite"`
	MaxRetries int    `yaml:"max_retries" env:"MAX_RETRIES, overwrite"`
	Polling    bool   `yaml:"polling" env:"POLLING, overwrite"`
	QueueSize  int    `yaml:"queue_size" env:"QUEUE_SIZE, overwrite"`
}

// Enabled reports whether alerts go to Telegram rather than the log.
func (t TelegramConfig) Enabled() bool { return t.BotToken != "" }

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR, overwrite"` // empty disables the relay
	Password string `yaml:"password" env:"PASSWORD, overwrite"`
	DB       int    `yaml:"db" env:"DB, overwrite"`
	Channel  string `yaml:"channel" env:"CHANNEL, overwrite"`
}

type APIConfig struct {
	Listen string `yaml:"listen" env:"LISTEN, overwrite"` // empty disables the API
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL, overwrite"`
	Format string `yaml:"format" env:"FORMAT, overwrite"` // text or json
}

// Default returns the configuration used for every key the file and the
// environment leave unset.
func Default() *Config {
	return &Config{
		Exchange: ExchangeConfig{
			Source:         "binance",
			RequestTimeout: 10 * time.Second,
			RateLimit:      10,
			RateBurst:      20,
			MaxAttempts:    3,
			BackoffBase:    500 * time.Millisecond,
			BackoffMax:     8 * time.Second,
		},
		Symbols:    []string{"BTCUSDT", "ETHUSDT"},
		Timeframes: TimeframeConfig{Entry: "15m", Confirmation: "1h"},
		History:    HistoryConfig{FetchLimit: 300, Retain: 500},
		Schedule: ScheduleConfig{
			SettleDelay: 5 * time.Second,
			RunDeadline: 60 * time.Second,
			Workers:     4,
			RunOnStart:  true,
		},
		Structure: StructureConfig{SwingLag: 2},
		Strategy: StrategyConfig{
			ProximityPct:       0.5,
			Oversold:           20,
			Overbought:         80,
			TriggerLookback:    2,
			NearMissPct:        0.25,
			TakeProfitR:        2,
			ATRStopMultiple:    1.5,
			ReversalConfidence: string(model.ConfidenceMedium),
		},
		Store: StoreConfig{
			Backend:          "sqlite",
			SQLitePath:       "data/signal_sentinel.db",
			JSONPath:         "data/signals.json",
			Retain:           500,
			SubscriberBuffer: 64,
		},
		Telegram: TelegramConfig{MaxRetries: 3, QueueSize: 100},
		Redis:    RedisConfig{Channel: "signalsentinel:signals"},
		API:      APIConfig{Listen: ":8080"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads config from a YAML file, then .env, then environment variable
// overrides, over the defaults. A missing file or .env is not an error.
func Load(path string) (*Config, error) {
	return load(path, envconfig.OsLookuper())
}

func load(path string, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already set in the process.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	for i, s := range cfg.Symbols {
		cfg.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	return cfg, nil
}

// EntryTimeframe returns the timeframe signals are generated on.
func (c *Config) EntryTimeframe() model.Timeframe { return model.Timeframe(c.Timeframes.Entry) }

// ConfirmationTimeframe returns the timeframe the bias is resolved on.
func (c *Config) ConfirmationTimeframe() model.Timeframe {
	return model.Timeframe(c.Timeframes.Confirmation)
}

// Validate checks that all fields are usable together.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	switch c.Exchange.Source {
	case "binance", "mock":
	default:
		fail("exchange.source must be binance or mock, got %q", c.Exchange.Source)
	}
	if c.Exchange.MaxAttempts <= 0 {
		fail("exchange.max_attempts must be positive")
	}
	if c.Exchange.RateLimit <= 0 || c.Exchange.RateBurst <= 0 {
		fail("exchange.rate_limit and exchange.rate_burst must be positive")
	}
	if c.Exchange.BackoffBase <= 0 || c.Exchange.BackoffMax < c.Exchange.BackoffBase {
		fail("exchange.backoff_max must be at least exchange.backoff_base")
	}

	if len(c.Symbols) == 0 {
		fail("symbols is required")
	}
	seen := make(map[string]bool, len(c.Symbols))
	for _, s := range c.Symbols {
		if s == "" || seen[s] {
			fail("symbols: empty or duplicate entry %q", s)
		}
		seen[s] = true
	}

	entry, err := c.EntryTimeframe().Duration()
	if err != nil {
		fail("timeframes.entry: %w", err)
	}
	confirm, err := c.ConfirmationTimeframe().Duration()
	if err != nil {
		fail("timeframes.confirmation: %w", err)
	}
	if entry > 0 && confirm > 0 && (confirm <= entry || confirm%entry != 0) {
		fail("timeframes.confirmation must be a multiple of timeframes.entry")
	}

	if c.History.FetchLimit <= 0 || c.History.FetchLimit > 1000 {
		fail("history.fetch_limit must be in 1..1000")
	}
	if c.History.Retain < c.History.FetchLimit {
		fail("history.retain must be at least history.fetch_limit")
	}

	if c.Schedule.SettleDelay < 0 || c.Schedule.SettleDelay >= time.Minute {
		fail("schedule.settle_delay must be in [0s, 1m)")
	}
	if c.Schedule.RunDeadline <= 0 {
		fail("schedule.run_deadline must be positive")
	}
	if c.Schedule.Workers <= 0 {
		fail("schedule.workers must be positive")
	}
	if c.Structure.SwingLag <= 0 {
		fail("structure.swing_lag must be positive")
	}

	s := c.Strategy
	if s.ProximityPct <= 0 {
		fail("strategy.proximity_pct must be positive")
	}
	if s.Oversold < 0 || s.Overbought > 100 || s.Oversold >= s.Overbought {
		fail("strategy.oversold must be below strategy.overbought within 0..100")
	}
	if s.TriggerLookback <= 0 {
		fail("strategy.trigger_lookback must be positive")
	}
	if s.NearMissPct < 0 || s.TakeProfitR < 0 || s.ATRStopMultiple <= 0 {
		fail("strategy.near_miss_pct and take_profit_r must be >= 0, atr_stop_multiple > 0")
	}
	if !model.Confidence(s.ReversalConfidence).Valid() {
		fail("strategy.reversal_confidence must be LOW, MEDIUM or HIGH")
	}

	switch c.Store.Backend {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			fail("store.sqlite_path is required for the sqlite backend")
		}
	case "json":
		if c.Store.JSONPath == "" {
			fail("store.json_path is required for the json backend")
		}
	case "none":
	default:
		fail("store.backend must be sqlite, json or none, got %q", c.Store.Backend)
	}

	if c.Telegram.Enabled() && c.Telegram.ChatID == "" {
		fail("telegram.chat_id is required with telegram.bot_token")
	}
	if c.Telegram.Polling && !c.Telegram.Enabled() {
		fail("telegram.polling needs telegram.bot_token")
	}
	if c.Redis.Addr != "" && c.Redis.Channel == "" {
		fail("redis.channel is required with redis.addr")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		fail("log.format must be text or json")
	}
	return errors.Join(errs...)
}
