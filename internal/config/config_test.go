package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const sampleYAML = `
exchange:
  source: mock
  max_attempts: 5
symbols: [btcusdt, SOLUSDT]
timeframes:
  entry: 15m
  confirmation: 4h
schedule:
  settle_delay: 10s
  run_on_start: false
strategy:
  permissive: true
  take_profit_r: 0
store:
  backend: json
telegram:
  bot_token: from-file
  chat_id: "42"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(filepath.Join(t.TempDir(), "missing.yaml"), envconfig.MapLookuper(nil))
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.EntryTimeframe() != "15m" || cfg.ConfirmationTimeframe() != "1h" {
		t.Errorf("timeframes = %s/%s", cfg.EntryTimeframe(), cfg.ConfirmationTimeframe())
	}
	if cfg.Telegram.Enabled() {
		t.Error("telegram should be disabled without a token")
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	env := envconfig.MapLookuper(map[string]string{
		"TELEGRAM_BOT_TOKEN":       "from-env",
		"EXCHANGE_REQUEST_TIMEOUT": "3s",
		"STRATEGY_OVERSOLD":        "25",
		"SCHEDULE_RUN_ON_START":    "true",
	})
	cfg, err := load(path, env)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	checks := []struct {
		name      string
		got, want any
	}{
		{"source from file", cfg.Exchange.Source, "mock"},
		{"attempts from file", cfg.Exchange.MaxAttempts, 5},
		{"unset key keeps default", cfg.Exchange.RateBurst, 20},
		{"symbols normalized", strings.Join(cfg.Symbols, ","), "BTCUSDT,SOLUSDT"},
		{"confirmation from file", cfg.Timeframes.Confirmation, "4h"},
		{"settle delay from file", cfg.Schedule.SettleDelay, 10 * time.Second},
		{"explicit zero kept", cfg.Strategy.TakeProfitR, 0.0},
		{"permissive from file", cfg.Strategy.Permissive, true},
		{"token from env", cfg.Telegram.BotToken, "from-env"},
		{"chat id from file", cfg.Telegram.ChatID, "42"},
		{"timeout from env", cfg.Exchange.RequestTimeout, 3 * time.Second},
		{"oversold from env", cfg.Strategy.Oversold, 25.0},
		{"run on start from env", cfg.Schedule.RunOnStart, true},
		{"backend from file", cfg.Store.Backend, "json"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoad_EnvSymbols(t *testing.T) {
	cfg, err := load(filepath.Join(t.TempDir(), "missing.yaml"), envconfig.MapLookuper(map[string]string{
		"SYMBOLS": "ethusdt, xrpusdt",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(cfg.Symbols, ","); got != "ETHUSDT,XRPUSDT" {
		t.Errorf("symbols = %s", got)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeConfig(t, "symbols: [unclosed")
	if _, err := load(path, envconfig.MapLookuper(nil)); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown source", func(c *Config) { c.Exchange.Source = "kraken" }, "exchange.source"},
		{"no symbols", func(c *Config) { c.Symbols = nil }, "symbols is required"},
		{"duplicate symbol", func(c *Config) { c.Symbols = []string{"BTCUSDT", "BTCUSDT"} }, "duplicate"},
		{"bad entry", func(c *Config) { c.Timeframes.Entry = "15x" }, "timeframes.entry"},
		{"confirmation not a multiple", func(c *Config) { c.Timeframes.Confirmation = "20m" }, "multiple"},
		{"confirmation equals entry", func(c *Config) { c.Timeframes.Confirmation = "15m" }, "multiple"},
		{"fetch limit too large", func(c *Config) { c.History.FetchLimit = 1500 }, "fetch_limit"},
		{"retain below fetch", func(c *Config) { c.History.Retain = 100 }, "history.retain"},
		{"settle delay too long", func(c *Config) { c.Schedule.SettleDelay = 2 * time.Minute }, "settle_delay"},
		{"no workers", func(c *Config) { c.Schedule.Workers = 0 }, "workers"},
		{"thresholds inverted", func(c *Config) { c.Strategy.Oversold = 90 }, "oversold"},
		{"bad reversal confidence", func(c *Config) { c.Strategy.ReversalConfidence = "SURE" }, "reversal_confidence"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "postgres" }, "store.backend"},
		{"token without chat", func(c *Config) { c.Telegram.BotToken = "t" }, "chat_id"},
		{"polling without token", func(c *Config) { c.Telegram.Polling = true }, "polling"},
		{"redis without channel", func(c *Config) { c.Redis.Addr = "localhost:6379"; c.Redis.Channel = "" }, "redis.channel"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}
