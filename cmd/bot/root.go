package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"SignalSentinel/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Multi-timeframe crypto signal bot",
	Long: `SignalSentinel watches a set of spot symbols, resolves a higher-timeframe
bias, reads entry-timeframe market structure and emits BUY, SELL and
REVERSAL signals to Telegram, a REST/WebSocket API and an optional Redis
channel.

Configuration comes from configs/config.yaml, then .env, then the process
environment. CONFIG_PATH or --config selects another file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $CONFIG_PATH or "+config.DefaultPath+")")
}

// loadConfig resolves the config path and validates the result.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}
