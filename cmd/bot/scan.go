package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"SignalSentinel/internal/model"
	"SignalSentinel/internal/notifier"
)

var outputJSON bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Evaluate every symbol once and print new signals",
	Long: `Fetch both timeframes for every configured symbol, evaluate the latest
closed entry candle and print the signals it produced. Signals go through
the store, so they are persisted and alerted exactly like in run mode.`,
	RunE: runScan,
}

var signalsCmd = &cobra.Command{
	Use:   "signals [SYMBOL]",
	Short: "Print recorded signals",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSignals,
}

var signalsLimit int

func init() {
	scanCmd.Flags().BoolVar(&outputJSON, "json", false, "print signals as JSON")
	signalsCmd.Flags().BoolVar(&outputJSON, "json", false, "print signals as JSON")
	signalsCmd.Flags().IntVarP(&signalsLimit, "limit", "n", 20, "maximum signals to print")
	rootCmd.AddCommand(scanCmd, signalsCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, setupLogger(cfg))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	signals, unsubscribe := a.store.Subscribe()
	a.scheduler.RunOnce(ctx)
	unsubscribe()

	var found []model.Signal
	for sig := range signals {
		found = append(found, sig)
	}
	if err := a.store.Close(context.Background()); err != nil {
		a.log.WithError(err).Warn("store shutdown")
	}
	return printSignals(cmd.OutOrStdout(), found)
}

func runSignals(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, setupLogger(cfg))
	if err != nil {
		return err
	}
	defer a.store.Close(context.Background())

	symbol := ""
	if len(args) == 1 {
		symbol = notifier.NormalizeSymbol(args[0])
	}
	return printSignals(cmd.OutOrStdout(), a.store.Recent(symbol, signalsLimit))
}

func printSignals(w io.Writer, signals []model.Signal) error {
	if outputJSON {
		if signals == nil {
			signals = []model.Signal{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(signals)
	}
	if len(signals) == 0 {
		_, err := fmt.Fprintln(w, "no signals")
		return err
	}
	_, err := fmt.Fprintln(w, notifier.FormatSignalList(signals))
	return err
}
