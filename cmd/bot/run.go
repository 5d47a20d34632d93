package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"SignalSentinel/internal/api"
	"SignalSentinel/internal/notifier"
)

const shutdownTimeout = 10 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot until interrupted",
	Long: `Start the scheduler, the REST/WebSocket API, the Telegram command
poller and the Redis relay, as configured. SIGINT or SIGTERM stops new work,
waits for running symbol tasks and drains queued alerts.`,
	RunE: runBot,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	l := setupLogger(cfg)
	l.WithField("symbols", cfg.Symbols).Info("SignalSentinel starting")

	a, err := newApp(cfg, l)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var background sync.WaitGroup

	var server *api.Server
	if cfg.API.Listen != "" {
		server = a.newAPIServer()
		background.Add(1)
		go func() {
			defer background.Done()
			if err := server.Start(cfg.API.Listen); err != nil {
				l.WithError(err).Error("api server stopped")
			}
		}()
	}

	if cfg.Redis.Addr != "" {
		r, err := a.newRelay()
		if err != nil {
			l.WithError(err).Warn("redis relay disabled")
		} else {
			signals, unsubscribe := a.store.Subscribe()
			background.Add(1)
			go func() {
				defer background.Done()
				defer r.Close()
				defer unsubscribe()
				r.Run(ctx, signals)
			}()
		}
	}

	if a.telegram != nil && cfg.Telegram.Polling {
		background.Add(1)
		go func() {
			defer background.Done()
			a.telegram.StartPolling(ctx, notifier.NewCommandHandler(a.view))
		}()
		l.Info("telegram polling started")
	}

	if cfg.Schedule.RunOnStart {
		l.Info("run_on_start enabled, scanning now")
		a.scheduler.RunOnce(ctx)
	}
	if err := a.scheduler.Start(ctx); err != nil {
		cancel()
		if server != nil {
			server.Stop(context.Background())
		}
		a.store.Close(context.Background())
		background.Wait()
		return err
	}

	l.Info("SignalSentinel is running, press Ctrl+C to stop")
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	sig := <-interrupt
	l.WithField("signal", sig.String()).Info("shutdown signal received, stopping")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	a.scheduler.Stop()
	if server != nil {
		if err := server.Stop(shutdownCtx); err != nil {
			l.WithError(err).Warn("api shutdown")
		}
	}
	cancel()
	if err := a.store.Close(shutdownCtx); err != nil {
		l.WithError(err).Warn("store shutdown")
	}
	background.Wait()
	l.Info("SignalSentinel stopped")
	return nil
}
