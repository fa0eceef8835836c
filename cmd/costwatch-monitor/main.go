package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/murata-lab/costwatch/internal/config"
	"github.com/murata-lab/costwatch/internal/logging"
	"github.com/murata-lab/costwatch/internal/monitor"
	"github.com/murata-lab/costwatch/internal/notifier"
	"github.com/murata-lab/costwatch/internal/providers"
)

const checkTimeout = time.Minute

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.RequireWebhook(); err != nil {
		return err
	}
	if err := cfg.RequireProvider(); err != nil {
		return err
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	logger.Info("starting costwatch-monitor",
		"interval", cfg.CheckInterval,
		"providers", cfg.Availability().Signature(),
		"warning", cfg.Budget.DailyWarning,
		"critical", cfg.Budget.DailyCritical,
	)

	budgetMonitor := monitor.NewBudgetMonitor(
		monitor.WithSource(providers.NewService(cfg, logger)),
		monitor.WithNotifier(notifier.NewDiscordNotifier(cfg.WebhookURL)),
		monitor.WithStateStore(monitor.NewFileStateStore(cfg.StateFile)),
		monitor.WithBudget(cfg.Budget),
	)
	checkLog := monitor.NewCheckLog(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	// Run immediately on startup
	runCheck(ctx, budgetMonitor, checkLog)

	for {
		select {
		case <-ticker.C:
			runCheck(ctx, budgetMonitor, checkLog)
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		}
	}
}

func runCheck(ctx context.Context, m *monitor.BudgetMonitor, l *monitor.CheckLog) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	l.Record(m.Check(ctx))
}
