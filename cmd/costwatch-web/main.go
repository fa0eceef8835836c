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

	"github.com/murata-lab/costwatch/internal/cache"
	"github.com/murata-lab/costwatch/internal/config"
	"github.com/murata-lab/costwatch/internal/logging"
	"github.com/murata-lab/costwatch/internal/providers"
	"github.com/murata-lab/costwatch/internal/web"
)

const cacheMaxBytes = 64 << 20

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

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := cfg.RequireProvider(); err != nil {
		logger.Warn("no provider configured, dashboard will show zeros", "error", err)
	}

	c, err := cache.NewRistretto(cacheMaxBytes, cache.WithLogger(logger.With("component", "cache")))
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer c.Close()

	opts := []web.Option{
		web.WithCache(c, cfg.CacheTTL),
		web.WithLogger(logger),
	}
	if cfg.UIDir != "" {
		opts = append(opts, web.WithUIDir(cfg.UIDir))
	}
	if cfg.OpenAI.Configured() {
		t, err := web.OpenAIProxy(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey)
		if err != nil {
			return err
		}
		opts = append(opts, web.WithProxy(t))
	}
	if cfg.Anthropic.Configured() {
		t, err := web.AnthropicProxy(cfg.Anthropic.BaseURL, cfg.Anthropic.APIKey)
		if err != nil {
			return err
		}
		opts = append(opts, web.WithProxy(t))
	}

	srv := web.New(providers.NewService(cfg, logger), opts...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.ListenAddr)
	}()

	// Setup signal handling
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
