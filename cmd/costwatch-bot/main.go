package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	"github.com/murata-lab/costwatch/internal/config"
	"github.com/murata-lab/costwatch/internal/handler"
	"github.com/murata-lab/costwatch/internal/logging"
	"github.com/murata-lab/costwatch/internal/providers"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env from current dir, then from executable dir
	_ = godotenv.Load()
	if exe, err := os.Executable(); err == nil {
		_ = godotenv.Load(filepath.Join(filepath.Dir(exe), ".env"))
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.RequireBot(); err != nil {
		return err
	}
	if err := cfg.RequireProvider(); err != nil {
		return err
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	h := handler.New(providers.NewService(cfg, logger), cfg.Budget, handler.WithLogger(logger))
	handlers := h.Handlers()

	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}

	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		logger.Info("logged in", "user", s.State.User.Username)
	})

	dg.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if fn, ok := handlers[i.ApplicationCommandData().Name]; ok {
			fn(s, i)
		}
	})

	if err := dg.Open(); err != nil {
		return fmt.Errorf("open connection: %w", err)
	}
	defer dg.Close()

	// Register commands
	cmds := h.Commands()
	registeredCmds := make([]*discordgo.ApplicationCommand, len(cmds))
	for i, cmd := range cmds {
		registered, err := dg.ApplicationCommandCreate(dg.State.User.ID, cfg.GuildID, cmd)
		if err != nil {
			logger.Error("command register failed", "command", cmd.Name, "error", err)
			continue
		}
		registeredCmds[i] = registered
		logger.Info("registered command", "command", cmd.Name)
	}

	logger.Info("bot is running", "providers", cfg.Availability().Signature())

	// Wait for interrupt
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")

	// Cleanup commands on shutdown (optional, for dev)
	if os.Getenv("CLEANUP_COMMANDS") == "1" {
		for _, cmd := range registeredCmds {
			if cmd != nil {
				if err := dg.ApplicationCommandDelete(dg.State.User.ID, cfg.GuildID, cmd.ID); err != nil {
					logger.Warn("command delete failed", "command", cmd.Name, "error", err)
				}
			}
		}
	}
	return nil
}
