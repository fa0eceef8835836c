package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/murata-lab/costwatch/internal/config"
	"github.com/murata-lab/costwatch/internal/costs"
)

const commandTimeout = 30 * time.Second

// CostSource is the combined cost service the commands read from.
type CostSource interface {
	Availability() costs.Availability
	DailyCosts(ctx context.Context, days int) costs.DailyResult
	MonthlyCosts(ctx context.Context, months int) costs.MonthlyResult
	CurrentMonthSummary(ctx context.Context) costs.Summary
	ModelBreakdown(ctx context.Context, start, end time.Time) ([]costs.ModelCost, error)
}

// Command represents a Discord slash command with its handler.
type Command struct {
	Name        string
	Description string
	Options     []*discordgo.ApplicationCommandOption
	Execute     func(*discordgo.Session, *discordgo.InteractionCreate)
}

// Handler serves the cost slash commands.
type Handler struct {
	src      CostSource
	budget   config.Budget
	logger   *slog.Logger
	nowFunc  func() time.Time
	commands []Command
}

// Option configures Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// WithNowFunc sets a custom time source (for testing).
func WithNowFunc(f func() time.Time) Option {
	return func(h *Handler) {
		h.nowFunc = f
	}
}

// New creates a Handler. budget sets the daily indicator thresholds.
func New(src CostSource, budget config.Budget, opts ...Option) *Handler {
	h := &Handler{
		src:     src,
		budget:  budget,
		logger:  slog.Default(),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "handler")

	h.commands = []Command{
		{"costs", "Current month cost per provider", nil, h.cmdCosts},
		{"costs-daily", "Daily combined cost", []*discordgo.ApplicationCommandOption{
			intOption("days", "Days to show (1-31, default 7)", maxDailyDays),
		}, h.cmdDaily},
		{"costs-monthly", "Monthly combined cost", []*discordgo.ApplicationCommandOption{
			intOption("months", "Months to show (1-12, default 6)", maxMonthlyMonths),
		}, h.cmdMonthly},
		{"claude-models", "Claude usage by model", []*discordgo.ApplicationCommandOption{
			intOption("days", "Days to cover (1-31, default 30)", maxDailyDays),
		}, h.cmdModels},
	}
	return h
}

// Commands returns Discord application commands for registration.
func (h *Handler) Commands() []*discordgo.ApplicationCommand {
	result := make([]*discordgo.ApplicationCommand, len(h.commands))
	for i, cmd := range h.commands {
		result[i] = &discordgo.ApplicationCommand{
			Name:        cmd.Name,
			Description: cmd.Description,
			Options:     cmd.Options,
		}
	}
	return result
}

// Handlers returns a map of command handlers.
func (h *Handler) Handlers() map[string]func(*discordgo.Session, *discordgo.InteractionCreate) {
	result := make(map[string]func(*discordgo.Session, *discordgo.InteractionCreate))
	for _, cmd := range h.commands {
		result[cmd.Name] = cmd.Execute
	}
	return result
}

func intOption(name, desc string, upper int) *discordgo.ApplicationCommandOption {
	lower := 1.0
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        name,
		Description: desc,
		MinValue:    &lower,
		MaxValue:    float64(upper),
	}
}

// intArg returns the named integer option clamped to [1, upper], or def.
func intArg(i *discordgo.InteractionCreate, name string, def, upper int) int {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name != name {
			continue
		}
		v := int(opt.IntValue())
		if v < 1 {
			return 1
		}
		if v > upper {
			return upper
		}
		return v
	}
	return def
}

// respond sends a response to a Discord interaction.
func (h *Handler) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
	if err != nil {
		h.logger.Error("respond failed", "error", err)
	}
}

// deferredRespond acknowledges the interaction so the answer can follow
// after the provider calls finish.
func (h *Handler) deferredRespond(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		h.logger.Error("deferred respond failed", "error", err)
	}
	return err
}

func (h *Handler) followup(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: truncate(content, maxMessageLen),
	})
	if err != nil {
		h.logger.Error("followup failed", "error", err)
	}
}

// statusIndicator returns an emoji based on value thresholds.
func statusIndicator(val, warn, crit float64) string {
	switch {
	case val >= crit:
		return "🔴"
	case val >= warn:
		return "🟡"
	default:
		return "🟢"
	}
}
