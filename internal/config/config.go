package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/murata-lab/costwatch/internal/costs"
)

var (
	ErrMissingToken   = errors.New("BOT_TOKEN is required")
	ErrMissingWebhook = errors.New("DISCORD_WEBHOOK_URL is required")
	ErrNoProviders    = errors.New("neither OPENAI_ADMIN_KEY nor ANTHROPIC_ADMIN_KEY is set")
)

// EnvGetter abstracts environment variable access for DI
type EnvGetter interface {
	Getenv(key string) string
}

// osEnvGetter is the default implementation using os.Getenv
type osEnvGetter struct{}

func (o *osEnvGetter) Getenv(key string) string {
	return os.Getenv(key)
}

// Provider holds one billing provider's credential and endpoint.
type Provider struct {
	APIKey  string
	BaseURL string // empty means the public API
	Unit    costs.Unit
}

// Configured reports whether the provider has a credential.
func (p Provider) Configured() bool { return p.APIKey != "" }

// Pricing is the per-million-token price table for usage estimates.
type Pricing struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// Budget holds daily cost alert thresholds in USD.
type Budget struct {
	DailyWarning  float64 `yaml:"daily_warning"`
	DailyCritical float64 `yaml:"daily_critical"`
}

type Config struct {
	OpenAI    Provider
	Anthropic Provider

	Pricing      Pricing
	Budget       Budget
	CacheTTL     time.Duration
	FetchSpacing time.Duration

	ListenAddr string
	UIDir      string

	LogLevel  string
	LogFormat string

	BotToken string
	GuildID  string // optional: for faster command registration

	WebhookURL    string
	CheckInterval time.Duration
	StateFile     string
}

// Availability returns which providers have credentials.
func (c *Config) Availability() costs.Availability {
	return costs.Availability{
		OpenAI:    c.OpenAI.Configured(),
		Anthropic: c.Anthropic.Configured(),
	}
}

// fileConfig is the optional YAML overlay at CONFIG_PATH.
type fileConfig struct {
	Pricing       *Pricing `yaml:"pricing"`
	Budget        *Budget  `yaml:"budget"`
	CacheTTL      string   `yaml:"cache_ttl"`
	FetchSpacing  string   `yaml:"fetch_spacing"`
	OpenAIUnit    string   `yaml:"openai_cost_unit"`
	AnthropicUnit string   `yaml:"anthropic_cost_unit"`
}

// Load loads config from OS environment variables
func Load() (*Config, error) {
	return LoadWithEnv(&osEnvGetter{})
}

// LoadWithEnv loads config using the provided EnvGetter (for DI/testing).
// Values from the YAML file at CONFIG_PATH apply first; environment
// variables override them.
func LoadWithEnv(env EnvGetter) (*Config, error) {
	cfg := &Config{
		Pricing:       Pricing{InputPerMillion: 3.00, OutputPerMillion: 15.00},
		Budget:        Budget{DailyWarning: 5.0, DailyCritical: 10.0},
		CacheTTL:      5 * time.Minute,
		FetchSpacing:  costs.DefaultFetchSpacing,
		ListenAddr:    ":8080",
		LogLevel:      "info",
		LogFormat:     "text",
		CheckInterval: 5 * time.Minute,
		StateFile:     "/tmp/costwatch-state",
	}

	var fc fileConfig
	if path := env.Getenv("CONFIG_PATH"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if fc.Pricing != nil {
			cfg.Pricing = *fc.Pricing
		}
		if fc.Budget != nil {
			cfg.Budget = *fc.Budget
		}
	}

	var err error
	if cfg.CacheTTL, err = duration(first(env.Getenv("CACHE_TTL"), fc.CacheTTL), cfg.CacheTTL); err != nil {
		return nil, fmt.Errorf("CACHE_TTL: %w", err)
	}
	if cfg.FetchSpacing, err = duration(first(env.Getenv("MONTHLY_FETCH_SPACING"), fc.FetchSpacing), cfg.FetchSpacing); err != nil {
		return nil, fmt.Errorf("MONTHLY_FETCH_SPACING: %w", err)
	}
	if cfg.CheckInterval, err = duration(env.Getenv("CHECK_INTERVAL"), cfg.CheckInterval); err != nil {
		return nil, fmt.Errorf("CHECK_INTERVAL: %w", err)
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("CHECK_INTERVAL must be positive, got %s", cfg.CheckInterval)
	}

	cfg.OpenAI = Provider{
		APIKey:  env.Getenv("OPENAI_ADMIN_KEY"),
		BaseURL: env.Getenv("OPENAI_BASE_URL"),
	}
	if cfg.OpenAI.Unit, err = costs.ParseUnit(first(env.Getenv("OPENAI_COST_UNIT"), fc.OpenAIUnit)); err != nil {
		return nil, fmt.Errorf("OPENAI_COST_UNIT: %w", err)
	}
	cfg.Anthropic = Provider{
		APIKey:  env.Getenv("ANTHROPIC_ADMIN_KEY"),
		BaseURL: env.Getenv("ANTHROPIC_BASE_URL"),
	}
	if cfg.Anthropic.Unit, err = costs.ParseUnit(first(env.Getenv("ANTHROPIC_COST_UNIT"), fc.AnthropicUnit)); err != nil {
		return nil, fmt.Errorf("ANTHROPIC_COST_UNIT: %w", err)
	}

	if v := positiveFloat(env.Getenv("DAILY_BUDGET_WARN")); v > 0 {
		cfg.Budget.DailyWarning = v
	}
	if v := positiveFloat(env.Getenv("DAILY_BUDGET_CRIT")); v > 0 {
		cfg.Budget.DailyCritical = v
	}

	cfg.ListenAddr = first(env.Getenv("LISTEN_ADDR"), cfg.ListenAddr)
	cfg.UIDir = env.Getenv("UI_DIR")
	cfg.LogLevel = first(env.Getenv("LOG_LEVEL"), cfg.LogLevel)
	cfg.LogFormat = first(env.Getenv("LOG_FORMAT"), cfg.LogFormat)
	cfg.BotToken = env.Getenv("BOT_TOKEN")
	cfg.GuildID = env.Getenv("GUILD_ID")
	cfg.WebhookURL = env.Getenv("DISCORD_WEBHOOK_URL")
	cfg.StateFile = first(env.Getenv("STATE_FILE"), cfg.StateFile)

	return cfg, nil
}

// RequireProvider reports ErrNoProviders when no credential is set.
func (c *Config) RequireProvider() error {
	if !c.OpenAI.Configured() && !c.Anthropic.Configured() {
		return ErrNoProviders
	}
	return nil
}

// RequireBot reports ErrMissingToken when the bot token is unset.
func (c *Config) RequireBot() error {
	if c.BotToken == "" {
		return ErrMissingToken
	}
	return nil
}

// RequireWebhook reports ErrMissingWebhook when the webhook URL is unset.
func (c *Config) RequireWebhook() error {
	if c.WebhookURL == "" {
		return ErrMissingWebhook
	}
	return nil
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// duration parses a Go duration, or a bare integer as seconds.
func duration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	return d, nil
}

func positiveFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0
	}
	return f
}
