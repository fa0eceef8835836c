package costs

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Availability records which providers have credentials. It is fixed when
// the Service is built and read-only afterwards.
type Availability struct {
	OpenAI    bool `json:"openai"`
	Anthropic bool `json:"anthropic"`
}

// Signature identifies the set of active providers, for cache keys.
func (a Availability) Signature() string {
	var parts []string
	if a.OpenAI {
		parts = append(parts, "openai")
	}
	if a.Anthropic {
		parts = append(parts, "anthropic")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// Faults flags providers whose contribution is a zero fallback.
type Faults struct {
	OpenAI    bool `json:"openai"`
	Anthropic bool `json:"anthropic"`
}

// Any reports whether any provider faulted.
func (f Faults) Any() bool { return f.OpenAI || f.Anthropic }

// Summary is the current month's cost per provider.
type Summary struct {
	OpenAI    float64 `json:"openai"`
	Anthropic float64 `json:"anthropic"`
	Total     float64 `json:"total"`
	Faults    Faults  `json:"faults"`
	// AnthropicEstimated is set when the Anthropic figure came from the
	// token-usage fallback.
	AnthropicEstimated bool `json:"anthropicEstimated"`
}

// DailyResult is the combined daily series with fault flags.
type DailyResult struct {
	Points []CombinedDailyCost `json:"points"`
	Faults Faults              `json:"faults"`
}

// MonthlyResult is the combined monthly series with fault flags.
type MonthlyResult struct {
	Points []CombinedMonthlyCost `json:"points"`
	Faults Faults                `json:"faults"`
}

// Service combines both providers. It is built once at startup and shared
// by every presentation layer.
type Service struct {
	openai       Provider
	anthropic    Provider
	availability Availability
	logger       *slog.Logger
}

// ServiceOption configures Service.
type ServiceOption func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a Service. A nil provider is treated as not
// configured and is never called.
func NewService(openai, anthropic Provider, opts ...ServiceOption) *Service {
	s := &Service{
		openai:    openai,
		anthropic: anthropic,
		availability: Availability{
			OpenAI:    openai != nil,
			Anthropic: anthropic != nil,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "costs")
	return s
}

// Availability returns which providers are active.
func (s *Service) Availability() Availability {
	return s.availability
}

// DailyCosts fetches both providers concurrently and joins them by date.
func (s *Service) DailyCosts(ctx context.Context, days int) DailyResult {
	var oa, an DailySeries
	var g errgroup.Group
	if s.openai != nil {
		g.Go(func() error {
			oa = s.openai.DailyCosts(ctx, days)
			return nil
		})
	}
	if s.anthropic != nil {
		g.Go(func() error {
			an = s.anthropic.DailyCosts(ctx, days)
			return nil
		})
	}
	_ = g.Wait()

	return DailyResult{
		Points: CombineDaily(oa.Points, an.Points),
		Faults: Faults{OpenAI: oa.Faulted, Anthropic: an.Faulted},
	}
}

// MonthlyCosts backfills the last months from both providers and joins
// them by month. Each provider paces its own fetches; the two providers
// run concurrently.
func (s *Service) MonthlyCosts(ctx context.Context, months int) MonthlyResult {
	var oa, an MonthlySeries
	var g errgroup.Group
	if s.openai != nil {
		g.Go(func() error {
			oa = s.openai.MonthlyCosts(ctx, months)
			return nil
		})
	}
	if s.anthropic != nil {
		g.Go(func() error {
			an = s.anthropic.MonthlyCosts(ctx, months)
			return nil
		})
	}
	_ = g.Wait()

	return MonthlyResult{
		Points: CombineMonthly(oa.Points, an.Points),
		Faults: Faults{OpenAI: oa.Faulted, Anthropic: an.Faulted},
	}
}

// CurrentMonthSummary returns this month's cost per provider. With no
// provider configured it returns zeros without any network call.
func (s *Service) CurrentMonthSummary(ctx context.Context) Summary {
	var oa, an Amount
	var g errgroup.Group
	if s.openai != nil {
		g.Go(func() error {
			oa = s.openai.CurrentMonthCost(ctx)
			return nil
		})
	}
	if s.anthropic != nil {
		g.Go(func() error {
			an = s.anthropic.CurrentMonthCost(ctx)
			return nil
		})
	}
	_ = g.Wait()

	if oa.Faulted || an.Faulted {
		s.logger.Debug("summary degraded", "openai_faulted", oa.Faulted, "anthropic_faulted", an.Faulted)
	}
	return Summary{
		OpenAI:             oa.USD,
		Anthropic:          an.USD,
		Total:              oa.USD + an.USD,
		Faults:             Faults{OpenAI: oa.Faulted, Anthropic: an.Faulted},
		AnthropicEstimated: an.Estimated,
	}
}

// ModelBreakdown returns per-model usage from Anthropic.
func (s *Service) ModelBreakdown(ctx context.Context, start, end time.Time) ([]ModelCost, error) {
	if s.anthropic == nil {
		return nil, ErrProviderNotConfigured
	}
	mb, ok := s.anthropic.(ModelBreakdowner)
	if !ok {
		return nil, ErrProviderNotConfigured
	}
	return mb.ModelBreakdown(ctx, start, end)
}
