// Package providers builds the cost service from configuration.
package providers

import (
	"log/slog"

	"github.com/murata-lab/costwatch/internal/anthropic"
	"github.com/murata-lab/costwatch/internal/config"
	"github.com/murata-lab/costwatch/internal/costs"
	"github.com/murata-lab/costwatch/internal/openai"
)

// NewService creates the cost service with an adapter for each provider
// that has a credential.
func NewService(cfg *config.Config, logger *slog.Logger) *costs.Service {
	// Unconfigured providers must stay untyped nil so the service sees them
	// as absent.
	var oa, an costs.Provider

	if cfg.OpenAI.Configured() {
		opts := []openai.ClientOption{
			openai.WithUnit(cfg.OpenAI.Unit),
			openai.WithFetchSpacing(cfg.FetchSpacing),
			openai.WithLogger(logger),
		}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		oa = openai.NewClient(cfg.OpenAI.APIKey, opts...)
	}

	if cfg.Anthropic.Configured() {
		opts := []anthropic.ClientOption{
			anthropic.WithUnit(cfg.Anthropic.Unit),
			anthropic.WithFetchSpacing(cfg.FetchSpacing),
			anthropic.WithPriceTable(anthropic.PriceTable{
				InputPerMillion:  cfg.Pricing.InputPerMillion,
				OutputPerMillion: cfg.Pricing.OutputPerMillion,
			}),
			anthropic.WithLogger(logger),
		}
		if cfg.Anthropic.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.Anthropic.BaseURL))
		}
		an = anthropic.NewClient(cfg.Anthropic.APIKey, opts...)
	}

	return costs.NewService(oa, an, costs.WithLogger(logger))
}
