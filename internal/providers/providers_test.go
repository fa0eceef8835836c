package providers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/murata-lab/costwatch/internal/config"
	"github.com/murata-lab/costwatch/internal/costs"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewService_Availability(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want costs.Availability
	}{
		{"none", config.Config{}, costs.Availability{}},
		{"openai", config.Config{OpenAI: config.Provider{APIKey: "sk"}}, costs.Availability{OpenAI: true}},
		{"anthropic", config.Config{Anthropic: config.Provider{APIKey: "sk-ant"}}, costs.Availability{Anthropic: true}},
		{"both", config.Config{
			OpenAI:    config.Provider{APIKey: "sk"},
			Anthropic: config.Provider{APIKey: "sk-ant", BaseURL: "http://127.0.0.1:1"},
		}, costs.Availability{OpenAI: true, Anthropic: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&tt.cfg, discardLogger())
			if got := svc.Availability(); got != tt.want {
				t.Errorf("Availability() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewService_NoProvidersMakesNoCalls(t *testing.T) {
	svc := NewService(&config.Config{}, discardLogger())

	sum := svc.CurrentMonthSummary(context.Background())
	if sum != (costs.Summary{}) {
		t.Errorf("summary = %+v, want zero", sum)
	}

	_, err := svc.ModelBreakdown(context.Background(), time.Now().AddDate(0, 0, -1), time.Now())
	if !errors.Is(err, costs.ErrProviderNotConfigured) {
		t.Errorf("ModelBreakdown err = %v, want ErrProviderNotConfigured", err)
	}
}
