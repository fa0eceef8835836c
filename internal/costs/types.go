package costs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrProviderNotConfigured is returned when an operation needs a provider
// that has no credential.
var ErrProviderNotConfigured = errors.New("provider not configured")

// Date and month key layouts.
const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// DailyCost is one provider's cost for a single UTC calendar day.
type DailyCost struct {
	Date string  `json:"date"`
	Cost float64 `json:"cost"`
}

// MonthlyCost is one provider's cost for a calendar month.
// Key is year-qualified (2024-05); Month is the short display label (May).
type MonthlyCost struct {
	Key   string  `json:"key"`
	Month string  `json:"month"`
	Cost  float64 `json:"cost"`
}

// CombinedDailyCost is the joined daily record for both providers.
type CombinedDailyCost struct {
	Date      string  `json:"date"`
	OpenAI    float64 `json:"openai"`
	Anthropic float64 `json:"anthropic"`
	Total     float64 `json:"total"`
}

// CombinedMonthlyCost is the joined monthly record for both providers.
// It carries no total; the daily record is the one summed for display.
type CombinedMonthlyCost struct {
	Key       string  `json:"key"`
	Month     string  `json:"month"`
	OpenAI    float64 `json:"openai"`
	Anthropic float64 `json:"anthropic"`
}

// ModelCost is token usage and estimated cost for one model.
type ModelCost struct {
	Model         string  `json:"model"`
	InputTokens   int64   `json:"inputTokens"`
	OutputTokens  int64   `json:"outputTokens"`
	EstimatedCost float64 `json:"estimatedCost"`
}

// DailySeries is an adapter's normalized daily output.
// Faulted is set when the upstream fetch failed and Points fell back to empty.
type DailySeries struct {
	Points  []DailyCost
	Faulted bool
}

// MonthlySeries is an adapter's normalized monthly output.
// Faulted is set when at least one month fell back to zero.
type MonthlySeries struct {
	Points  []MonthlyCost
	Faulted bool
}

// Amount is a single aggregate cost in dollars.
type Amount struct {
	USD float64
	// Faulted reports that the value is a zero fallback for a failed fetch.
	Faulted bool
	// Estimated reports that the value was derived from token usage and a
	// fixed price table instead of a cost report.
	Estimated bool
}

// Provider is a cost source normalized to dollars. Aggregate methods never
// fail; they degrade to empty or zero values and flag the fault.
type Provider interface {
	Name() string
	DailyCosts(ctx context.Context, days int) DailySeries
	MonthlyCosts(ctx context.Context, months int) MonthlySeries
	CurrentMonthCost(ctx context.Context) Amount
}

// ModelBreakdowner is implemented by providers that report per-model usage.
type ModelBreakdowner interface {
	ModelBreakdown(ctx context.Context, start, end time.Time) ([]ModelCost, error)
}

// Unit is the monetary unit a provider reports line items in.
type Unit string

const (
	UnitDollars Unit = "dollars"
	UnitCents   Unit = "cents"
)

// ParseUnit parses a unit name. Empty selects dollars.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dollars", "usd":
		return UnitDollars, nil
	case "cents":
		return UnitCents, nil
	default:
		return "", fmt.Errorf("unknown cost unit %q", s)
	}
}

// ToDollars converts a value reported in u to dollars.
func (u Unit) ToDollars(v float64) float64 {
	if u == UnitCents {
		return v / 100
	}
	return v
}

// Window helpers. All periods are computed in UTC.

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfMonth returns the first instant of t's month in UTC.
func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DailyWindow returns [midnight of now-days, now].
func DailyWindow(now time.Time, days int) (time.Time, time.Time) {
	return StartOfDay(now.AddDate(0, 0, -days)), now.UTC()
}

// MonthSpan is one calendar month [Start, End).
type MonthSpan struct {
	Start time.Time
	End   time.Time
}

// Key returns the year-qualified key, e.g. 2024-05.
func (m MonthSpan) Key() string { return m.Start.Format(MonthLayout) }

// Label returns the short display label, e.g. May.
func (m MonthSpan) Label() string { return m.Start.Format("Jan") }

// LastMonths returns the last n calendar months ending with now's month,
// oldest first.
func LastMonths(now time.Time, n int) []MonthSpan {
	if n <= 0 {
		return nil
	}
	current := StartOfMonth(now)
	spans := make([]MonthSpan, 0, n)
	for i := n - 1; i >= 0; i-- {
		start := current.AddDate(0, -i, 0)
		spans = append(spans, MonthSpan{Start: start, End: start.AddDate(0, 1, 0)})
	}
	return spans
}

// CurrentMonth returns the span of now's month.
func CurrentMonth(now time.Time) MonthSpan {
	start := StartOfMonth(now)
	return MonthSpan{Start: start, End: start.AddDate(0, 1, 0)}
}
