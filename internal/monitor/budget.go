package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/murata-lab/costwatch/internal/config"
	"github.com/murata-lab/costwatch/internal/costs"
	"github.com/murata-lab/costwatch/internal/notifier"
)

// ErrPartialData is returned by Check when a provider failed and today's
// total may be undercounted.
var ErrPartialData = errors.New("cost data incomplete")

// CheckError reports the stage of a budget check that failed.
type CheckError struct {
	Stage string
	Err   error
}

func (e *CheckError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *CheckError) Unwrap() error { return e.Err }

// DailySource supplies the combined daily series.
type DailySource interface {
	DailyCosts(ctx context.Context, days int) costs.DailyResult
}

// BudgetMonitor watches today's combined cost across providers and
// alerts on threshold crossings.
type BudgetMonitor struct {
	source     DailySource
	notifier   notifier.Notifier
	stateStore StateStore
	budget     config.Budget
	hostname   string
	nowFunc    func() time.Time
}

// Option configures BudgetMonitor.
type Option func(*BudgetMonitor)

// WithSource sets the cost source.
func WithSource(s DailySource) Option {
	return func(m *BudgetMonitor) {
		m.source = s
	}
}

// WithNotifier sets the notifier.
func WithNotifier(n notifier.Notifier) Option {
	return func(m *BudgetMonitor) {
		m.notifier = n
	}
}

// WithStateStore sets the state store.
func WithStateStore(s StateStore) Option {
	return func(m *BudgetMonitor) {
		m.stateStore = s
	}
}

// WithBudget sets the daily thresholds.
func WithBudget(b config.Budget) Option {
	return func(m *BudgetMonitor) {
		m.budget = b
	}
}

// WithNowFunc sets a custom time source (for testing).
func WithNowFunc(f func() time.Time) Option {
	return func(m *BudgetMonitor) {
		m.nowFunc = f
	}
}

// NewBudgetMonitor creates a new budget monitor.
func NewBudgetMonitor(opts ...Option) *BudgetMonitor {
	hostname, _ := os.Hostname()
	m := &BudgetMonitor{
		budget:   config.Budget{DailyWarning: 5.0, DailyCritical: 10.0},
		hostname: hostname,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Check fetches today's cost and notifies on state transitions. While a
// provider is faulted the state can rise but never fall, and Check
// returns ErrPartialData after saving.
func (m *BudgetMonitor) Check(ctx context.Context) error {
	now := m.nowFunc()
	todayStr := now.UTC().Format(costs.DateLayout)

	res := m.source.DailyCosts(ctx, 1)
	today := todayPoint(res.Points, todayStr)

	prev, err := m.stateStore.Load()
	if err != nil {
		return &CheckError{Stage: "load state", Err: err}
	}

	// Reset state on new day
	if prev.Date != todayStr {
		prev = BudgetRecord{State: BudgetNormal, Date: todayStr}
	}

	next := m.determineState(today.Total)

	var partial error
	if res.Faults.Any() {
		partial = fmt.Errorf("%w: %s failed", ErrPartialData, faultedProviders(res.Faults))
		if next.rank() < prev.State.rank() {
			next = prev.State
		}
	}

	if next != prev.State {
		if err := m.sendTransition(ctx, prev.State, next, today); err != nil {
			return &CheckError{Stage: "send notification", Err: err}
		}
	}

	if err := m.stateStore.Save(BudgetRecord{State: next, Date: todayStr}); err != nil {
		return &CheckError{Stage: "save state", Err: err}
	}
	return partial
}

func todayPoint(points []costs.CombinedDailyCost, date string) costs.CombinedDailyCost {
	for _, p := range points {
		if p.Date == date {
			return p
		}
	}
	return costs.CombinedDailyCost{Date: date}
}

func faultedProviders(f costs.Faults) string {
	var names []string
	if f.OpenAI {
		names = append(names, "openai")
	}
	if f.Anthropic {
		names = append(names, "anthropic")
	}
	return strings.Join(names, ", ")
}

func (m *BudgetMonitor) determineState(cost float64) BudgetState {
	switch {
	case cost >= m.budget.DailyCritical:
		return BudgetCritical
	case cost >= m.budget.DailyWarning:
		return BudgetWarning
	default:
		return BudgetNormal
	}
}

func (m *BudgetMonitor) sendTransition(ctx context.Context, from, to BudgetState, today costs.CombinedDailyCost) error {
	fields := []notifier.Field{
		{Name: "Today", Value: fmt.Sprintf("$%.2f", today.Total), Inline: true},
		{Name: "OpenAI", Value: fmt.Sprintf("$%.2f", today.OpenAI), Inline: true},
		{Name: "Anthropic", Value: fmt.Sprintf("$%.2f", today.Anthropic), Inline: true},
		{Name: "Warning", Value: fmt.Sprintf("$%.2f", m.budget.DailyWarning), Inline: true},
		{Name: "Critical", Value: fmt.Sprintf("$%.2f", m.budget.DailyCritical), Inline: true},
	}

	switch to {
	case BudgetCritical:
		return m.notifier.Send(ctx,
			fmt.Sprintf("🔴 API cost critical - %s", m.hostname),
			"Today's combined cost exceeded the critical threshold.",
			notifier.ColorRed,
			fields,
		)
	case BudgetWarning:
		return m.notifier.Send(ctx,
			fmt.Sprintf("🟡 API cost warning - %s", m.hostname),
			"Today's combined cost exceeded the warning threshold.",
			notifier.ColorYellow,
			fields,
		)
	case BudgetNormal:
		if from != BudgetNormal {
			return m.notifier.Send(ctx,
				fmt.Sprintf("🟢 API cost back to normal - %s", m.hostname),
				"Today's combined cost is back under the warning threshold.",
				notifier.ColorGreen,
				fields,
			)
		}
	}
	return nil
}
