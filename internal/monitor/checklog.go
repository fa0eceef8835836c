package monitor

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// CheckLog reports budget check outcomes without flooding the log while
// a provider or the webhook stays down. Failures are grouped by kind: the
// failing stage of the check, or partial provider data. A repeat of the
// same failure is logged at most once per interval with the number of
// checks it hid.
type CheckLog struct {
	mu       sync.Mutex
	logger   *slog.Logger
	interval time.Duration
	nowFunc  func() time.Time
	failing  map[string]*failure
}

type failure struct {
	msg      string
	loggedAt time.Time
	hidden   int
}

// CheckLogOption configures CheckLog.
type CheckLogOption func(*CheckLog)

// WithRepeatInterval sets how often an unchanged failure is logged again.
func WithRepeatInterval(d time.Duration) CheckLogOption {
	return func(l *CheckLog) {
		l.interval = d
	}
}

// WithCheckLogNowFunc sets a custom time source (for testing).
func WithCheckLogNowFunc(f func() time.Time) CheckLogOption {
	return func(l *CheckLog) {
		l.nowFunc = f
	}
}

// NewCheckLog creates a CheckLog writing to logger.
func NewCheckLog(logger *slog.Logger, opts ...CheckLogOption) *CheckLog {
	l := &CheckLog{
		logger:   logger,
		interval: time.Hour,
		nowFunc:  time.Now,
		failing:  make(map[string]*failure),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record logs the result of one BudgetMonitor.Check. A nil err after
// failures logs a single recovery line and forgets them.
func (l *CheckLog) Record(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err == nil {
		if len(l.failing) > 0 {
			l.logger.Info("budget check recovered", "after", l.failingKinds())
			clear(l.failing)
		}
		return
	}

	kind := failureKind(err)
	msg := err.Error()
	now := l.nowFunc()

	f, ok := l.failing[kind]
	switch {
	case !ok || f.msg != msg:
		l.failing[kind] = &failure{msg: msg, loggedAt: now}
		l.emit(kind, err, 0)
	case now.Sub(f.loggedAt) >= l.interval:
		l.emit(kind, err, f.hidden)
		f.loggedAt = now
		f.hidden = 0
	default:
		f.hidden++
	}
}

// failureKind groups errors that should share one suppression window.
func failureKind(err error) string {
	if errors.Is(err, ErrPartialData) {
		return "partial data"
	}
	var ce *CheckError
	if errors.As(err, &ce) {
		return ce.Stage
	}
	return "check"
}

// emit logs partial data at warn since the state was still saved; any
// other failure left the check incomplete.
func (l *CheckLog) emit(kind string, err error, hidden int) {
	attrs := []any{"kind", kind, "error", err.Error()}
	if hidden > 0 {
		attrs = append(attrs, "repeated", hidden)
	}
	if kind == "partial data" {
		l.logger.Warn("budget check used partial data", attrs...)
		return
	}
	l.logger.Error("budget check failed", attrs...)
}

func (l *CheckLog) failingKinds() []string {
	kinds := make([]string, 0, len(l.failing))
	for k := range l.failing {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
