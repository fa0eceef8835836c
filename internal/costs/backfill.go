package costs

import (
	"context"
	"log/slog"
	"time"
)

// MonthFetcher returns the dollar cost for one month span.
type MonthFetcher func(ctx context.Context, span MonthSpan) (float64, error)

// Backfill fetches the last n months oldest first, one call per month,
// pausing between the end of one fetch and the start of the next. A
// failed month is recorded as 0 and flags the series as faulted;
// it never aborts the remaining months. The result always holds max(n, 0)
// entries.
func Backfill(ctx context.Context, now time.Time, n int, pacer *Pacer, logger *slog.Logger, fetch MonthFetcher) MonthlySeries {
	spans := LastMonths(now, n)
	series := MonthlySeries{Points: make([]MonthlyCost, 0, len(spans))}

	for i, span := range spans {
		point := MonthlyCost{Key: span.Key(), Month: span.Label()}

		err := ctx.Err()
		if i > 0 && err == nil {
			err = pacer.Pause(ctx)
		}
		if err != nil {
			logger.Warn("monthly fetch skipped", "month", point.Key, "error", err)
			series.Faulted = true
			series.Points = append(series.Points, point)
			continue
		}

		cost, err := fetch(ctx, span)
		if err != nil {
			logger.Warn("monthly fetch failed", "month", point.Key, "error", err)
			series.Faulted = true
		} else {
			point.Cost = cost
		}
		series.Points = append(series.Points, point)
	}
	return series
}
