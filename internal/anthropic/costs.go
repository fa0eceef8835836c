package anthropic

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/murata-lab/costwatch/internal/costs"
)

// DailyCosts returns per-day costs for [midnight of now-days, now].
// A failed fetch yields an empty, faulted series.
func (c *Client) DailyCosts(ctx context.Context, days int) costs.DailySeries {
	start, end := costs.DailyWindow(c.nowFunc(), days)

	report, err := c.GetCostReport(ctx, start, end)
	if err != nil {
		c.logger.Warn("daily costs unavailable", "error", err)
		return costs.DailySeries{Points: []costs.DailyCost{}, Faulted: true}
	}

	byDate := make(map[string]float64)
	for _, b := range report.Data {
		date, ok := bucketDate(b.StartingAt)
		if !ok {
			c.logger.Debug("skipping bucket with bad start", "starting_at", b.StartingAt)
			continue
		}
		byDate[date] += c.bucketTotal(b)
	}

	points := make([]costs.DailyCost, 0, len(byDate))
	for date, cost := range byDate {
		points = append(points, costs.DailyCost{Date: date, Cost: cost})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return costs.DailySeries{Points: points}
}

// MonthlyCosts returns the last months oldest first, one paced fetch per
// month. Failed months are reported as 0.
func (c *Client) MonthlyCosts(ctx context.Context, months int) costs.MonthlySeries {
	return costs.Backfill(ctx, c.nowFunc(), months, c.pacer, c.logger,
		func(ctx context.Context, span costs.MonthSpan) (float64, error) {
			report, err := c.GetCostReport(ctx, span.Start, span.End)
			if err != nil {
				return 0, err
			}
			return c.reportTotal(report), nil
		})
}

// CurrentMonthCost returns this month's total from the cost report. When
// the cost report fails it estimates the total from token usage and flags
// the result as estimated; when both fail it returns 0 flagged as faulted.
func (c *Client) CurrentMonthCost(ctx context.Context) costs.Amount {
	span := costs.CurrentMonth(c.nowFunc())

	report, err := c.GetCostReport(ctx, span.Start, span.End)
	if err == nil {
		return costs.Amount{USD: c.reportTotal(report)}
	}
	c.logger.Warn("cost report unavailable, estimating from usage", "error", err)

	usage, err := c.GetUsageReport(ctx, span.Start, span.End)
	if err != nil {
		c.logger.Warn("usage report unavailable", "error", err)
		return costs.Amount{Faulted: true}
	}

	var total float64
	for _, b := range usage.Data {
		for _, r := range b.Results {
			total += c.prices.Estimate(r.TotalInputTokens(), r.OutputTokens)
		}
	}
	return costs.Amount{USD: total, Estimated: true}
}

// ModelBreakdown groups token usage in [start, end) by model and prices it
// with the fixed price table. Fetch errors are returned.
func (c *Client) ModelBreakdown(ctx context.Context, start, end time.Time) ([]costs.ModelCost, error) {
	usage, err := c.GetUsageReport(ctx, start, end, "model")
	if err != nil {
		return nil, err
	}

	results := lo.FlatMap(usage.Data, func(b UsageBucket, _ int) []UsageResult { return b.Results })
	byModel := lo.GroupBy(results, func(r UsageResult) string { return r.Model })

	out := make([]costs.ModelCost, 0, len(byModel))
	for model, rs := range byModel {
		input := lo.SumBy(rs, func(r UsageResult) int64 { return r.TotalInputTokens() })
		output := lo.SumBy(rs, func(r UsageResult) int64 { return r.OutputTokens })
		out = append(out, costs.ModelCost{
			Model:         model,
			InputTokens:   input,
			OutputTokens:  output,
			EstimatedCost: c.prices.Estimate(input, output),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out, nil
}

// bucketTotal sums a bucket's parsed amounts and converts them to dollars.
func (c *Client) bucketTotal(b CostBucket) float64 {
	var sum float64
	for _, r := range b.Results {
		sum += float64(r.Amount)
	}
	return c.unit.ToDollars(sum)
}

func (c *Client) reportTotal(report *CostReport) float64 {
	var total float64
	for _, b := range report.Data {
		total += c.bucketTotal(b)
	}
	return total
}

func bucketDate(startingAt string) (string, bool) {
	t, err := time.Parse(time.RFC3339, startingAt)
	if err != nil {
		return "", false
	}
	return t.UTC().Format(costs.DateLayout), true
}
