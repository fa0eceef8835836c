package openai

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/murata-lab/costwatch/internal/costs"
)

const (
	// pageLimit is the maximum number of daily buckets the costs endpoint
	// returns in one page.
	pageLimit = 180
	// maxPages bounds how many pages one GetCosts call follows.
	maxPages = 6
)

// ErrPageTruncated is returned when the costs endpoint still has more
// pages after maxPages, or claims more pages without a cursor.
var ErrPageTruncated = errors.New("cost pages truncated")

// GetCosts fetches daily cost buckets for [start, end), following the
// next_page cursor until the window is complete.
func (c *Client) GetCosts(ctx context.Context, start, end time.Time) (*CostPage, error) {
	params := url.Values{
		"start_time":   {strconv.FormatInt(start.Unix(), 10)},
		"end_time":     {strconv.FormatInt(end.Unix(), 10)},
		"bucket_width": {"1d"},
		"limit":        {strconv.Itoa(pageLimit)},
	}

	var all CostPage
	for n := 1; ; n++ {
		var page CostPage
		if err := c.doGet(ctx, c.baseURL+"/v1/organization/costs?"+params.Encode(), &page); err != nil {
			return nil, fmt.Errorf("fetch costs: %w", err)
		}
		all.Object = page.Object
		all.Data = append(all.Data, page.Data...)
		if !page.HasMore {
			return &all, nil
		}
		if page.NextPage == "" || n >= maxPages {
			return nil, fmt.Errorf("fetch costs: %w after %d pages", ErrPageTruncated, n)
		}
		c.logger.Debug("following cost page", "page", n+1)
		params.Set("page", page.NextPage)
	}
}

// DailyCosts returns per-day costs for [midnight of now-days, now].
// A failed fetch yields an empty, faulted series.
func (c *Client) DailyCosts(ctx context.Context, days int) costs.DailySeries {
	start, end := costs.DailyWindow(c.nowFunc(), days)

	page, err := c.GetCosts(ctx, start, end)
	if err != nil {
		c.logger.Warn("daily costs unavailable", "error", err)
		return costs.DailySeries{Points: []costs.DailyCost{}, Faulted: true}
	}
	return costs.DailySeries{Points: c.dailyPoints(page)}
}

// MonthlyCosts returns the last months oldest first, one paced fetch per
// month. Failed months are reported as 0.
func (c *Client) MonthlyCosts(ctx context.Context, months int) costs.MonthlySeries {
	return costs.Backfill(ctx, c.nowFunc(), months, c.pacer, c.logger,
		func(ctx context.Context, span costs.MonthSpan) (float64, error) {
			page, err := c.GetCosts(ctx, span.Start, span.End)
			if err != nil {
				return 0, err
			}
			return c.pageTotal(page), nil
		})
}

// CurrentMonthCost returns this month's total, or 0 flagged as faulted.
func (c *Client) CurrentMonthCost(ctx context.Context) costs.Amount {
	span := costs.CurrentMonth(c.nowFunc())

	page, err := c.GetCosts(ctx, span.Start, span.End)
	if err != nil {
		c.logger.Warn("current month cost unavailable", "error", err)
		return costs.Amount{Faulted: true}
	}
	return costs.Amount{USD: c.pageTotal(page)}
}

// bucketTotal sums a bucket's line items and converts them to dollars.
// Every method goes through here so the unit policy is applied once.
func (c *Client) bucketTotal(b CostBucket) float64 {
	var sum float64
	for _, r := range b.Results {
		sum += r.Amount.Value
	}
	return c.unit.ToDollars(sum)
}

func (c *Client) pageTotal(page *CostPage) float64 {
	var total float64
	for _, b := range page.Data {
		total += c.bucketTotal(b)
	}
	return total
}

func (c *Client) dailyPoints(page *CostPage) []costs.DailyCost {
	byDate := make(map[string]float64)
	for _, b := range page.Data {
		date := time.Unix(b.StartTime, 0).UTC().Format(costs.DateLayout)
		byDate[date] += c.bucketTotal(b)
	}

	points := make([]costs.DailyCost, 0, len(byDate))
	for date, cost := range byDate {
		points = append(points, costs.DailyCost{Date: date, Cost: cost})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}
