package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const (
	// reportLimit is the largest page of daily buckets the report
	// endpoints return.
	reportLimit = 31
	// maxReportPages bounds how many pages one report request follows.
	maxReportPages = 12
)

// ErrReportTruncated is returned when a report still has more pages after
// maxReportPages, or claims more pages without a page token.
var ErrReportTruncated = errors.New("report truncated")

func reportParams(start, end time.Time) url.Values {
	return url.Values{
		"starting_at":  {start.UTC().Format(time.RFC3339)},
		"ending_at":    {end.UTC().Format(time.RFC3339)},
		"bucket_width": {"1d"},
		"limit":        {strconv.Itoa(reportLimit)},
	}
}

// paginate calls fetch until the report reports no further pages, passing
// each next_page token back as the page parameter.
func paginate(params url.Values, fetch func(url.Values) (hasMore bool, next string, err error)) error {
	for n := 1; ; n++ {
		more, next, err := fetch(params)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		if next == "" || n >= maxReportPages {
			return fmt.Errorf("%w after %d pages", ErrReportTruncated, n)
		}
		params.Set("page", next)
	}
}

// GetCostReport fetches daily cost buckets for [start, end), following
// pages until the window is complete.
func (c *Client) GetCostReport(ctx context.Context, start, end time.Time) (*CostReport, error) {
	var report CostReport
	err := paginate(reportParams(start, end), func(params url.Values) (bool, string, error) {
		var page CostReport
		if err := c.doGet(ctx, c.baseURL+"/v1/organizations/cost_report?"+params.Encode(), &page); err != nil {
			return false, "", err
		}
		report.Data = append(report.Data, page.Data...)
		return page.HasMore, page.NextPage, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch cost: %w", err)
	}
	return &report, nil
}

// GetUsageReport fetches daily token usage for [start, end), following
// pages until the window is complete. groupBy values such as "model" are
// sent as group_by[].
func (c *Client) GetUsageReport(ctx context.Context, start, end time.Time, groupBy ...string) (*UsageReport, error) {
	params := reportParams(start, end)
	for _, g := range groupBy {
		params.Add("group_by[]", g)
	}

	var report UsageReport
	err := paginate(params, func(params url.Values) (bool, string, error) {
		var page UsageReport
		if err := c.doGet(ctx, c.baseURL+"/v1/organizations/usage_report/messages?"+params.Encode(), &page); err != nil {
			return false, "", err
		}
		report.Data = append(report.Data, page.Data...)
		return page.HasMore, page.NextPage, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch usage: %w", err)
	}
	return &report, nil
}
