package openai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/murata-lab/costwatch/internal/costs"
)

type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func staticClient(status int, body string) *mockHTTPClient {
	return &mockHTTPClient{
		doFunc: func(_ *http.Request) (*http.Response, error) {
			return jsonResponse(status, body), nil
		},
	}
}

func fixedNow() time.Time {
	return time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
}

func newTestClient(hc httpClient, opts ...ClientOption) *Client {
	base := []ClientOption{
		WithHTTPClient(hc),
		WithNowFunc(fixedNow),
		WithFetchSpacing(0),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return NewClient("test-key", append(base, opts...)...)
}

func TestGetCosts(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    bool
		wantAPIErr bool
		wantCount  int
	}{
		{
			name:   "success",
			status: 200,
			body: `{"object":"page","data":[
				{"start_time":1714521600,"end_time":1714608000,"results":[{"amount":{"value":1.5,"currency":"usd"}}]},
				{"start_time":1714608000,"end_time":1714694400,"results":[]}
			],"has_more":false}`,
			wantCount: 2,
		},
		{
			name:       "api_error",
			status:     401,
			body:       `{"error":{"message":"invalid key"}}`,
			wantErr:    true,
			wantAPIErr: true,
		},
		{
			name:    "invalid_json",
			status:  200,
			body:    `{invalid`,
			wantErr: true,
		},
		{
			name:      "missing_data",
			status:    200,
			body:      `{"object":"page"}`,
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockHTTPClient{
				doFunc: func(req *http.Request) (*http.Response, error) {
					if got := req.Header.Get("Authorization"); got != "Bearer test-key" {
						t.Errorf("Authorization = %q, want %q", got, "Bearer test-key")
					}
					return jsonResponse(tt.status, tt.body), nil
				},
			}

			c := newTestClient(mock)
			start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

			page, err := c.GetCosts(context.Background(), start, start.AddDate(0, 0, 2))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				var apiErr *APIError
				if got := errors.As(err, &apiErr); got != tt.wantAPIErr {
					t.Errorf("errors.As(APIError) = %v, want %v", got, tt.wantAPIErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(page.Data) != tt.wantCount {
				t.Errorf("data count = %d, want %d", len(page.Data), tt.wantCount)
			}
		})
	}
}

func TestGetCostsURL(t *testing.T) {
	var capturedURL string
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			capturedURL = req.URL.String()
			return jsonResponse(200, `{"data":[]}`), nil
		},
	}

	c := newTestClient(mock, WithBaseURL("https://example.com"))
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	if _, err := c.GetCosts(context.Background(), start, end); err != nil {
		t.Fatal(err)
	}

	parsed, err := url.Parse(capturedURL)
	if err != nil {
		t.Fatalf("parse URL: %v", err)
	}
	if parsed.Path != "/v1/organization/costs" {
		t.Errorf("path = %q, want %q", parsed.Path, "/v1/organization/costs")
	}
	q := parsed.Query()
	checks := map[string]string{
		"start_time":   "1714521600",
		"end_time":     "1717200000",
		"bucket_width": "1d",
		"limit":        "180",
	}
	for k, want := range checks {
		if got := q.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}

func TestDailyCosts(t *testing.T) {
	body := `{"data":[
		{"start_time":1714608000,"end_time":1714694400,"results":[{"amount":{"value":0,"currency":"usd"}}]},
		{"start_time":1714521600,"end_time":1714608000,"results":[
			{"amount":{"value":6,"currency":"usd"}},
			{"amount":{"value":4,"currency":"usd"}}
		]}
	]}`
	var capturedStart string
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			capturedStart = req.URL.Query().Get("start_time")
			return jsonResponse(200, body), nil
		},
	}

	c := newTestClient(mock)
	series := c.DailyCosts(context.Background(), 1)

	if series.Faulted {
		t.Fatal("unexpected fault")
	}
	if capturedStart != "1714521600" {
		t.Errorf("start_time = %s, want midnight of 2024-05-01", capturedStart)
	}
	want := []costs.DailyCost{
		{Date: "2024-05-01", Cost: 10},
		{Date: "2024-05-02", Cost: 0},
	}
	if len(series.Points) != len(want) {
		t.Fatalf("points = %+v, want %+v", series.Points, want)
	}
	for i := range want {
		if series.Points[i] != want[i] {
			t.Errorf("point[%d] = %+v, want %+v", i, series.Points[i], want[i])
		}
	}
}

func TestDailyCosts_FollowsPages(t *testing.T) {
	var cursors []string
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			cursor := req.URL.Query().Get("page")
			cursors = append(cursors, cursor)
			if cursor == "" {
				return jsonResponse(200, `{"data":[
					{"start_time":1698796800,"results":[{"amount":{"value":1,"currency":"usd"}}]}
				],"has_more":true,"next_page":"page_AAA"}`), nil
			}
			return jsonResponse(200, `{"data":[
				{"start_time":1714608000,"results":[{"amount":{"value":2,"currency":"usd"}}]}
			],"has_more":false}`), nil
		},
	}
	c := newTestClient(mock)

	// 180 days is 181 buckets, one more than a page holds.
	series := c.DailyCosts(context.Background(), 180)
	if series.Faulted {
		t.Fatal("unexpected fault")
	}
	if len(cursors) != 2 || cursors[1] != "page_AAA" {
		t.Fatalf("cursors = %q", cursors)
	}
	if n := len(series.Points); n != 2 || series.Points[n-1].Date != "2024-05-02" {
		t.Errorf("points = %+v, want today last", series.Points)
	}
}

func TestGetCosts_Truncated(t *testing.T) {
	calls := 0
	mock := &mockHTTPClient{
		doFunc: func(_ *http.Request) (*http.Response, error) {
			calls++
			return jsonResponse(200, `{"data":[],"has_more":true,"next_page":"again"}`), nil
		},
	}
	c := newTestClient(mock)

	_, err := c.GetCosts(context.Background(), time.Now().AddDate(0, -1, 0), time.Now())
	if !errors.Is(err, ErrPageTruncated) {
		t.Fatalf("err = %v, want ErrPageTruncated", err)
	}
	if calls != maxPages {
		t.Errorf("calls = %d, want %d", calls, maxPages)
	}
	if series := c.DailyCosts(context.Background(), 7); !series.Faulted {
		t.Error("truncated daily series not flagged as faulted")
	}
}

func TestDailyCosts_Failure(t *testing.T) {
	c := newTestClient(staticClient(500, `{"error":"internal"}`))

	series := c.DailyCosts(context.Background(), 7)
	if !series.Faulted {
		t.Error("expected faulted series")
	}
	if len(series.Points) != 0 {
		t.Errorf("points = %+v, want empty", series.Points)
	}
}

func TestUnitConversion_AppliedOnceEverywhere(t *testing.T) {
	body := `{"data":[{"start_time":1714521600,"end_time":1714608000,"results":[{"amount":{"value":500,"currency":"usd"}}]}]}`
	c := newTestClient(staticClient(200, body), WithUnit(costs.UnitCents))

	daily := c.DailyCosts(context.Background(), 1)
	if len(daily.Points) != 1 || daily.Points[0].Cost != 5 {
		t.Errorf("daily = %+v, want 5.00", daily.Points)
	}

	monthly := c.MonthlyCosts(context.Background(), 1)
	if len(monthly.Points) != 1 || monthly.Points[0].Cost != 5 {
		t.Errorf("monthly = %+v, want 5.00", monthly.Points)
	}

	current := c.CurrentMonthCost(context.Background())
	if current.USD != 5 {
		t.Errorf("current = %v, want 5.00", current.USD)
	}
}

func TestUnitConversion_Dollars(t *testing.T) {
	body := `{"data":[{"start_time":1714521600,"end_time":1714608000,"results":[{"amount":{"value":500,"currency":"usd"}}]}]}`
	c := newTestClient(staticClient(200, body))

	if got := c.CurrentMonthCost(context.Background()); got.USD != 500 {
		t.Errorf("current = %v, want 500", got.USD)
	}
}

func TestMonthlyCosts(t *testing.T) {
	var starts []string
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			starts = append(starts, req.URL.Query().Get("start_time"))
			return jsonResponse(200, `{"data":[{"start_time":0,"results":[{"amount":{"value":2.5}}]}]}`), nil
		},
	}

	c := newTestClient(mock)
	series := c.MonthlyCosts(context.Background(), 3)

	if len(series.Points) != 3 {
		t.Fatalf("len = %d, want 3", len(series.Points))
	}
	wantKeys := []string{"2024-03", "2024-04", "2024-05"}
	for i, key := range wantKeys {
		if series.Points[i].Key != key {
			t.Errorf("point[%d].Key = %s, want %s", i, series.Points[i].Key, key)
		}
		if series.Points[i].Cost != 2.5 {
			t.Errorf("point[%d].Cost = %v, want 2.5", i, series.Points[i].Cost)
		}
	}
	if len(starts) != 3 {
		t.Errorf("requests = %d, want 3", len(starts))
	}
}

func TestMonthlyCosts_AllFail(t *testing.T) {
	mock := &mockHTTPClient{
		doFunc: func(_ *http.Request) (*http.Response, error) {
			return nil, errors.New("network error")
		},
	}

	c := newTestClient(mock)
	series := c.MonthlyCosts(context.Background(), 6)

	if len(series.Points) != 6 {
		t.Fatalf("len = %d, want 6", len(series.Points))
	}
	if !series.Faulted {
		t.Error("expected faulted series")
	}
	for _, p := range series.Points {
		if p.Cost != 0 {
			t.Errorf("%s cost = %v, want 0", p.Key, p.Cost)
		}
	}
}

func TestCurrentMonthCost_Failure(t *testing.T) {
	c := newTestClient(staticClient(503, `unavailable`))

	got := c.CurrentMonthCost(context.Background())
	if got.USD != 0 || !got.Faulted {
		t.Errorf("amount = %+v, want faulted zero", got)
	}
}

func TestContextCancellation(t *testing.T) {
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			if err := req.Context().Err(); err != nil {
				return nil, err
			}
			return jsonResponse(200, `{"data":[]}`), nil
		},
	}

	c := newTestClient(mock)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.GetCosts(ctx, time.Now(), time.Now()); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}
