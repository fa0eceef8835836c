package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/murata-lab/costwatch/internal/costs"
)

const defaultBaseURL = "https://api.openai.com"

// defaultHTTPClient provides a safety-net timeout longer than typical
// context deadlines (30s) so context cancellation fires first.
var defaultHTTPClient = &http.Client{Timeout: 60 * time.Second}

// httpClient abstracts HTTP operations for testing.
type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError is a non-2xx response from the OpenAI API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status %d: %s", e.StatusCode, e.Body)
}

// Client is an OpenAI organization Admin API client and cost adapter.
type Client struct {
	apiKey  string
	baseURL string
	http    httpClient
	unit    costs.Unit
	pacer   *costs.Pacer
	logger  *slog.Logger
	nowFunc func() time.Time
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c httpClient) ClientOption {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) ClientOption {
	return func(cl *Client) {
		cl.baseURL = url
	}
}

// WithUnit sets the unit line-item values are reported in.
func WithUnit(u costs.Unit) ClientOption {
	return func(cl *Client) {
		cl.unit = u
	}
}

// WithFetchSpacing sets the minimum gap between monthly fetches.
func WithFetchSpacing(d time.Duration) ClientOption {
	return func(cl *Client) {
		cl.pacer = costs.NewPacer(d)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(cl *Client) {
		cl.logger = l
	}
}

// WithNowFunc sets a custom time source (for testing).
func WithNowFunc(f func() time.Time) ClientOption {
	return func(cl *Client) {
		cl.nowFunc = f
	}
}

// NewClient creates a new OpenAI Admin API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    defaultHTTPClient,
		unit:    costs.UnitDollars,
		pacer:   costs.NewPacer(costs.DefaultFetchSpacing),
		logger:  slog.Default(),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "openai")
	return c
}

// Name implements costs.Provider.
func (c *Client) Name() string { return "openai" }

// Unit returns the unit line items are interpreted in.
func (c *Client) Unit() costs.Unit { return c.unit }

func (c *Client) doGet(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	// Limit response body to 1MB to prevent memory exhaustion
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody := string(body)
		if len(errBody) > 512 {
			errBody = errBody[:512] + "...(truncated)"
		}
		return &APIError{StatusCode: resp.StatusCode, Body: errBody}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
