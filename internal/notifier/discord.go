package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultUsername = "costwatch"

// Color represents Discord embed colors
type Color int

const (
	ColorGreen  Color = 5763719  // 0x57f287
	ColorYellow Color = 16776960 // 0xffff00
	ColorRed    Color = 15548997 // 0xed4245
	ColorBlue   Color = 5793266  // 0x5865f2
)

// Field represents a Discord embed field
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Notifier sends notifications
type Notifier interface {
	Send(ctx context.Context, title, message string, color Color, fields []Field) error
}

// httpClient abstracts HTTP operations (ISP)
type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DiscordNotifier sends notifications via Discord webhook
type DiscordNotifier struct {
	webhookURL string
	username   string
	client     httpClient
	nowFunc    func() time.Time
}

// Option configures DiscordNotifier
type Option func(*DiscordNotifier)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c httpClient) Option {
	return func(n *DiscordNotifier) {
		n.client = c
	}
}

// WithUsername overrides the webhook display name.
func WithUsername(name string) Option {
	return func(n *DiscordNotifier) {
		n.username = name
	}
}

// WithNowFunc sets a custom time source (for testing).
func WithNowFunc(f func() time.Time) Option {
	return func(n *DiscordNotifier) {
		n.nowFunc = f
	}
}

// NewDiscordNotifier creates a new Discord notifier
func NewDiscordNotifier(webhookURL string, opts ...Option) *DiscordNotifier {
	n := &DiscordNotifier{
		webhookURL: webhookURL,
		username:   defaultUsername,
		client:     &http.Client{Timeout: 10 * time.Second},
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// webhookPayload is the Discord webhook JSON structure
type webhookPayload struct {
	Username string  `json:"username"`
	Embeds   []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Send posts one embed to the webhook.
func (d *DiscordNotifier) Send(ctx context.Context, title, message string, color Color, fields []Field) error {
	embedFields := make([]embedField, len(fields))
	for i, f := range fields {
		embedFields[i] = embedField(f)
	}

	payload := webhookPayload{
		Username: d.username,
		Embeds: []embed{
			{
				Title:       title,
				Description: message,
				Color:       int(color),
				Fields:      embedFields,
				Timestamp:   d.nowFunc().UTC().Format(time.RFC3339),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord API error: status %d: %s", resp.StatusCode, snippet)
	}

	return nil
}
