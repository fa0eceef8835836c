package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func TestDiscordNotifier_Send(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{"success 200", 200, false},
		{"success 204", 204, false},
		{"client error 400", 400, true},
		{"server error 500", 500, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockHTTPClient{
				doFunc: func(req *http.Request) (*http.Response, error) {
					return &http.Response{
						StatusCode: tt.statusCode,
						Body:       io.NopCloser(strings.NewReader(`{"message":"Invalid Webhook Token"}`)),
					}, nil
				},
			}

			n := NewDiscordNotifier("https://example.com/webhook", WithHTTPClient(client))
			err := n.Send(context.Background(), "Test", "Message", ColorGreen, nil)

			if (err != nil) != tt.wantErr {
				t.Errorf("Send() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), "Invalid Webhook Token") {
				t.Errorf("error = %q, want response body included", err)
			}
		})
	}
}

func TestDiscordNotifier_Send_NetworkError(t *testing.T) {
	client := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("network error")
		},
	}

	n := NewDiscordNotifier("https://example.com/webhook", WithHTTPClient(client))
	err := n.Send(context.Background(), "Test", "Message", ColorGreen, nil)

	if err == nil {
		t.Error("expected error for network failure")
	}
}

func TestDiscordNotifier_Send_PayloadFormat(t *testing.T) {
	var capturedBody []byte

	client := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			capturedBody, _ = io.ReadAll(req.Body)
			return &http.Response{
				StatusCode: 200,
				Body:       io.NopCloser(bytes.NewReader([]byte{})),
			}, nil
		},
	}

	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	n := NewDiscordNotifier("https://example.com/webhook", WithHTTPClient(client), WithNowFunc(func() time.Time { return now }))
	fields := []Field{
		{Name: "Today", Value: "$6.00", Inline: true},
	}
	_ = n.Send(context.Background(), "Title", "Description", ColorYellow, fields)

	var payload webhookPayload
	if err := json.Unmarshal(capturedBody, &payload); err != nil {
		t.Fatalf("invalid JSON payload: %v", err)
	}

	if payload.Username != "costwatch" {
		t.Errorf("username = %q, want costwatch", payload.Username)
	}
	if len(payload.Embeds) != 1 {
		t.Fatalf("embeds count = %d, want 1", len(payload.Embeds))
	}
	if payload.Embeds[0].Timestamp != "2025-01-15T12:00:00Z" {
		t.Errorf("timestamp = %q", payload.Embeds[0].Timestamp)
	}
	if payload.Embeds[0].Title != "Title" {
		t.Errorf("title = %q, want Title", payload.Embeds[0].Title)
	}
	if payload.Embeds[0].Color != int(ColorYellow) {
		t.Errorf("color = %d, want %d", payload.Embeds[0].Color, ColorYellow)
	}
	if len(payload.Embeds[0].Fields) != 1 {
		t.Errorf("fields count = %d, want 1", len(payload.Embeds[0].Fields))
	}
}

func TestDiscordNotifier_Username(t *testing.T) {
	var payload webhookPayload
	client := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			_ = json.NewDecoder(req.Body).Decode(&payload)
			return &http.Response{StatusCode: 204, Body: io.NopCloser(bytes.NewReader(nil))}, nil
		},
	}

	n := NewDiscordNotifier("https://example.com/webhook", WithHTTPClient(client), WithUsername("budget-bot"))
	if err := n.Send(context.Background(), "t", "m", ColorBlue, nil); err != nil {
		t.Fatal(err)
	}
	if payload.Username != "budget-bot" {
		t.Errorf("username = %q, want budget-bot", payload.Username)
	}
}

func TestDiscordNotifier_ContextCancelled(t *testing.T) {
	client := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return nil, req.Context().Err()
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := NewDiscordNotifier("https://example.com/webhook", WithHTTPClient(client))
	err := n.Send(ctx, "t", "m", ColorBlue, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestColor_Values(t *testing.T) {
	if ColorGreen != 5763719 {
		t.Errorf("ColorGreen = %d, want 5763719", ColorGreen)
	}
	if ColorYellow != 16776960 {
		t.Errorf("ColorYellow = %d, want 16776960", ColorYellow)
	}
	if ColorRed != 15548997 {
		t.Errorf("ColorRed = %d, want 15548997", ColorRed)
	}
	if ColorBlue != 5793266 {
		t.Errorf("ColorBlue = %d, want 5793266", ColorBlue)
	}
}
