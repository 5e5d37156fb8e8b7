package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookPublisher POSTs messages as JSON to an HTTP endpoint, typically the mail/SMS relay.
type WebhookPublisher struct {
	client *resty.Client
	url    string
}

// NewWebhookPublisher builds a publisher with a bounded timeout and transport level retries.
func NewWebhookPublisher(url string, timeout time.Duration) *WebhookPublisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &WebhookPublisher{client: client, url: url}
}

// Publish implements Publisher.
func (w *WebhookPublisher) Publish(ctx context.Context, msg Message) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("X-Notification-Kind", msg.Kind).
		SetHeader("X-Notification-ID", msg.ID).
		SetBody(msg).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode())
	}
	return nil
}
