package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookSender posts a JSON payload to a fixed URL. The payload key
// differs per service ("content" for Discord, "text" for Slack and
// generic receivers).
type WebhookSender struct {
	name       string
	url        string
	payloadKey string
	client     *resty.Client
}

func NewWebhookSender(name, url, payloadKey string) *WebhookSender {
	return &WebhookSender{
		name:       name,
		url:        url,
		payloadKey: payloadKey,
		client:     resty.New().SetTimeout(10 * time.Second),
	}
}

func (w *WebhookSender) Name() string { return w.name }

func (w *WebhookSender) Send(ctx context.Context, message string) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(map[string]string{w.payloadKey: message}).
		Post(w.url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("webhook %s returned %s", w.name, resp.Status())
	}
	return nil
}
