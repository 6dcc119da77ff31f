package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

const defaultWebhookTimeout = 5 * time.Second

// Webhook publica eventos como JSON en una URL (Discord, Slack o propio).
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook crea un sink HTTP. timeout <= 0 usa 5s.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &Webhook{url: url, client: &http.Client{Timeout: timeout}}
}

type webhookPayload struct {
	Content string         `json:"content"`
	Kind    string         `json:"kind"`
	Fields  map[string]any `json:"fields,omitempty"`
	At      time.Time      `json:"at"`
}

// Notify envía el evento. Los fallos se registran y se descartan.
func (w *Webhook) Notify(ctx context.Context, e domain.Event) {
	if err := w.send(ctx, e); err != nil {
		slog.Warn("webhook delivery failed", "kind", e.Kind, "err", err)
	}
}

func (w *Webhook) send(ctx context.Context, e domain.Event) error {
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	body, err := json.Marshal(webhookPayload{
		Content: fmt.Sprintf("[%s] %s", eventLabel(e.Kind), e.Message),
		Kind:    string(e.Kind),
		Fields:  e.Fields,
		At:      at,
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: status %d", resp.StatusCode)
	}
	return nil
}
