// Package notify delivers the outbound job-outcome webhooks. Delivery is
// best-effort: one attempt, bounded timeout, failures logged by the caller
// and never retried.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/joseph-ayodele/docparse/internal/common"
	"github.com/joseph-ayodele/docparse/internal/entity"
)

// Notifier posts outcome notifications to a job's callback URL.
type Notifier interface {
	Deliver(ctx context.Context, callbackURL string, payload entity.Notification) error
}

// WebhookNotifier is the production Notifier: a JSON POST to the callback.
type WebhookNotifier struct {
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

func NewWebhookNotifier(timeout time.Duration, logger *slog.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookNotifier{
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
	}
}

// Deliver sends the payload to callbackURL. When the payload carries an
// external job id, it is also appended as a document_id query parameter so
// callers that key on the URL alone can correlate. Any failure wraps
// common.ErrNotification.
func (n *WebhookNotifier) Deliver(ctx context.Context, callbackURL string, payload entity.Notification) error {
	start := time.Now()
	target := withDocumentID(callbackURL, payload.ExternalJobID)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", common.ErrNotification, err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", common.ErrNotification, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: post %s: %v", common.ErrNotification, callbackURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: %s responded %d", common.ErrNotification, callbackURL, resp.StatusCode)
	}

	n.logger.Info("notify.delivered",
		"callback_url", callbackURL,
		"status", payload.Status,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// withDocumentID appends document_id to the callback's query string. The
// callback URL is used as-is when it does not parse; delivery will surface
// the real problem.
func withDocumentID(callbackURL, externalJobID string) string {
	if externalJobID == "" {
		return callbackURL
	}
	u, err := url.Parse(callbackURL)
	if err != nil {
		return callbackURL
	}
	q := u.Query()
	q.Set("document_id", externalJobID)
	u.RawQuery = q.Encode()
	return u.String()
}
