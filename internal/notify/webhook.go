package notify

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"text/template"
	"time"

	"example.com/eligibility/internal/pipeline"
)

// DefaultWebhookPayload is the body template used when no custom template
// is configured. It renders against the full RunReport.
const DefaultWebhookPayload = `{"load_run_id":"{{.LoadRunID}}","status":"{{.Status}}","error":{{printf "%q" .Error}}}`

// WebhookNotifier POSTs a templated JSON payload to a configured URL when
// a run finishes.
type WebhookNotifier struct {
	url        string
	tmpl       *template.Template
	httpClient *http.Client
}

// NewWebhookNotifier parses the payload template and returns the notifier.
// An empty template selects DefaultWebhookPayload.
func NewWebhookNotifier(url, payloadTemplate string) (*WebhookNotifier, error) {
	if payloadTemplate == "" {
		payloadTemplate = DefaultWebhookPayload
	}
	tmpl, err := template.New("webhook").Parse(payloadTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook payload template: %w", err)
	}
	return &WebhookNotifier{
		url:        url,
		tmpl:       tmpl,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// NotifyRun renders the payload for one finished run and delivers it.
func (w *WebhookNotifier) NotifyRun(ctx context.Context, report *pipeline.RunReport) error {
	var body bytes.Buffer
	if err := w.tmpl.Execute(&body, report); err != nil {
		return fmt.Errorf("failed to render webhook payload for run %s: %w", report.LoadRunID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, &body)
	if err != nil {
		return fmt.Errorf("failed to create webhook request for run %s: %w", report.LoadRunID, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook POST to %s failed for run %s: %w", w.url, report.LoadRunID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook at %s returned status %d for run %s", w.url, resp.StatusCode, report.LoadRunID)
	}
	log.Printf("Webhook notified for run %s (HTTP %d)", report.LoadRunID, resp.StatusCode)
	return nil
}
