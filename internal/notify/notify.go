// Package notify delivers the "your session is ready" email through a
// Resend-style REST endpoint. Delivery is strictly best-effort: callers
// absorb every failure, and an unconfigured mailer is simply skipped.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultEndpoint is the hosted email API endpoint.
const DefaultEndpoint = "https://api.resend.com/emails"

// Mailer sends session-ready emails.
type Mailer struct {
	endpoint string
	apiKey   string
	from     string
	client   *http.Client
}

// NewMailer creates a mailer authenticated with apiKey, sending from the
// given address. An empty endpoint selects the hosted default.
func NewMailer(endpoint, apiKey, from string) *Mailer {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Mailer{
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// emailRequest is the wire payload of the email API.
type emailRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Notify sends the session-ready email. The display name is HTML-escaped
// before interpolation.
func (m *Mailer) Notify(ctx context.Context, email, name, url string) error {
	body := emailRequest{
		From:    m.from,
		To:      email,
		Subject: "Your Ticketdrop session",
		HTML: fmt.Sprintf("<p>Hi %s,</p><p>Your session is ready: <a href=%q>Open session</a></p>",
			html.EscapeString(name), url),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("notify: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("notify: upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
