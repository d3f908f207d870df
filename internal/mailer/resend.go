package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deltacron/authgate/internal/observability"
)

// DefaultAPIURL is the Resend send endpoint.
const DefaultAPIURL = "https://api.resend.com/emails"

// ResendClient sends mail through the Resend HTTP API.
type ResendClient struct {
	apiURL     string
	apiKey     string
	from       string
	httpClient *http.Client
	logger     observability.Logger
}

// ResendOption configures a ResendClient.
type ResendOption func(*ResendClient)

// WithAPIURL overrides the API endpoint, for tests or compatible services.
func WithAPIURL(url string) ResendOption {
	return func(c *ResendClient) {
		if url != "" {
			c.apiURL = url
		}
	}
}

// WithMailerHTTPClient sets a custom HTTP client.
func WithMailerHTTPClient(client *http.Client) ResendOption {
	return func(c *ResendClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMailerLogger sets the logger.
func WithMailerLogger(logger observability.Logger) ResendOption {
	return func(c *ResendClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewResendClient creates a Resend mail client. The from address should
// be "Name <address>" or a bare address.
func NewResendClient(apiKey, from string, opts ...ResendOption) (*ResendClient, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if from == "" {
		return nil, fmt.Errorf("%w: from address is required", ErrNotConfigured)
	}

	c := &ResendClient{
		apiURL:     DefaultAPIURL,
		apiKey:     apiKey,
		from:       from,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send implements Mailer.
func (c *ResendClient) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 || msg.Subject == "" || msg.HTML == "" {
		return fmt.Errorf("message missing recipient, subject, or body")
	}

	body, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("failed to encode mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mail request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mail API returned status %d: %s", resp.StatusCode, string(raw))
	}

	var result sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && result.ID != "" {
		c.logger.Info("email sent",
			observability.String("id", result.ID),
			observability.String("subject", msg.Subject),
		)
	}

	return nil
}
