// Package remote talks to the spreadsheet web app that holds the shared
// movement table. The web app only knows whole-table reads and writes.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/erazemk/cautela/internal/model"
)

var (
	// ErrUnavailable wraps every failure to reach the remote or to make sense
	// of its answer.
	ErrUnavailable = errors.New("remote unavailable")
	// ErrNoEndpoint is returned when no endpoint has been configured.
	ErrNoEndpoint = errors.New("no remote endpoint configured")
)

// successBody is the literal the web app answers to a successful write.
const successBody = "Success"

// maxResponse caps how much of a response body is read.
const maxResponse = 32 << 20

// Client is a remote table client. The endpoint may be changed at any time.
type Client struct {
	HTTP *http.Client
	Now  func() time.Time

	mu       sync.RWMutex
	endpoint string
}

// NewClient returns a client for endpoint, which may be empty.
func NewClient(endpoint string, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	c := &Client{HTTP: httpClient, Now: time.Now}
	if endpoint != "" {
		if err := c.SetEndpoint(endpoint); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ValidateEndpoint checks that endpoint is an absolute http(s) URL.
func ValidateEndpoint(endpoint string) error {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid endpoint %q: scheme must be http or https", endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}
	return nil
}

// SetEndpoint switches the client to a new endpoint.
func (c *Client) SetEndpoint(endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if err := ValidateEndpoint(endpoint); err != nil {
		return err
	}
	c.mu.Lock()
	c.endpoint = endpoint
	c.mu.Unlock()
	return nil
}

// Endpoint returns the current endpoint.
func (c *Client) Endpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoint
}

// Fetch reads the whole remote table. Any record that fails validation fails
// the whole read; nothing is partially returned.
func (c *Client) Fetch(ctx context.Context) ([]model.Movement, error) {
	endpoint := c.Endpoint()
	if endpoint == "" {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, ErrNoEndpoint)
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	q := u.Query()
	q.Set("action", "read")
	q.Set("t", strconv.FormatInt(c.Now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building read request: %w", ErrUnavailable, err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: read response is not a list", ErrUnavailable)
	}

	var records []model.Movement
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("%w: decoding read response: %w", ErrUnavailable, err)
	}
	if records == nil {
		records = []model.Movement{}
	}
	for _, m := range records {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}
	return records, nil
}

// Push overwrites the whole remote table with records.
func (c *Client) Push(ctx context.Context, records []model.Movement) error {
	if records == nil {
		records = []model.Movement{}
	}
	return c.post(ctx, map[string]any{
		"action":    "save",
		"movements": records,
	})
}

// SendEmail asks the web app to deliver a plain text email.
func (c *Client) SendEmail(ctx context.Context, to, subject, body string) error {
	return c.post(ctx, map[string]any{
		"action":  "sendEmail",
		"to":      to,
		"subject": subject,
		"body":    body,
	})
}

func (c *Client) post(ctx context.Context, payload map[string]any) error {
	endpoint := c.Endpoint()
	if endpoint == "" {
		return fmt.Errorf("%w: %w", ErrUnavailable, ErrNoEndpoint)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %v request: %w", payload["action"], err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: building %v request: %w", ErrUnavailable, payload["action"], err)
	}
	// The web app rejects preflighted content types.
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if got := strings.TrimSpace(string(body)); got != successBody {
		return fmt.Errorf("%w: %v answered %q", ErrUnavailable, payload["action"], truncate(got, 120))
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
