// Package webdriver is a small W3C WebDriver client: just enough of the
// protocol to open a session, navigate, execute scripts and quit, plus
// management of a local driver process such as geckodriver.
package webdriver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Capabilities are W3C capabilities, sent as alwaysMatch.
type Capabilities map[string]any

// Client talks to a WebDriver endpoint: a local driver or a remote grid.
type Client struct {
	httpClient *http.Client
	// onceClient makes a single attempt, for commands that must not repeat
	onceClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a client for the endpoint at baseURL, e.g.
// "http://127.0.0.1:4444" or "http://grid:4444/wd/hub".
// Connection failures are retried with backoff, except for script
// execution. WebDriver error responses are never retried.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 10
	retryClient.RetryWaitMin = 50 * time.Millisecond
	retryClient.RetryWaitMax = 500 * time.Millisecond
	retryClient.Backoff = retryablehttp.LinearJitterBackoff
	retryClient.CheckRetry = retryOnConnectionError

	// Disable retryablehttp's internal logging - we use slog instead
	retryClient.Logger = nil

	return &Client{
		httpClient: retryClient.StandardClient(),
		onceClient: retryClient.HTTPClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

func retryOnConnectionError(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err == nil {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// Status reports whether the endpoint is ready to create sessions.
func (c *Client) Status(ctx context.Context) (bool, error) {
	var status struct {
		Ready   bool   `json:"ready"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodGet, "/status", nil, &status); err != nil {
		return false, err
	}
	c.logger.Debug("WebDriver status", "ready", status.Ready, "message", status.Message)
	return status.Ready, nil
}

// NewSession creates a browser session.
func (c *Client) NewSession(ctx context.Context, caps Capabilities) (*Session, error) {
	if caps == nil {
		caps = Capabilities{}
	}
	body := map[string]any{
		"capabilities": map[string]any{
			"alwaysMatch": caps,
		},
	}

	var created struct {
		SessionID    string         `json:"sessionId"`
		Capabilities map[string]any `json:"capabilities"`
	}
	if err := c.do(ctx, http.MethodPost, "/session", body, &created); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	if created.SessionID == "" {
		return nil, fmt.Errorf("creating session: response has no session id")
	}

	c.logger.Debug("WebDriver session created",
		"session", created.SessionID,
		"browser", created.Capabilities["browserName"],
		"version", created.Capabilities["browserVersion"])

	return &Session{
		client: c,
		id:     created.SessionID,
		logger: c.logger.With("session", created.SessionID),
	}, nil
}

// do sends a command and decodes the "value" member of the response
// into out. Error responses are returned as *Error.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	return c.send(ctx, c.httpClient, method, path, in, out)
}

// doOnce is do without retries. Executing a script that drains page
// state twice would lose whatever the first attempt returned.
func (c *Client) doOnce(ctx context.Context, method, path string, in, out any) error {
	return c.send(ctx, c.onceClient, method, path, in, out)
}

func (c *Client) send(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var envelope struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		if resp.StatusCode >= 400 {
			return &Error{Status: resp.StatusCode, Code: "unknown error", Message: strings.TrimSpace(string(data))}
		}
		return fmt.Errorf("decoding response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, envelope.Value)
	}

	if out == nil || len(envelope.Value) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Value, out); err != nil {
		return fmt.Errorf("decoding response value: %w", err)
	}
	return nil
}
