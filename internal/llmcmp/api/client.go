// Package api is the HTTP client for the comparison service: submitting a
// turn, refreshing the access credential, and reading account stats and
// comparison history.
package api

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

	"github.com/longkey1/llmcmp/internal/llmcmp"
)

const (
	DefaultBaseURL = "http://localhost:8000/api"
	DefaultTimeout = 120 * time.Second

	// MaxResponseSize caps how much of a response body is read.
	MaxResponseSize = 10 * 1024 * 1024

	promptsPath   = "/prompts/"
	refreshPath   = "/token/refresh/"
	userStatsPath = "/userstats/"
	historyPath   = "/history/"
)

// Client talks to the comparison service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// NewClient returns a client for the service rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit sends one turn. access may be empty for an anonymous call.
func (c *Client) Submit(ctx context.Context, access string, req PromptRequest) (*PromptResponse, error) {
	var resp PromptResponse
	if err := c.do(ctx, http.MethodPost, promptsPath, access, req, &resp); err != nil {
		return nil, err
	}
	if resp.Responses == nil {
		resp.Responses = map[string]string{}
	}
	return &resp, nil
}

// Refresh exchanges a refresh credential for a new access credential.
func (c *Client) Refresh(ctx context.Context, refresh string) (string, error) {
	var resp refreshResponse
	if err := c.do(ctx, http.MethodPost, refreshPath, "", refreshRequest{Refresh: refresh}, &resp); err != nil {
		return "", err
	}
	if resp.Access == "" {
		return "", fmt.Errorf("%w: refresh response has no access credential", llmcmp.ErrTransport)
	}
	return resp.Access, nil
}

// UserStats returns the signed-in user's account stats.
func (c *Client) UserStats(ctx context.Context, access string) (*UserStats, error) {
	var stats UserStats
	if err := c.do(ctx, http.MethodGet, userStatsPath, access, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// History returns the signed-in user's past comparisons, newest first.
func (c *Client) History(ctx context.Context, access string) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	if err := c.do(ctx, http.MethodGet, historyPath, access, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) do(ctx context.Context, method, path, access string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error marshaling request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: error sending request: %v", llmcmp.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: error reading response: %v", llmcmp.ErrTransport, err)
	}

	c.logger.DebugContext(ctx, "api request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"authenticated", access != "",
		"duration", time.Since(start),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", llmcmp.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &llmcmp.StatusError{StatusCode: resp.StatusCode, Body: truncate(string(data), 512)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: error parsing response: %v", llmcmp.ErrTransport, err)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
