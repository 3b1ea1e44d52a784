// Package client implements the HTTP client for the backend collaborators:
// the streaming chat endpoint and the query endpoint.
//
// The client is transport only. It hands the chat response body to the
// session layer unread, and it never executes SQL itself; queries run
// server-side.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/glassbead-io/prism/iox"
	"github.com/glassbead-io/prism/types"
)

// DefaultTimeout is the default timeout for non-streaming requests.
// The chat stream deliberately has no client timeout; its lifetime is
// bounded by the caller's context.
const DefaultTimeout = 30 * time.Second

// Config configures the backend client.
type Config struct {
	// BaseURL is the backend base URL (required), e.g. http://localhost:8000.
	BaseURL string
	// Headers are custom HTTP headers added to each request.
	Headers map[string]string
	// Timeout is the per-request timeout for non-streaming calls
	// (default 30s).
	Timeout time.Duration
}

// Client talks to the backend over HTTP.
type Client struct {
	config    Config
	streaming *http.Client
	plain     *http.Client
}

// StatusError is returned for non-2xx HTTP responses. Wrapping the status
// code lets callers distinguish retriable (5xx) from non-retriable (4xx)
// failures.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// New creates a backend client from the given config.
// Returns an error if the base URL is empty.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("client requires a base URL")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		config:    cfg,
		streaming: &http.Client{},
		plain:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// chatRequest is the POST /chat request body.
type chatRequest struct {
	Message string `json:"message"`
}

// queryRequest is the POST /query/local_duckdb request body.
type queryRequest struct {
	SQL string `json:"sql"`
}

// Chat opens a streaming chat request and returns the event-stream body.
// The caller owns the returned reader; the session layer releases it on
// every exit path. A missing body or non-2xx status is a transport-class
// failure surfaced before any stream processing starts.
func (c *Client) Chat(ctx context.Context, message string) (io.ReadCloser, error) {
	body, err := json.Marshal(chatRequest{Message: message})
	if err != nil {
		return nil, fmt.Errorf("chat: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("chat: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	c.applyHeaders(req)

	resp, err := c.streaming.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer iox.DiscardClose(resp.Body)
		return nil, fmt.Errorf("chat: %w", readStatusError(resp))
	}
	if resp.Body == nil {
		return nil, errors.New("chat: response has no body")
	}
	return resp.Body, nil
}

// Query executes SQL server-side and returns the decoded result.
func (c *Client) Query(ctx context.Context, sql string) (*types.QueryResult, error) {
	body, err := json.Marshal(queryRequest{SQL: sql})
	if err != nil {
		return nil, fmt.Errorf("query: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/query/local_duckdb", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("query: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyHeaders(req)

	resp, err := c.plain.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("query: %w", readStatusError(resp))
	}

	var result types.QueryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("query: decode result: %w", err)
	}
	return &result, nil
}

// Health checks backend reachability.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("health: build request: %w", err)
	}
	c.applyHeaders(req)

	resp, err := c.plain.Do(req)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health: %w", readStatusError(resp))
	}
	return nil
}

func (c *Client) applyHeaders(req *http.Request) {
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}
}

// readStatusError drains a bounded slice of the error body for diagnostics.
func readStatusError(resp *http.Response) *StatusError {
	const bodyLimit = 512
	var body string
	if resp.Body != nil {
		b, err := io.ReadAll(io.LimitReader(resp.Body, bodyLimit))
		if err == nil {
			body = strings.TrimSpace(string(b))
		}
	}
	return &StatusError{Code: resp.StatusCode, Body: body}
}
