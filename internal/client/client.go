// Package client talks to a running bridge.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joelklabo/foundry-bridge/internal/core"
	"github.com/joelklabo/foundry-bridge/internal/store"
)

// DefaultURL is used when neither a flag nor AGENT_BRIDGE_SERVICE_URL is set.
const DefaultURL = "http://127.0.0.1:8001"

// APIError is a non-2xx reply from the bridge.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("bridge returned %d", e.Status)
	}
	return fmt.Sprintf("bridge returned %d: %s", e.Status, e.Detail)
}

// Client wraps http.Client with the bridge endpoints.
type Client struct {
	base       string
	httpClient *http.Client
	token      string
}

// Option configures the Client.
type Option func(*Client)

// WithTimeout sets the overall request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = timeout
		c.httpClient = &hc
	}
}

// WithToken sends Authorization: Bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client for the bridge at baseURL. Without WithTimeout the
// http.Client has no limit of its own and calls are bounded by their ctx.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		base:       strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke calls POST /invoke.
func (c *Client) Invoke(ctx context.Context, req core.InvokeRequest) (core.InvokeResponse, error) {
	var out core.InvokeResponse
	body, err := json.Marshal(req)
	if err != nil {
		return out, err
	}
	err = c.do(ctx, http.MethodPost, "/invoke", body, &out)
	return out, err
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (core.Health, error) {
	var out core.Health
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

// Agents calls GET /agents.
func (c *Client) Agents(ctx context.Context) ([]core.AgentInfo, error) {
	var out struct {
		Agents []core.AgentInfo `json:"agents"`
	}
	err := c.do(ctx, http.MethodGet, "/agents", nil, &out)
	return out.Agents, err
}

// Invocations calls GET /invocations; limit <= 0 uses the server default.
func (c *Client) Invocations(ctx context.Context, limit int) ([]store.Record, error) {
	path := "/invocations"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var out struct {
		Invocations []store.Record `json:"invocations"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Invocations, err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var detail struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &detail) == nil && detail.Detail != "" {
			apiErr.Detail = detail.Detail
		} else {
			apiErr.Detail = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
