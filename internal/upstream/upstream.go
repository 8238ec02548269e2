// Package upstream issues HTTP calls to the hosted agent service.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/joelklabo/foundry-bridge/internal/credential"
)

// maxBody caps how much of an upstream reply is read.
const maxBody = 10 << 20

// ErrBodyTooLarge is returned instead of a truncated reply.
var ErrBodyTooLarge = errors.New("upstream reply exceeds 10 MiB")

// StatusError reports a non-2xx upstream reply.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("upstream returned %d", e.Code)
	}
	return fmt.Sprintf("upstream returned %d: %s", e.Code, body)
}

type verbatimKey struct{}

// Verbatim marks ctx so the transport sends the request URL exactly as given.
// Per-agent URLs copied from the portal carry their own query.
func Verbatim(ctx context.Context) context.Context {
	return context.WithValue(ctx, verbatimKey{}, true)
}

func isVerbatim(ctx context.Context) bool {
	v, _ := ctx.Value(verbatimKey{}).(bool)
	return v
}

// Option configures the upstream transport.
type Option func(*Transport)

// WithAPIVersion appends api-version=v to every request that lacks one, unless
// the request context was marked with Verbatim.
func WithAPIVersion(v string) Option {
	return func(t *Transport) { t.apiVersion = v }
}

// WithRateLimit bounds outbound requests per second; rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(t *Transport) {
		if rps <= 0 {
			t.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBase overrides the wrapped round tripper (tests).
func WithBase(rt http.RoundTripper) Option {
	return func(t *Transport) { t.base = rt }
}

// WithObserver registers a callback invoked with every upstream status code (0 on network error).
func WithObserver(fn func(code int)) Option {
	return func(t *Transport) { t.observe = fn }
}

// Transport injects the bearer token and api-version into outbound requests.
type Transport struct {
	base       http.RoundTripper
	tokens     credential.Provider
	apiVersion string
	limiter    *rate.Limiter
	observe    func(code int)
}

// NewTransport wraps http.DefaultTransport.
func NewTransport(tokens credential.Provider, opts ...Option) *Transport {
	if tokens == nil {
		tokens = credential.None{}
	}
	t := &Transport{base: http.DefaultTransport, tokens: tokens}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}
	tok, err := t.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	// RoundTrippers must not mutate the caller's request.
	out := req.Clone(ctx)
	if tok != "" {
		out.Header.Set("Authorization", "Bearer "+tok)
	}
	if t.apiVersion != "" && !isVerbatim(ctx) {
		q := out.URL.Query()
		if q.Get("api-version") == "" {
			q.Set("api-version", t.apiVersion)
			out.URL.RawQuery = q.Encode()
		}
	}
	resp, err := t.base.RoundTrip(out)
	if t.observe != nil {
		code := 0
		if resp != nil {
			code = resp.StatusCode
		}
		t.observe(code)
	}
	return resp, err
}

// Client is a thin JSON client over an authenticated http.Client.
type Client struct {
	http *http.Client
}

// NewClient builds a Client on top of the given transport. The http.Client has no
// timeout of its own; callers bound each call with a context deadline.
func NewClient(tr http.RoundTripper) *Client {
	return &Client{http: &http.Client{Transport: tr}}
}

// HTTPClient exposes the underlying client for SDKs that take one.
func (c *Client) HTTPClient() *http.Client { return c.http }

// PostJSON sends body to url and returns the reply body of a 2xx response.
func (c *Client) PostJSON(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// GetJSON fetches url and returns the reply body of a 2xx response.
func (c *Client) GetJSON(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}
	if len(data) > maxBody {
		return nil, ErrBodyTooLarge
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}
