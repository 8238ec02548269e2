package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelklabo/foundry-bridge/internal/credential"
)

func TestTransportInjectsBearerAndAPIVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "2025-05-15-preview", r.URL.Query().Get("api-version"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"message":"hi"}`, string(body))
		_, _ = w.Write([]byte(`{"reply":"ok"}`))
	}))
	defer server.Close()

	c := NewClient(NewTransport(credential.Static("secret"), WithAPIVersion("2025-05-15-preview")))
	out, err := c.PostJSON(context.Background(), server.URL+"/agents/a", []byte(`{"message":"hi"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"reply":"ok"}`, string(out))
}

func TestTransportKeepsExplicitAPIVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-12-01-preview", r.URL.Query().Get("api-version"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewClient(NewTransport(nil, WithAPIVersion("2025-05-15-preview")))
	_, err := c.GetJSON(context.Background(), server.URL+"/agents?api-version=2024-12-01-preview")
	require.NoError(t, err)
}

func TestTransportVerbatimSkipsAPIVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a=1", r.URL.RawQuery)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewClient(NewTransport(nil, WithAPIVersion("2025-05-15-preview")))
	_, err := c.PostJSON(Verbatim(context.Background()), server.URL+"/openai/responses?a=1", []byte(`{}`))
	require.NoError(t, err)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func fixedBody(size int) roundTripFunc {
	return func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       io.NopCloser(strings.NewReader(strings.Repeat("x", size))),
			Request:    r,
		}, nil
	}
}

func TestClientRejectsOversizedReply(t *testing.T) {
	c := NewClient(NewTransport(nil, WithBase(fixedBody(maxBody+1))))
	_, err := c.PostJSON(context.Background(), "http://upstream.test/agents/a", []byte(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBodyTooLarge)

	c = NewClient(NewTransport(nil, WithBase(fixedBody(maxBody))))
	out, err := c.PostJSON(context.Background(), "http://upstream.test/agents/a", []byte(`{}`))
	require.NoError(t, err)
	assert.Len(t, out, maxBody)
}

func TestClientNon2xxIsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"agent not found"}`))
	}))
	defer server.Close()

	var observed []int
	c := NewClient(NewTransport(nil, WithObserver(func(code int) { observed = append(observed, code) })))
	_, err := c.PostJSON(context.Background(), server.URL, []byte(`{}`))
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, err.Error(), "agent not found")
	assert.Equal(t, []int{http.StatusNotFound}, observed)
}

func TestClientNetworkError(t *testing.T) {
	c := NewClient(NewTransport(nil))
	_, err := c.GetJSON(context.Background(), "http://127.0.0.1:1/unreachable")
	require.Error(t, err)
}

type failingProvider struct{}

func (failingProvider) Token(context.Context) (string, error) {
	return "", errors.New("no azure login")
}

func TestTransportTokenErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("request should not reach the upstream")
	}))
	defer server.Close()

	c := NewClient(NewTransport(failingProvider{}))
	_, err := c.PostJSON(context.Background(), server.URL, []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no azure login")
}

func TestTransportRateLimitHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewClient(NewTransport(nil, WithRateLimit(0.001, 1)))
	_, err := c.GetJSON(context.Background(), server.URL)
	require.NoError(t, err, "first request uses the burst")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.GetJSON(ctx, server.URL)
	require.Error(t, err)
}
