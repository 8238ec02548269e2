package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelklabo/foundry-bridge/internal/core"
)

func TestInvokeRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/invoke", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var req core.InvokeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 1500, req.TimeoutMs)
		_ = json.NewEncoder(w).Encode(core.InvokeResponse{Response: "hi " + req.Prompt, DurationMs: 12, AgentID: req.AgentID})
	}))
	defer server.Close()

	c := New(server.URL+"/", WithToken("tok"))
	out, err := c.Invoke(context.Background(), core.InvokeRequest{AgentID: "EFSAGENT", Prompt: "there", TimeoutMs: 1500})
	require.NoError(t, err)
	assert.Equal(t, "hi there", out.Response)
	assert.Equal(t, int64(12), out.DurationMs)
	assert.Equal(t, "EFSAGENT", out.AgentID)
}

func TestErrorDetailIsSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Unknown agent_id 'X'"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).Invoke(context.Background(), core.InvokeRequest{AgentID: "X", Prompt: "p"})
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Unknown agent_id 'X'", apiErr.Detail)
}

func TestHealthAgentsInvocations(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy","mode":"mock","agents":["A","B"]}`))
	})
	mux.HandleFunc("/agents", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"agents":[{"id":"A","name":"Agent 1","mode":"mock"}]}`))
	})
	mux.HandleFunc("/invocations", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"invocations":[{"id":"x","agent_id":"A","status":"ok"}]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(server.URL)
	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, []string{"A", "B"}, h.Agents)

	list, err := c.Agents(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, core.AgentInfo{ID: "A", Name: "Agent 1", Mode: "mock"}, list[0])

	recs, err := c.Invocations(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "A", recs[0].AgentID)
}

func TestDefaultURL(t *testing.T) {
	assert.Equal(t, DefaultURL, New("").base)
}

func TestDefaultClientLeavesTimeoutToContext(t *testing.T) {
	assert.Zero(t, New("").httpClient.Timeout)
	assert.Equal(t, 5*time.Second, New("", WithTimeout(5*time.Second)).httpClient.Timeout)
}

func TestWithHTTPClientIsUsed(t *testing.T) {
	var used bool
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		used = true
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{"status":"healthy","mode":"echo","agents":["ECHO"]}`)),
			Request:    r,
		}, nil
	})}

	h, err := New("http://bridge.test", WithHTTPClient(hc), WithTimeout(time.Second)).Health(context.Background())
	require.NoError(t, err)
	assert.True(t, used)
	assert.Equal(t, "healthy", h.Status)
	assert.Zero(t, hc.Timeout, "WithTimeout must not mutate a caller's client")
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
