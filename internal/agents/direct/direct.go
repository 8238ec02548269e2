// Package direct posts the prompt to {endpoint}/agents/{id} and relays whatever
// text the reply carries.
package direct

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/joelklabo/foundry-bridge/internal/agents"
	"github.com/joelklabo/foundry-bridge/internal/config"
	"github.com/joelklabo/foundry-bridge/internal/core"
	"github.com/joelklabo/foundry-bridge/internal/extract"
	"github.com/joelklabo/foundry-bridge/internal/upstream"
)

func init() {
	agents.MustRegister(config.ModeDirect, func(s agents.Spec) (core.Agent, error) {
		return New(s.Upstream, s.Bridge.Endpoint, s.Agent.UpstreamID, s.Logger)
	})
}

type Agent struct {
	client *upstream.Client
	url    string
	log    *slog.Logger
}

func New(client *upstream.Client, endpoint, upstreamID string, log *slog.Logger) (*Agent, error) {
	if client == nil {
		return nil, errors.New("direct mode needs an upstream client")
	}
	if endpoint == "" {
		return nil, errors.New("direct mode needs bridge.endpoint")
	}
	if upstreamID == "" {
		return nil, errors.New("direct mode needs an agent id")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Agent{
		client: client,
		url:    endpoint + "/agents/" + url.PathEscape(upstreamID),
		log:    log,
	}, nil
}

// URL is the upstream invocation URL, without api-version.
func (a *Agent) URL() string { return a.url }

func (a *Agent) Generate(ctx context.Context, req core.AgentRequest) (core.AgentResponse, error) {
	payload, err := sjson.SetBytes([]byte(`{}`), "message", req.Prompt)
	if err != nil {
		return core.AgentResponse{}, fmt.Errorf("build payload: %w", err)
	}
	body, err := a.client.PostJSON(ctx, a.url, payload)
	if err != nil {
		return core.AgentResponse{}, err
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && !gjson.ValidBytes(trimmed) {
		return core.AgentResponse{}, fmt.Errorf("upstream reply is not JSON: %s", snippet(trimmed))
	}
	reply, field := extract.Reply(body)
	a.log.Debug("direct reply", slog.String("agent", req.AgentID), slog.String("field", field), slog.Int("bytes", len(body)))
	return core.AgentResponse{Reply: reply}, nil
}

func snippet(b []byte) string {
	const n = 200
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
