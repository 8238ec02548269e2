// Package responses calls a per-agent Responses API URL.
package responses

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/sjson"

	"github.com/joelklabo/foundry-bridge/internal/agents"
	"github.com/joelklabo/foundry-bridge/internal/config"
	"github.com/joelklabo/foundry-bridge/internal/core"
	"github.com/joelklabo/foundry-bridge/internal/extract"
	"github.com/joelklabo/foundry-bridge/internal/upstream"
)

func init() {
	agents.MustRegister(config.ModeResponses, func(s agents.Spec) (core.Agent, error) {
		if s.Agent.ResponsesURL == "" {
			return nil, fmt.Errorf("missing responses_url for agent %s", s.Agent.ID)
		}
		return New(s.Upstream, s.Agent.ResponsesURL)
	})
}

type Agent struct {
	client *upstream.Client
	url    string
}

func New(client *upstream.Client, responsesURL string) (*Agent, error) {
	if client == nil {
		return nil, errors.New("responses mode needs an upstream client")
	}
	if responsesURL == "" {
		return nil, errors.New("responses mode needs a responses url")
	}
	return &Agent{client: client, url: responsesURL}, nil
}

func (a *Agent) Generate(ctx context.Context, req core.AgentRequest) (core.AgentResponse, error) {
	payload, err := sjson.SetBytes([]byte(`{}`), "input", req.Prompt)
	if err != nil {
		return core.AgentResponse{}, fmt.Errorf("build payload: %w", err)
	}
	body, err := a.client.PostJSON(upstream.Verbatim(ctx), a.url, payload)
	if err != nil {
		return core.AgentResponse{}, err
	}
	text, err := extract.OutputText(body)
	if err != nil {
		return core.AgentResponse{}, err
	}
	return core.AgentResponse{Reply: text}, nil
}
