package echo

import (
	"context"

	"github.com/joelklabo/foundry-bridge/internal/agents"
	"github.com/joelklabo/foundry-bridge/internal/config"
	"github.com/joelklabo/foundry-bridge/internal/core"
)

func init() {
	agents.MustRegister(config.ModeEcho, func(agents.Spec) (core.Agent, error) { return New(), nil })
}

// Agent echoes prompts; intended for tests and smoke checks.
type Agent struct{}

func New() *Agent { return &Agent{} }

func (a *Agent) Generate(ctx context.Context, req core.AgentRequest) (core.AgentResponse, error) {
	if err := ctx.Err(); err != nil {
		return core.AgentResponse{}, err
	}
	return core.AgentResponse{Reply: req.Prompt}, nil
}
