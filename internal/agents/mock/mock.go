// Package mock answers every prompt with a canned risk analysis after a short delay.
package mock

import (
	"context"
	"encoding/json"
	"time"

	"github.com/joelklabo/foundry-bridge/internal/agents"
	"github.com/joelklabo/foundry-bridge/internal/config"
	"github.com/joelklabo/foundry-bridge/internal/core"
)

func init() {
	agents.MustRegister(config.ModeMock, func(s agents.Spec) (core.Agent, error) {
		return New(time.Duration(s.Mock.DelayMs)*time.Millisecond, s.Mock.Reply), nil
	})
}

// Analysis is the canned reply shape.
type Analysis struct {
	RiskScore       string   `json:"riskScore"`
	IsTestAccount   bool     `json:"isTestAccount"`
	Summary         string   `json:"summary"`
	Concerns        []string `json:"concerns"`
	RequiredActions []string `json:"requiredActions"`
	Confidence      float64  `json:"confidence"`
}

// DefaultAnalysis is returned when no reply is configured.
var DefaultAnalysis = Analysis{
	RiskScore:       "LOW",
	Summary:         "Mock analysis: Application appears compliant. No asbestos concerns detected.",
	Concerns:        []string{},
	RequiredActions: []string{},
	Confidence:      0.95,
}

type Agent struct {
	delay time.Duration
	reply string
}

// New returns a mock agent. An empty reply means the JSON string of DefaultAnalysis.
func New(delay time.Duration, reply string) *Agent {
	if reply == "" {
		b, _ := json.Marshal(DefaultAnalysis)
		reply = string(b)
	}
	return &Agent{delay: delay, reply: reply}
}

func (a *Agent) Generate(ctx context.Context, req core.AgentRequest) (core.AgentResponse, error) {
	if a.delay > 0 {
		t := time.NewTimer(a.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return core.AgentResponse{}, ctx.Err()
		case <-t.C:
		}
	}
	return core.AgentResponse{Reply: a.reply}, nil
}
