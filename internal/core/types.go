package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout applies when an invoke request carries no timeout.
const DefaultTimeout = 60 * time.Second

// NoResponse is returned when an agent answered but produced no usable text.
const NoResponse = "(No response)"

var (
	// ErrUnknownAgent is returned when the requested agent id is not configured.
	ErrUnknownAgent = errors.New("unknown agent_id")
	// ErrInvalidRequest marks malformed invoke requests.
	ErrInvalidRequest = errors.New("invalid request")
)

// Agent produces a reply for a single prompt. Implementations issue at most one
// logical upstream conversation per call.
type Agent interface {
	Generate(ctx context.Context, req AgentRequest) (AgentResponse, error)
}

// AgentRequest supplies the agent with the prompt to forward.
type AgentRequest struct {
	AgentID string `json:"agent_id"`
	Prompt  string `json:"prompt"`
}

// AgentResponse is produced by the agent.
type AgentResponse struct {
	Reply string `json:"reply"`
}

// InvokeRequest is the body of POST /invoke.
type InvokeRequest struct {
	AgentID   string `json:"agent_id"`
	Prompt    string `json:"prompt"`
	TimeoutMs int    `json:"timeout_ms,omitempty"`
}

// Timeout returns the requested timeout, falling back to def when unset.
func (r InvokeRequest) Timeout(def time.Duration) time.Duration {
	if r.TimeoutMs > 0 {
		return time.Duration(r.TimeoutMs) * time.Millisecond
	}
	if def <= 0 {
		return DefaultTimeout
	}
	return def
}

// Validate checks the fields the bridge requires before looking up an agent.
func (r InvokeRequest) Validate() error {
	switch {
	case r.AgentID == "":
		return fmt.Errorf("%w: agent_id is required", ErrInvalidRequest)
	case r.Prompt == "":
		return fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	case r.TimeoutMs < 0:
		return fmt.Errorf("%w: timeout_ms must be positive", ErrInvalidRequest)
	}
	return nil
}

// InvokeResponse is returned by POST /invoke.
type InvokeResponse struct {
	Response   string `json:"response"`
	DurationMs int64  `json:"duration_ms"`
	AgentID    string `json:"agent_id"`
}

// AgentInfo describes a configured agent.
type AgentInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Mode string `json:"mode"`
}

// Health is the body of GET /health.
type Health struct {
	Status   string   `json:"status"`
	Mode     string   `json:"mode"`
	Endpoint string   `json:"endpoint,omitempty"`
	Agents   []string `json:"agents"`
}
