package bridge

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joelklabo/foundry-bridge/internal/agents"
	"github.com/joelklabo/foundry-bridge/internal/config"
	"github.com/joelklabo/foundry-bridge/internal/core"
	"github.com/joelklabo/foundry-bridge/internal/credential"
	"github.com/joelklabo/foundry-bridge/internal/metrics"
	"github.com/joelklabo/foundry-bridge/internal/upstream"

	// Invocation modes register themselves.
	_ "github.com/joelklabo/foundry-bridge/internal/agents/direct"
	_ "github.com/joelklabo/foundry-bridge/internal/agents/echo"
	_ "github.com/joelklabo/foundry-bridge/internal/agents/mock"
	_ "github.com/joelklabo/foundry-bridge/internal/agents/responses"
	_ "github.com/joelklabo/foundry-bridge/internal/agents/threads"
)

// Tokens returns the bearer token provider for the configured auth mode.
func Tokens(cfg config.AuthConfig) (credential.Provider, error) {
	switch cfg.Mode {
	case config.AuthStatic:
		return credential.Static(cfg.StaticToken), nil
	case config.AuthNone:
		return credential.None{}, nil
	case config.AuthAzure, "":
		src, err := credential.NewAzure(cfg.Scope)
		if err != nil {
			return nil, err
		}
		cache := credential.NewCache(src, time.Duration(cfg.MarginSeconds)*time.Second)
		cache.OnRefresh = func(credential.Token) { metrics.IncTokenRefresh() }
		return cache, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %s", cfg.Mode)
	}
}

// NewUpstream builds the shared upstream client for all agents.
func NewUpstream(cfg *config.Config, tokens credential.Provider) *upstream.Client {
	return upstream.NewClient(upstream.NewTransport(tokens,
		upstream.WithAPIVersion(cfg.Bridge.APIVersion),
		upstream.WithRateLimit(cfg.Bridge.RatePerSecond, cfg.Bridge.RateBurst),
		upstream.WithObserver(metrics.ObserveUpstream),
	))
}

// BuildAgents constructs one agent per configured entry through the mode registry.
func BuildAgents(cfg *config.Config, up *upstream.Client, logger *slog.Logger) (map[string]core.Agent, error) {
	out := make(map[string]core.Agent, len(cfg.Agents))
	for _, a := range cfg.Agents {
		mode := cfg.ModeFor(a)
		ag, err := agents.Build(mode, agents.Spec{
			Agent:    a,
			Bridge:   cfg.Bridge,
			Mock:     cfg.Mock,
			Upstream: up,
			Logger:   logger.With(slog.String("agent", a.ID), slog.String("mode", mode)),
		})
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", a.ID, err)
		}
		out[a.ID] = ag
	}
	return out, nil
}

// Build wires credentials, the upstream client and every agent into a Service.
func Build(cfg *config.Config, log Log, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var tokens credential.Provider = credential.None{}
	if cfg.NeedsUpstream() {
		t, err := Tokens(cfg.Auth)
		if err != nil {
			return nil, err
		}
		tokens = t
	}
	built, err := BuildAgents(cfg, NewUpstream(cfg, tokens), logger)
	if err != nil {
		return nil, err
	}
	return New(cfg, built, log, logger), nil
}
