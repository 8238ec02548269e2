// Package bridge routes invoke requests to the configured agents.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joelklabo/foundry-bridge/internal/config"
	"github.com/joelklabo/foundry-bridge/internal/core"
	"github.com/joelklabo/foundry-bridge/internal/metrics"
	"github.com/joelklabo/foundry-bridge/internal/store"
)

// Log persists invocation records. *store.Store satisfies it.
type Log interface {
	Append(rec store.Record) error
	Recent(limit int) ([]store.Record, error)
}

type entry struct {
	info  core.AgentInfo
	agent core.Agent
}

// Service holds the configured agents and invokes them.
type Service struct {
	mode     string
	endpoint string
	timeout  time.Duration
	order    []string
	agents   map[string]entry
	log      Log
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a Service over already constructed agents. Config entries without
// a built agent are skipped. log may be nil.
func New(cfg *config.Config, built map[string]core.Agent, log Log, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		mode:     cfg.Bridge.Mode,
		endpoint: cfg.Bridge.Endpoint,
		timeout:  time.Duration(cfg.Bridge.DefaultTimeoutMs) * time.Millisecond,
		agents:   make(map[string]entry, len(cfg.Agents)),
		log:      log,
		logger:   logger,
		now:      time.Now,
	}
	for _, a := range cfg.Agents {
		ag, ok := built[a.ID]
		if !ok {
			continue
		}
		s.order = append(s.order, a.ID)
		s.agents[a.ID] = entry{
			info:  core.AgentInfo{ID: a.ID, Name: a.Name, Mode: cfg.ModeFor(a)},
			agent: ag,
		}
	}
	return s
}

// Invoke validates req, calls the agent once under the request timeout and
// records the outcome.
func (s *Service) Invoke(ctx context.Context, req core.InvokeRequest) (core.InvokeResponse, error) {
	if err := req.Validate(); err != nil {
		metrics.IncRejected("invalid")
		return core.InvokeResponse{}, err
	}
	ent, ok := s.agents[req.AgentID]
	if !ok {
		metrics.IncRejected("unknown_agent")
		return core.InvokeResponse{}, fmt.Errorf("%w '%s'", core.ErrUnknownAgent, req.AgentID)
	}

	timeout := req.Timeout(s.timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := s.now()
	out, err := ent.agent.Generate(ctx, core.AgentRequest{AgentID: req.AgentID, Prompt: req.Prompt})
	elapsed := s.now().Sub(start)

	metrics.ObserveInvocation(req.AgentID, err == nil, elapsed)
	s.record(ent.info, req, out.Reply, elapsed, err)

	if err != nil {
		s.logger.Warn("invoke failed",
			slog.String("agent", req.AgentID),
			slog.Int64("ms", elapsed.Milliseconds()),
			slog.Int64("timeout_ms", timeout.Milliseconds()),
			slog.String("err", err.Error()))
		return core.InvokeResponse{}, err
	}
	reply := out.Reply
	if reply == "" {
		reply = core.NoResponse
	}
	s.logger.Info("invoke",
		slog.String("agent", req.AgentID),
		slog.Int("prompt_chars", len(req.Prompt)),
		slog.Int("reply_chars", len(reply)),
		slog.Int64("ms", elapsed.Milliseconds()))
	return core.InvokeResponse{Response: reply, DurationMs: elapsed.Milliseconds(), AgentID: req.AgentID}, nil
}

func (s *Service) record(info core.AgentInfo, req core.InvokeRequest, reply string, elapsed time.Duration, err error) {
	if s.log == nil {
		return
	}
	rec := store.Record{
		AgentID:     info.ID,
		Mode:        info.Mode,
		PromptChars: len(req.Prompt),
		ReplyChars:  len(reply),
		DurationMs:  elapsed.Milliseconds(),
		Status:      "ok",
	}
	if err != nil {
		rec.Status = "error"
		rec.Error = err.Error()
		rec.ReplyChars = 0
	}
	if aerr := s.log.Append(rec); aerr != nil {
		s.logger.Warn("record invocation failed", slog.String("agent", info.ID), slog.String("err", aerr.Error()))
	}
}

// Agents lists the configured agents in config order.
func (s *Service) Agents() []core.AgentInfo {
	out := make([]core.AgentInfo, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.agents[id].info)
	}
	return out
}

// Health reports the static configuration.
func (s *Service) Health() core.Health {
	return core.Health{Status: "healthy", Mode: s.mode, Endpoint: s.endpoint, Agents: append([]string{}, s.order...)}
}

// Recent returns the newest invocation records; empty when no log is attached.
func (s *Service) Recent(limit int) ([]store.Record, error) {
	if s.log == nil {
		return []store.Record{}, nil
	}
	return s.log.Recent(limit)
}
