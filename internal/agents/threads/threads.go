// Package threads runs a prompt through the Assistants-style threads API:
// create a thread holding the message, start a run, poll it, read the reply
// and delete the thread.
package threads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/joelklabo/foundry-bridge/internal/agents"
	"github.com/joelklabo/foundry-bridge/internal/config"
	"github.com/joelklabo/foundry-bridge/internal/core"
	"github.com/joelklabo/foundry-bridge/internal/upstream"
)

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = 500 * time.Millisecond

// cleanupTimeout bounds the thread delete issued after the run.
const cleanupTimeout = 5 * time.Second

func init() {
	agents.MustRegister(config.ModeThreads, func(s agents.Spec) (core.Agent, error) {
		if s.Upstream == nil {
			return nil, errors.New("threads mode needs an upstream client")
		}
		if s.Bridge.Endpoint == "" {
			return nil, errors.New("threads mode needs bridge.endpoint")
		}
		return New(NewClient(s.Bridge.Endpoint, s.Upstream), s.Agent.UpstreamID,
			time.Duration(s.Bridge.PollIntervalMs)*time.Millisecond, s.Logger), nil
	})
}

// NewClient builds an Assistants API client on top of the bridge's
// authenticated upstream client. The upstream transport sets the bearer token
// and api-version on every call.
func NewClient(endpoint string, up *upstream.Client) *openai.Client {
	cfg := openai.DefaultConfig("")
	cfg.BaseURL = strings.TrimRight(endpoint, "/")
	cfg.HTTPClient = up.HTTPClient()
	return openai.NewClientWithConfig(cfg)
}

type Agent struct {
	client      *openai.Client
	assistantID string
	poll        time.Duration
	log         *slog.Logger
}

func New(client *openai.Client, assistantID string, poll time.Duration, log *slog.Logger) *Agent {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Agent{client: client, assistantID: assistantID, poll: poll, log: log}
}

func (a *Agent) Generate(ctx context.Context, req core.AgentRequest) (core.AgentResponse, error) {
	start := time.Now()
	thread, err := a.client.CreateThread(ctx, openai.ThreadRequest{
		Messages: []openai.ThreadMessage{{Role: openai.ThreadMessageRoleUser, Content: req.Prompt}},
	})
	if err != nil {
		return core.AgentResponse{}, fmt.Errorf("create thread: %w", err)
	}
	defer a.deleteThread(ctx, thread.ID)

	run, err := a.client.CreateRun(ctx, thread.ID, openai.RunRequest{AssistantID: a.assistantID})
	if err != nil {
		return core.AgentResponse{}, fmt.Errorf("create run: %w", err)
	}
	if err := a.wait(ctx, thread.ID, run, start); err != nil {
		return core.AgentResponse{}, err
	}

	reply, err := a.latestReply(ctx, thread.ID)
	if err != nil {
		return core.AgentResponse{}, err
	}
	return core.AgentResponse{Reply: reply}, nil
}

func (a *Agent) wait(ctx context.Context, threadID string, run openai.Run, start time.Time) error {
	ticker := time.NewTicker(a.poll)
	defer ticker.Stop()
	for {
		switch run.Status {
		case openai.RunStatusCompleted:
			return nil
		case openai.RunStatusFailed, openai.RunStatusCancelled, openai.RunStatusExpired, "incomplete", openai.RunStatusRequiresAction:
			return runError(run)
		}
		select {
		case <-ctx.Done():
			return timeoutError(ctx, start)
		case <-ticker.C:
		}
		next, err := a.client.RetrieveRun(ctx, threadID, run.ID)
		if err != nil {
			if ctx.Err() != nil {
				return timeoutError(ctx, start)
			}
			return fmt.Errorf("poll run: %w", err)
		}
		run = next
	}
}

// latestReply returns the text of the newest assistant message.
func (a *Agent) latestReply(ctx context.Context, threadID string) (string, error) {
	limit := 20
	order := "desc"
	list, err := a.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	for _, msg := range list.Messages {
		if msg.Role != string(openai.ThreadMessageRoleAssistant) {
			continue
		}
		var parts []string
		for _, c := range msg.Content {
			if c.Text != nil && c.Text.Value != "" {
				parts = append(parts, c.Text.Value)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n"), nil
		}
	}
	return core.NoResponse, nil
}

func (a *Agent) deleteThread(parent context.Context, threadID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), cleanupTimeout)
	defer cancel()
	if _, err := a.client.DeleteThread(ctx, threadID); err != nil {
		a.log.Warn("delete thread failed", slog.String("thread", threadID), slog.String("err", err.Error()))
	}
}

func runError(run openai.Run) error {
	if run.LastError != nil && run.LastError.Message != "" {
		return fmt.Errorf("run %s: %s", run.Status, run.LastError.Message)
	}
	return fmt.Errorf("run %s", run.Status)
}

func timeoutError(ctx context.Context, start time.Time) error {
	budget := time.Since(start)
	if dl, ok := ctx.Deadline(); ok {
		budget = dl.Sub(start)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("timeout after %dms: %w", budget.Milliseconds(), ctx.Err())
	}
	return ctx.Err()
}
