package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"gopkg.in/yaml.v3"

	"github.com/joelklabo/foundry-bridge/internal/config"
)

// Prompter abstracts survey for testability.
type Prompter interface {
	AskSelect(label string, options []string, def string) (string, error)
	AskInput(label, def string) (string, error)
	AskPassword(label string) (string, error)
	AskConfirm(label string, def bool) (bool, error)
}

// Options tune a wizard run.
type Options struct {
	// Out receives the dry-run preview; defaults to os.Stdout.
	Out io.Writer
	// Getenv seeds defaults from the environment; defaults to os.Getenv.
	Getenv func(string) string
}

// Run executes the interactive wizard and writes a config file.
func Run(ctx context.Context, path string, p Prompter, opts Options) (string, error) {
	if p == nil {
		p = &surveyPrompter{}
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	cfgPath, err := resolveConfigPath(path)
	if err != nil {
		return "", err
	}

	if fileExists(cfgPath) {
		overwrite, err := p.AskConfirm(fmt.Sprintf("%s exists. Overwrite?", cfgPath), false)
		if err != nil {
			return "", err
		}
		if !overwrite {
			return "", fmt.Errorf("aborted: config exists at %s", cfgPath)
		}
	}

	reg := GetRegistry()
	cfg := &config.Config{}

	modeChoice, err := p.AskSelect("Invocation mode", modeNames(reg.Modes), defaultChoice(config.ModeDirect, modeNames(reg.Modes)))
	if err != nil {
		return "", err
	}
	mode, ok := reg.mode(modeChoice)
	if !ok {
		return "", fmt.Errorf("unknown mode %s", modeChoice)
	}
	cfg.Bridge.Mode = mode.Name

	if mode.Endpoint {
		endpoint, err := p.AskInput("Project endpoint", opts.Getenv(config.EnvEndpoint))
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(endpoint) == "" {
			return "", errors.New("project endpoint is required")
		}
		cfg.Bridge.Endpoint = strings.TrimSpace(endpoint)
	}

	ids, err := p.AskInput("Agent ids (comma-separated)", strings.Join(defaultAgentIDs(), ","))
	if err != nil {
		return "", err
	}
	for i, id := range splitCSV(ids) {
		cfg.Agents = append(cfg.Agents, config.AgentConfig{ID: id, Name: fmt.Sprintf("Agent %d", i+1)})
	}
	if len(cfg.Agents) == 0 {
		return "", errors.New("at least one agent id is required")
	}
	if mode.PerAgentURL {
		for i := range cfg.Agents {
			a := &cfg.Agents[i]
			u, err := p.AskInput(fmt.Sprintf("Responses URL for %s", a.ID), opts.Getenv(config.AgentResponsesURLVar(i+1)))
			if err != nil {
				return "", err
			}
			a.ResponsesURL = strings.TrimSpace(u)
		}
	}

	if mode.Endpoint || mode.PerAgentURL {
		if err := askAuth(p, reg, cfg); err != nil {
			return "", err
		}
	} else {
		cfg.Auth.Mode = config.AuthNone
	}

	addr, err := p.AskInput("Listen address", "127.0.0.1:8001")
	if err != nil {
		return "", err
	}
	cfg.Server.Addr = strings.TrimSpace(addr)

	cfg.Metrics.Enable, err = p.AskConfirm("Expose Prometheus metrics on /metrics?", false)
	if err != nil {
		return "", err
	}

	if err := cfg.Finalize(filepath.Dir(cfgPath)); err != nil {
		return "", fmt.Errorf("invalid config: %w", err)
	}

	dryRun, err := p.AskConfirm("Dry-run only (preview config without writing)?", false)
	if err != nil {
		return "", err
	}

	if dryRun {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return "", fmt.Errorf("marshal config: %w", err)
		}
		_, _ = fmt.Fprintf(opts.Out, "Dry run: config NOT written. Target path would be %s\n\n%s", cfgPath, data)
		return cfgPath, nil
	}

	if err := writeConfig(cfgPath, cfg); err != nil {
		return "", err
	}

	return cfgPath, nil
}

func askAuth(p Prompter, reg Registry, cfg *config.Config) error {
	names := authNames(reg.Auth)
	choice, err := p.AskSelect("Bearer token source", names, defaultChoice(config.AuthAzure, names))
	if err != nil {
		return err
	}
	cfg.Auth.Mode = choice
	if choice != config.AuthStatic {
		return nil
	}
	tok, err := p.AskPassword("Bearer token")
	if err != nil {
		return err
	}
	if tok == "" {
		return errors.New("token is required for static auth")
	}
	cfg.Auth.StaticToken = tok
	return nil
}

// DefaultPath is where configure writes when no path is given.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "foundry-bridge", "bridge.yaml"), nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return DefaultPath()
}

func writeConfig(path string, cfg *config.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("make config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func defaultAgentIDs() []string {
	defs := config.DefaultAgents()
	out := make([]string, 0, len(defs))
	for _, a := range defs {
		out = append(out, a.ID)
	}
	return out
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func defaultChoice(defaultVal string, options []string) string {
	for _, opt := range options {
		if opt == defaultVal {
			return defaultVal
		}
	}
	if len(options) > 0 {
		return options[0]
	}
	return defaultVal
}

// surveyPrompter is the real interactive implementation.
type surveyPrompter struct{}

func (surveyPrompter) AskSelect(label string, options []string, def string) (string, error) {
	sel := def
	prompt := &survey.Select{Message: label, Options: options, Default: def}
	if err := survey.AskOne(prompt, &sel); err != nil {
		return "", err
	}
	return sel, nil
}

func (surveyPrompter) AskInput(label, def string) (string, error) {
	ans := def
	prompt := &survey.Input{Message: label, Default: def}
	if err := survey.AskOne(prompt, &ans); err != nil {
		return "", err
	}
	return ans, nil
}

func (surveyPrompter) AskPassword(label string) (string, error) {
	var ans string
	prompt := &survey.Password{Message: label}
	if err := survey.AskOne(prompt, &ans); err != nil {
		return "", err
	}
	return ans, nil
}

func (surveyPrompter) AskConfirm(label string, def bool) (bool, error) {
	ans := def
	prompt := &survey.Confirm{Message: label, Default: def}
	if err := survey.AskOne(prompt, &ans); err != nil {
		return false, err
	}
	return ans, nil
}

// StubPrompter is used in tests. Empty queues fall back to the prompt default.
type StubPrompter struct {
	Selects   []string
	Inputs    []string
	Passwords []string
	Confirms  []bool
}

func (s *StubPrompter) AskSelect(label string, options []string, def string) (string, error) {
	return pop(&s.Selects, def), nil
}

func (s *StubPrompter) AskInput(label, def string) (string, error) {
	return pop(&s.Inputs, def), nil
}

func (s *StubPrompter) AskPassword(label string) (string, error) {
	return pop(&s.Passwords, ""), nil
}

func (s *StubPrompter) AskConfirm(label string, def bool) (bool, error) {
	return pop(&s.Confirms, def), nil
}

func pop[T any](queue *[]T, def T) T {
	if len(*queue) == 0 {
		return def
	}
	v := (*queue)[0]
	*queue = (*queue)[1:]
	return v
}
