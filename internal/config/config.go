package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Invocation modes.
const (
	ModeDirect    = "direct"
	ModeResponses = "responses"
	ModeThreads   = "threads"
	ModeMock      = "mock"
	ModeEcho      = "echo"
)

// Auth modes.
const (
	AuthAzure  = "azure"
	AuthStatic = "static"
	AuthNone   = "none"
)

// DefaultScope is the token scope requested for Azure AI Foundry.
const DefaultScope = "https://ai.azure.com/.default"

// Config holds the runtime configuration loaded from bridge.yaml and the environment.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Auth    AuthConfig    `yaml:"auth"`
	Agents  []AgentConfig `yaml:"agents"`
	Mock    MockConfig    `yaml:"mock"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig controls the inbound HTTP listener.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	AuthToken string `yaml:"auth_token,omitempty"`
	CORS      bool   `yaml:"cors"`
}

// BridgeConfig controls how agents are reached upstream.
type BridgeConfig struct {
	Mode             string  `yaml:"mode"`
	Endpoint         string  `yaml:"endpoint"`
	APIVersion       string  `yaml:"api_version"`
	DefaultTimeoutMs int     `yaml:"default_timeout_ms"`
	PollIntervalMs   int     `yaml:"poll_interval_ms"`
	RatePerSecond    float64 `yaml:"rate_per_second,omitempty"`
	RateBurst        int     `yaml:"rate_burst,omitempty"`
}

// AuthConfig selects the bearer token source.
type AuthConfig struct {
	Mode          string `yaml:"mode"`
	Scope         string `yaml:"scope"`
	StaticToken   string `yaml:"static_token,omitempty"`
	MarginSeconds int    `yaml:"margin_seconds"`
}

// AgentConfig describes one agent reachable through the bridge.
type AgentConfig struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Mode         string `yaml:"mode,omitempty"`
	UpstreamID   string `yaml:"upstream_id,omitempty"`
	ResponsesURL string `yaml:"responses_url,omitempty"`
}

// MockConfig controls the canned-reply mode.
type MockConfig struct {
	DelayMs int    `yaml:"delay_ms"`
	Reply   string `yaml:"reply,omitempty"`
}

// StorageConfig controls persistence of the invocation log.
type StorageConfig struct {
	Path       string `yaml:"path"`
	MaxEntries int    `yaml:"max_entries"`
}

// LoggingConfig controls log level and destination.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// MetricsConfig controls Prometheus exposition.
type MetricsConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen,omitempty"`
}

// Load reads configuration from path (optional), overlays the environment and validates.
// An empty path skips the file and builds the config from defaults and env alone.
func Load(path string) (*Config, error) {
	var cfg Config
	baseDir := "."
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		baseDir = filepath.Dir(path)
	}

	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults(baseDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Finalize applies defaults (relative paths resolve against baseDir) and validates.
// Load calls the same steps; the wizard uses it on configs built in memory.
func (c *Config) Finalize(baseDir string) error {
	c.applyDefaults(baseDir)
	return c.Validate()
}

// Agent returns the agent config with the given id.
func (c *Config) Agent(id string) (AgentConfig, bool) {
	for _, a := range c.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return AgentConfig{}, false
}

// ModeFor resolves the effective mode of an agent.
func (c *Config) ModeFor(a AgentConfig) string {
	if a.Mode != "" {
		return a.Mode
	}
	return c.Bridge.Mode
}

// NeedsUpstream reports whether any agent calls a real upstream.
func (c *Config) NeedsUpstream() bool {
	for _, a := range c.Agents {
		switch c.ModeFor(a) {
		case ModeDirect, ModeResponses, ModeThreads:
			return true
		}
	}
	return false
}

// Validate ensures the config is usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if !knownMode(c.Bridge.Mode) {
		return fmt.Errorf("bridge.mode %q is not one of direct|responses|threads|mock|echo", c.Bridge.Mode)
	}
	if c.Bridge.DefaultTimeoutMs <= 0 {
		return errors.New("bridge.default_timeout_ms must be positive")
	}
	if len(c.Agents) == 0 {
		return errors.New("at least one agent must be configured")
	}
	if err := c.ValidateAgents(); err != nil {
		return err
	}
	if err := c.ValidateAuth(); err != nil {
		return err
	}
	if c.Storage.Path == "" {
		return errors.New("storage.path is required")
	}
	return nil
}

func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8001"
	}
	if c.Bridge.Mode == "" {
		c.Bridge.Mode = ModeDirect
	}
	c.Bridge.Mode = strings.ToLower(c.Bridge.Mode)
	c.Bridge.Endpoint = strings.TrimRight(c.Bridge.Endpoint, "/")
	if c.Bridge.APIVersion == "" {
		c.Bridge.APIVersion = "2025-05-15-preview"
	}
	if c.Bridge.DefaultTimeoutMs == 0 {
		c.Bridge.DefaultTimeoutMs = 60000
	}
	if c.Bridge.PollIntervalMs == 0 {
		c.Bridge.PollIntervalMs = 500
	}
	if c.Bridge.RatePerSecond > 0 && c.Bridge.RateBurst == 0 {
		c.Bridge.RateBurst = 1
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = AuthAzure
	}
	if c.Auth.Scope == "" {
		c.Auth.Scope = DefaultScope
	}
	if c.Auth.MarginSeconds == 0 {
		c.Auth.MarginSeconds = 60
	}
	if c.Mock.DelayMs == 0 {
		c.Mock.DelayMs = 500
	}
	if c.Storage.Path == "" {
		c.Storage.Path = defaultStatePath()
	} else if !filepath.IsAbs(c.Storage.Path) {
		c.Storage.Path = filepath.Join(baseDir, c.Storage.Path)
	}
	if c.Storage.MaxEntries == 0 {
		c.Storage.MaxEntries = 500
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if len(c.Agents) == 0 {
		c.Agents = DefaultAgents()
	}
	for i := range c.Agents {
		a := &c.Agents[i]
		if a.Name == "" {
			a.Name = fmt.Sprintf("Agent %d", i+1)
		}
		if a.UpstreamID == "" {
			a.UpstreamID = a.ID
		}
		a.Mode = strings.ToLower(a.Mode)
	}
}

// DefaultAgents are the three agents the bridge serves when none are configured.
func DefaultAgents() []AgentConfig {
	return []AgentConfig{
		{ID: "EFSAGENT", Name: "Agent 1"},
		{ID: "APPRISKANALYSIS", Name: "Agent 2"},
		{ID: "EMPWEBPROFILEAGENT", Name: "Agent 3"},
	}
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "state.db"
	}
	return filepath.Join(home, ".local", "share", "foundry-bridge", "state.db")
}

func knownMode(m string) bool {
	switch m {
	case ModeDirect, ModeResponses, ModeThreads, ModeMock, ModeEcho:
		return true
	}
	return false
}
