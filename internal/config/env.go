package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables understood by the bridge.
const (
	EnvEndpoint   = "AZURE_AI_FOUNDRY_PROJECT_ENDPOINT"
	EnvMode       = "AGENT_BRIDGE_MODE"
	EnvAddr       = "AGENT_BRIDGE_ADDR"
	EnvConfig     = "AGENT_BRIDGE_CONFIG"
	EnvServiceURL = "AGENT_BRIDGE_SERVICE_URL"
	EnvToken      = "AGENT_TOKEN"

	// DefaultEnvFile is read before the environment is consulted.
	DefaultEnvFile = ".env.local"

	maxEnvAgents = 16
)

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadEnvFile(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := godotenv.Load(path); err != nil {
		return false, fmt.Errorf("load %s: %w", path, err)
	}
	return true, nil
}

// AgentIDVar is the env var carrying the id of the n-th agent (1-based).
func AgentIDVar(n int) string { return fmt.Sprintf("FOUNDRY_AGENT_%d_ID", n) }

// AgentResponsesURLVar is the env var carrying the responses URL of the n-th agent.
func AgentResponsesURLVar(n int) string { return fmt.Sprintf("FOUNDRY_AGENT_%d_RESPONSES_URL", n) }

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvEndpoint); v != "" {
		c.Bridge.Endpoint = v
	}
	if v := getenv(EnvMode); v != "" {
		c.Bridge.Mode = v
	}
	if v := getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := getenv(EnvToken); v != "" {
		c.Auth.Mode = AuthStatic
		c.Auth.StaticToken = v
	}

	for n := 1; n <= maxEnvAgents; n++ {
		id := getenv(AgentIDVar(n))
		responsesURL := getenv(AgentResponsesURLVar(n))
		if id == "" && responsesURL == "" {
			continue
		}
		if len(c.Agents) == 0 {
			c.Agents = DefaultAgents()
		}
		for len(c.Agents) < n {
			c.Agents = append(c.Agents, AgentConfig{})
		}
		a := &c.Agents[n-1]
		if id != "" {
			a.ID = id
			a.UpstreamID = ""
		}
		if responsesURL != "" {
			a.ResponsesURL = responsesURL
		}
	}
}
