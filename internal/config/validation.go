package config

import (
	"errors"
	"fmt"
	"net/url"
)

// ValidateAgents performs mode-specific validation of the agent list.
func (c *Config) ValidateAgents() error {
	seen := make(map[string]struct{}, len(c.Agents))
	for i, a := range c.Agents {
		if a.ID == "" {
			return fmt.Errorf("agent %d: id is required", i)
		}
		if _, exists := seen[a.ID]; exists {
			return fmt.Errorf("agent id %q is duplicated", a.ID)
		}
		seen[a.ID] = struct{}{}

		mode := c.ModeFor(a)
		switch mode {
		case ModeDirect, ModeThreads:
			if c.Bridge.Endpoint == "" {
				return fmt.Errorf("agent %q: bridge.endpoint (AZURE_AI_FOUNDRY_PROJECT_ENDPOINT) is required for %s mode", a.ID, mode)
			}
			if err := checkURL(c.Bridge.Endpoint); err != nil {
				return fmt.Errorf("bridge.endpoint: %w", err)
			}
		case ModeResponses:
			if a.ResponsesURL == "" {
				return fmt.Errorf("missing responses_url for agent %s", a.ID)
			}
			if err := checkURL(a.ResponsesURL); err != nil {
				return fmt.Errorf("agent %q responses_url: %w", a.ID, err)
			}
		case ModeMock, ModeEcho:
			// no upstream
		default:
			return fmt.Errorf("agent %q: unknown mode %s", a.ID, mode)
		}
	}
	return nil
}

// ValidateAuth checks the token source settings.
func (c *Config) ValidateAuth() error {
	switch c.Auth.Mode {
	case AuthAzure, AuthNone:
	case AuthStatic:
		if c.Auth.StaticToken == "" {
			return errors.New("auth.static_token (AGENT_TOKEN) is required for static auth")
		}
	default:
		return fmt.Errorf("auth.mode %q is not one of azure|static|none", c.Auth.Mode)
	}
	if c.Auth.MarginSeconds < 0 {
		return errors.New("auth.margin_seconds must not be negative")
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must be an http(s) url", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}
