package check

import (
	"path/filepath"

	"github.com/joelklabo/foundry-bridge/internal/config"
	"github.com/joelklabo/foundry-bridge/internal/credential"
	"github.com/joelklabo/foundry-bridge/internal/upstream"
)

// Doctor runs every diagnostic that applies to cfg. tokens and up may be nil
// when no agent talks to an upstream.
func Doctor(cfg *config.Config, tokens credential.Provider, up *upstream.Client) []Result {
	needs := cfg.NeedsUpstream()
	var out []Result

	out = append(out, EnvChecker{}.Check(DepInput{
		Name:     config.EnvEndpoint,
		Type:     "env",
		Optional: !needs || cfg.Bridge.Endpoint != "",
		Hint:     "project endpoint of the Azure AI Foundry project",
	}))

	if needs && cfg.Bridge.Endpoint != "" {
		out = append(out, URLChecker{}.Check(DepInput{Name: cfg.Bridge.Endpoint, Type: "url"}))
	}
	if needs && cfg.Auth.Mode == config.AuthAzure {
		out = append(out, BinaryChecker{}.Check(DepInput{
			Name:     "az",
			Type:     "binary",
			Optional: true,
			Hint:     "Azure CLI; run `az login` for local credentials",
		}))
	}
	if needs {
		out = append(out, TokenChecker{Tokens: tokens}.Check(DepInput{
			Name: "bearer token",
			Type: "token",
			Hint: "check `az login` or AGENT_TOKEN",
		}))
	}
	if up != nil && cfg.Bridge.Endpoint != "" {
		for _, a := range cfg.Agents {
			switch cfg.ModeFor(a) {
			case config.ModeDirect, config.ModeThreads:
				res := AgentChecker{Client: up, Endpoint: cfg.Bridge.Endpoint}.Check(DepInput{Name: a.UpstreamID, Type: "agent"})
				if a.UpstreamID != a.ID {
					res.Details = a.ID + ": " + res.Details
				}
				out = append(out, res)
			}
		}
	}

	out = append(out, DirWriteChecker{}.Check(DepInput{
		Name: ExistingAncestor(filepath.Dir(cfg.Storage.Path)),
		Type: "dirwrite",
	}))
	out = append(out, ListenChecker{}.Check(DepInput{Name: cfg.Server.Addr, Type: "listen"}))
	return out
}
