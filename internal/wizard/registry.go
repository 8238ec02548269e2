package wizard

import "github.com/joelklabo/foundry-bridge/internal/config"

// ModeOption describes an invocation mode offered by the wizard.
type ModeOption struct {
	Name        string
	Description string
	// Endpoint is true when the mode calls {endpoint}/... and needs bridge.endpoint.
	Endpoint bool
	// PerAgentURL is true when every agent needs its own responses URL.
	PerAgentURL bool
}

// AuthOption describes a bearer token source.
type AuthOption struct {
	Name        string
	Description string
}

// Registry holds available options for the wizard.
type Registry struct {
	Modes []ModeOption
	Auth  []AuthOption
}

var defaultRegistry = Registry{
	Modes: []ModeOption{
		{Name: config.ModeDirect, Description: "POST {endpoint}/agents/{id}", Endpoint: true},
		{Name: config.ModeResponses, Description: "POST a per-agent Responses API URL", PerAgentURL: true},
		{Name: config.ModeThreads, Description: "Threads and runs against {endpoint}", Endpoint: true},
		{Name: config.ModeMock, Description: "Canned risk analysis (offline)"},
		{Name: config.ModeEcho, Description: "Echo prompts (tests)"},
	},
	Auth: []AuthOption{
		{Name: config.AuthAzure, Description: "DefaultAzureCredential (az login, managed identity, env)"},
		{Name: config.AuthStatic, Description: "Fixed bearer token"},
		{Name: config.AuthNone, Description: "No Authorization header"},
	},
}

// GetRegistry returns the default registry (copy).
func GetRegistry() Registry {
	return defaultRegistry
}

// SetRegistry overrides the global registry (primarily for tests/extensibility).
// Callers should restore the previous value after use to avoid leaking state across tests.
func SetRegistry(r Registry) {
	defaultRegistry = r
}

func (r Registry) mode(name string) (ModeOption, bool) {
	for _, m := range r.Modes {
		if m.Name == name {
			return m, true
		}
	}
	return ModeOption{}, false
}

func modeNames(opts []ModeOption) []string {
	names := make([]string, 0, len(opts))
	for _, o := range opts {
		names = append(names, o.Name)
	}
	return names
}

func authNames(opts []AuthOption) []string {
	names := make([]string, 0, len(opts))
	for _, o := range opts {
		names = append(names, o.Name)
	}
	return names
}
