// Package agents holds the registry of invocation modes. Each mode lives in a
// subpackage that registers itself from init.
package agents

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/joelklabo/foundry-bridge/internal/config"
	"github.com/joelklabo/foundry-bridge/internal/core"
	"github.com/joelklabo/foundry-bridge/internal/upstream"
)

// Spec is everything a mode needs to build one agent.
type Spec struct {
	Agent    config.AgentConfig
	Bridge   config.BridgeConfig
	Mock     config.MockConfig
	Upstream *upstream.Client
	Logger   *slog.Logger
}

// Constructor builds an Agent for one configured agent.
type Constructor func(spec Spec) (core.Agent, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Constructor)
)

func Register(mode string, ctor Constructor) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if ctor == nil {
		return fmt.Errorf("agent mode %s has no constructor", mode)
	}
	if _, exists := registry[mode]; exists {
		return fmt.Errorf("agent mode %s already registered", mode)
	}
	registry[mode] = ctor
	return nil
}

func MustRegister(mode string, ctor Constructor) {
	if err := Register(mode, ctor); err != nil {
		panic(err)
	}
}

// Build looks up the constructor for mode and runs it.
func Build(mode string, spec Spec) (core.Agent, error) {
	registryMu.RLock()
	ctor, ok := registry[mode]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown agent mode %s", mode)
	}
	if spec.Logger == nil {
		spec.Logger = slog.Default()
	}
	return ctor(spec)
}

// Modes lists registered mode names, sorted.
func Modes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
