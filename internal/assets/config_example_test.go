package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joelklabo/foundry-bridge/internal/config"
)

func TestConfigExampleLoads(t *testing.T) {
	for _, k := range []string{config.EnvEndpoint, config.EnvMode, config.EnvAddr, config.EnvToken, config.AgentIDVar(1)} {
		t.Setenv(k, "")
	}
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	if err := os.WriteFile(path, ConfigExample, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("example config does not load: %v", err)
	}
	if len(cfg.Agents) != 3 || cfg.ModeFor(cfg.Agents[1]) != config.ModeMock {
		t.Fatalf("unexpected agents %+v", cfg.Agents)
	}
	if cfg.Storage.Path != filepath.Join(filepath.Dir(path), "state.db") {
		t.Fatalf("storage path not resolved against config dir: %s", cfg.Storage.Path)
	}
}
