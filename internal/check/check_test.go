package check

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/joelklabo/foundry-bridge/internal/config"
	"github.com/joelklabo/foundry-bridge/internal/credential"
	"github.com/joelklabo/foundry-bridge/internal/upstream"
)

func TestEnvChecker(t *testing.T) {
	const key = "CHECK_TEST_ENV"
	_ = os.Unsetenv(key)
	c := EnvChecker{}
	res := c.Check(DepInput{Name: key, Type: "env"})
	if res.Status != StatusMissing {
		t.Fatalf("expected missing when unset, got %s", res.Status)
	}
	res = c.Check(DepInput{Name: key, Type: "env", Optional: true})
	if res.Status != StatusWarn {
		t.Fatalf("expected warn for optional, got %s", res.Status)
	}
	t.Setenv(key, "ok")
	res = c.Check(DepInput{Name: key, Type: "env"})
	if res.Status != StatusOK {
		t.Fatalf("expected OK when set, got %s", res.Status)
	}
}

func TestURLChecker(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer s.Close()

	c := URLChecker{}
	res := c.Check(DepInput{Name: s.URL, Type: "url"})
	if res.Status != StatusOK {
		t.Fatalf("expected OK for reachable url, got %s", res.Status)
	}

	res = c.Check(DepInput{Name: "http://127.0.0.1:1", Type: "url"})
	if res.Status != StatusMissing {
		t.Fatalf("expected MISSING for bad url, got %s", res.Status)
	}
	res = c.Check(DepInput{Name: "ftp://example.com", Type: "url"})
	if res.Status != StatusMissing {
		t.Fatalf("expected MISSING for non-http url, got %s", res.Status)
	}
}

func TestListenChecker(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	defer func() { _ = ln.Close() }()

	c := ListenChecker{}
	res := c.Check(DepInput{Name: addr, Type: "listen"})
	if res.Status != StatusMissing {
		t.Fatalf("expected MISSING for a taken port, got %s", res.Status)
	}
	res = c.Check(DepInput{Name: "127.0.0.1:0", Type: "listen"})
	if res.Status != StatusOK {
		t.Fatalf("expected OK for a free port, got %s", res.Status)
	}
}

func TestDirWriteChecker(t *testing.T) {
	td := t.TempDir()
	c := DirWriteChecker{}
	res := c.Check(DepInput{Name: td, Type: "dirwrite"})
	if res.Status != StatusOK {
		t.Fatalf("expected OK for writable temp dir, got %s", res.Status)
	}
	res = c.Check(DepInput{Name: "/nonexistent-path-hopefully", Type: "dirwrite"})
	if res.Status != StatusMissing {
		t.Fatalf("expected MISSING for nonexistent dir, got %s", res.Status)
	}
	if got := ExistingAncestor(filepath.Join(td, "a", "b")); got != td {
		t.Fatalf("expected ancestor %s, got %s", td, got)
	}
}

func TestBinaryCheckerOptional(t *testing.T) {
	res := BinaryChecker{}.Check(DepInput{Name: "definitely-not-a-binary-xyz", Type: "binary", Optional: true, Hint: "skip"})
	if res.Status != StatusWarn {
		t.Fatalf("expected WARN for optional missing binary, got %s", res.Status)
	}
}

type errProvider struct{}

func (errProvider) Token(context.Context) (string, error) { return "", errors.New("no login") }

func TestTokenChecker(t *testing.T) {
	res := TokenChecker{Tokens: credential.Static("abc")}.Check(DepInput{Name: "bearer token"})
	if res.Status != StatusOK {
		t.Fatalf("expected OK, got %s (%s)", res.Status, res.Details)
	}
	res = TokenChecker{Tokens: errProvider{}}.Check(DepInput{Name: "bearer token"})
	if res.Status != StatusMissing {
		t.Fatalf("expected MISSING, got %s", res.Status)
	}
	res = TokenChecker{Tokens: credential.None{}}.Check(DepInput{Name: "bearer token"})
	if res.Status != StatusWarn {
		t.Fatalf("expected WARN for empty token, got %s", res.Status)
	}
}

func TestAgentChecker(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/agents/EFSAGENT" {
			_, _ = w.Write([]byte(`{"id":"EFSAGENT","name":"EFS reviewer"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer s.Close()

	c := AgentChecker{Client: upstream.NewClient(upstream.NewTransport(nil)), Endpoint: s.URL}
	res := c.Check(DepInput{Name: "EFSAGENT", Type: "agent"})
	if res.Status != StatusOK || res.Details != "found: EFS reviewer" {
		t.Fatalf("unexpected result %+v", res)
	}
	res = c.Check(DepInput{Name: "GHOST", Type: "agent"})
	if res.Status != StatusMissing || res.Details != "agent not found in project" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDoctorMockConfigSkipsUpstream(t *testing.T) {
	cfg := &config.Config{
		Server:  config.ServerConfig{Addr: "127.0.0.1:0"},
		Bridge:  config.BridgeConfig{Mode: config.ModeMock},
		Agents:  []config.AgentConfig{{ID: "A"}},
		Storage: config.StorageConfig{Path: filepath.Join(t.TempDir(), "deep", "state.db")},
	}
	results := Doctor(cfg, nil, nil)
	if !OK(results) {
		t.Fatalf("expected healthy doctor run, got %+v", results)
	}
	for _, r := range results {
		if r.Type == "token" || r.Type == "agent" || r.Type == "url" {
			t.Fatalf("unexpected upstream check %+v", r)
		}
	}
}

func TestDoctorChecksAgents(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"x"}`))
	}))
	defer s.Close()

	cfg := &config.Config{
		Server:  config.ServerConfig{Addr: "127.0.0.1:0"},
		Bridge:  config.BridgeConfig{Mode: config.ModeDirect, Endpoint: s.URL},
		Auth:    config.AuthConfig{Mode: config.AuthStatic, StaticToken: "t"},
		Agents:  []config.AgentConfig{{ID: "A", UpstreamID: "A"}, {ID: "B", UpstreamID: "asst_b"}, {ID: "M", Mode: config.ModeMock}},
		Storage: config.StorageConfig{Path: filepath.Join(t.TempDir(), "state.db")},
	}
	tokens := credential.Static("t")
	results := Doctor(cfg, tokens, upstream.NewClient(upstream.NewTransport(tokens)))
	agents := 0
	for _, r := range results {
		if r.Type == "agent" {
			agents++
			if r.Status != StatusOK {
				t.Fatalf("agent check failed: %+v", r)
			}
		}
	}
	if agents != 2 {
		t.Fatalf("expected 2 agent checks, got %d", agents)
	}
	if !OK(results) {
		t.Fatalf("expected OK, got %+v", results)
	}
}
