package core

import (
	"errors"
	"testing"
	"time"
)

func TestInvokeRequestTimeoutDefault(t *testing.T) {
	req := InvokeRequest{AgentID: "a", Prompt: "p"}
	if got := req.Timeout(0); got != DefaultTimeout {
		t.Fatalf("expected default timeout, got %s", got)
	}
	if got := req.Timeout(5 * time.Second); got != 5*time.Second {
		t.Fatalf("expected configured default, got %s", got)
	}
	req.TimeoutMs = 1500
	if got := req.Timeout(5 * time.Second); got != 1500*time.Millisecond {
		t.Fatalf("expected request timeout, got %s", got)
	}
}

func TestInvokeRequestValidate(t *testing.T) {
	cases := []struct {
		name string
		req  InvokeRequest
		ok   bool
	}{
		{"valid", InvokeRequest{AgentID: "a", Prompt: "p"}, true},
		{"missing agent", InvokeRequest{Prompt: "p"}, false},
		{"missing prompt", InvokeRequest{AgentID: "a"}, false},
		{"negative timeout", InvokeRequest{AgentID: "a", Prompt: "p", TimeoutMs: -1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}
