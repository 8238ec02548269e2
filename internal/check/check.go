// Package check holds the diagnostics behind `bridge doctor`.
package check

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Statuses a check can report.
const (
	StatusOK      = "OK"
	StatusMissing = "MISSING"
	StatusWarn    = "WARN"
)

// Result represents a single check outcome.
type Result struct {
	Name     string
	Type     string
	Status   string // OK|MISSING|WARN
	Details  string
	Optional bool
}

// Checker defines an interface for running checks.
type Checker interface {
	Check(dep DepInput) Result
}

// DepInput names the thing under test.
type DepInput struct {
	Name     string
	Type     string
	Version  string
	Optional bool
	Hint     string
}

// BinaryChecker checks for a binary on PATH and optional version substring.
type BinaryChecker struct{}

func (BinaryChecker) Check(dep DepInput) Result {
	res := newResult(dep)
	path, err := exec.LookPath(dep.Name)
	if err != nil {
		res.Status = missingStatus(dep.Optional)
		res.Details = fmt.Sprintf("not found in PATH (%s)", dep.Hint)
		return res
	}
	if dep.Version != "" {
		out, _ := exec.Command(path, "--version").CombinedOutput()
		if !strings.Contains(string(out), dep.Version) {
			res.Status = missingStatus(dep.Optional)
			res.Details = fmt.Sprintf("found %s but version mismatch (need %s)", strings.TrimSpace(string(out)), dep.Version)
			return res
		}
	}
	res.Details = path
	return res
}

// EnvChecker reports whether an environment variable is set.
type EnvChecker struct{}

func (EnvChecker) Check(dep DepInput) Result {
	res := newResult(dep)
	if strings.TrimSpace(os.Getenv(dep.Name)) == "" {
		res.Status = missingStatus(dep.Optional)
		res.Details = "not set"
		if dep.Hint != "" {
			res.Details += " (" + dep.Hint + ")"
		}
		return res
	}
	res.Details = "set"
	return res
}

// URLChecker reports whether a URL answers at all. Any HTTP status counts as reachable.
type URLChecker struct {
	Timeout time.Duration
}

func (c URLChecker) Check(dep DepInput) Result {
	res := newResult(dep)
	u, err := url.Parse(dep.Name)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		res.Status = missingStatus(dep.Optional)
		res.Details = "not an http(s) url"
		return res
	}
	client := &http.Client{Timeout: orDefault(c.Timeout, 5*time.Second)}
	resp, err := client.Get(dep.Name)
	if err != nil {
		res.Status = missingStatus(dep.Optional)
		res.Details = err.Error()
		return res
	}
	_ = resp.Body.Close()
	res.Details = fmt.Sprintf("reachable (%d)", resp.StatusCode)
	return res
}

// ListenChecker reports whether a listen address is free to bind.
type ListenChecker struct{}

func (ListenChecker) Check(dep DepInput) Result {
	res := newResult(dep)
	ln, err := net.Listen("tcp", dep.Name)
	if err != nil {
		res.Status = missingStatus(dep.Optional)
		res.Details = fmt.Sprintf("cannot bind: %v", err)
		return res
	}
	_ = ln.Close()
	res.Details = "free"
	return res
}

// DirWriteChecker verifies a directory exists and accepts new files.
type DirWriteChecker struct{}

func (DirWriteChecker) Check(dep DepInput) Result {
	res := newResult(dep)
	info, err := os.Stat(dep.Name)
	if err != nil || !info.IsDir() {
		res.Status = missingStatus(dep.Optional)
		res.Details = "directory does not exist"
		return res
	}
	f, err := os.CreateTemp(dep.Name, ".bridge-write-*")
	if err != nil {
		res.Status = missingStatus(dep.Optional)
		res.Details = fmt.Sprintf("not writable: %v", err)
		return res
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	res.Details = "writable"
	return res
}

// ExistingAncestor returns dir or its nearest parent that exists.
func ExistingAncestor(dir string) string {
	dir = filepath.Clean(dir)
	for {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

// OK reports whether no required check failed.
func OK(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusMissing && !r.Optional {
			return false
		}
	}
	return true
}

func newResult(dep DepInput) Result {
	return Result{Name: dep.Name, Type: dep.Type, Status: StatusOK, Optional: dep.Optional}
}

func missingStatus(optional bool) string {
	if optional {
		return StatusWarn
	}
	return StatusMissing
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
