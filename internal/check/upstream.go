package check

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/joelklabo/foundry-bridge/internal/credential"
	"github.com/joelklabo/foundry-bridge/internal/upstream"
)

// TokenChecker acquires a bearer token from the configured source.
type TokenChecker struct {
	Tokens  credential.Provider
	Timeout time.Duration
}

func (c TokenChecker) Check(dep DepInput) Result {
	res := newResult(dep)
	if c.Tokens == nil {
		res.Status = missingStatus(dep.Optional)
		res.Details = "no token source configured"
		return res
	}
	ctx, cancel := context.WithTimeout(context.Background(), orDefault(c.Timeout, 30*time.Second))
	defer cancel()
	tok, err := c.Tokens.Token(ctx)
	if err != nil {
		res.Status = missingStatus(dep.Optional)
		res.Details = err.Error()
		if dep.Hint != "" {
			res.Details += " (" + dep.Hint + ")"
		}
		return res
	}
	if tok == "" {
		res.Status = StatusWarn
		res.Details = "no Authorization header will be sent"
		return res
	}
	res.Details = fmt.Sprintf("acquired (%d chars)", len(tok))
	return res
}

// AgentChecker looks an agent up with GET {endpoint}/agents/{id}.
type AgentChecker struct {
	Client   *upstream.Client
	Endpoint string
	Timeout  time.Duration
}

func (c AgentChecker) Check(dep DepInput) Result {
	res := newResult(dep)
	ctx, cancel := context.WithTimeout(context.Background(), orDefault(c.Timeout, 15*time.Second))
	defer cancel()
	body, err := c.Client.GetJSON(ctx, c.Endpoint+"/agents/"+url.PathEscape(dep.Name))
	if err != nil {
		res.Status = missingStatus(dep.Optional)
		var se *upstream.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			res.Details = "agent not found in project"
			return res
		}
		res.Details = err.Error()
		return res
	}
	if name := gjson.GetBytes(body, "name").String(); name != "" {
		res.Details = "found: " + name
		return res
	}
	res.Details = "found"
	return res
}
