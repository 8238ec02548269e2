// Package discover lists the agents an upstream project exposes.
package discover

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"

	"github.com/joelklabo/foundry-bridge/internal/upstream"
)

// APIVersions are tried in order until one answers.
var APIVersions = []string{"2025-05-15-preview", "2025-05-01", "2024-12-01-preview", "v1"}

// Agent is one agent found upstream.
type Agent struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Model      string `json:"model,omitempty"`
	APIVersion string `json:"api_version,omitempty"`
}

// Attempt records one api-version probe.
type Attempt struct {
	APIVersion string `json:"api_version"`
	Err        string `json:"error,omitempty"`
}

// Agents tries GET {endpoint}/agents with each version and returns the first
// listing that parses. Listings may carry the items under "data" or "value".
func Agents(ctx context.Context, c *upstream.Client, endpoint string, versions []string) ([]Agent, []Attempt, error) {
	if endpoint == "" {
		return nil, nil, errors.New("no endpoint configured")
	}
	if len(versions) == 0 {
		versions = APIVersions
	}
	base := strings.TrimRight(endpoint, "/") + "/agents?api-version="
	var attempts []Attempt
	for _, v := range versions {
		body, err := c.GetJSON(ctx, base+v)
		if err != nil {
			attempts = append(attempts, Attempt{APIVersion: v, Err: err.Error()})
			if ctx.Err() != nil {
				break
			}
			continue
		}
		list, err := Parse(body)
		if err != nil {
			attempts = append(attempts, Attempt{APIVersion: v, Err: err.Error()})
			continue
		}
		for i := range list {
			list[i].APIVersion = v
		}
		attempts = append(attempts, Attempt{APIVersion: v})
		return list, attempts, nil
	}
	return nil, attempts, fmt.Errorf("no api version returned an agent listing (%d tried)", len(attempts))
}

// Parse reads an agent listing.
func Parse(body []byte) ([]Agent, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("listing is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	items := root.Get("data")
	if !items.IsArray() {
		items = root.Get("value")
	}
	if !items.IsArray() {
		return nil, errors.New("listing has no data or value array")
	}
	out := []Agent{}
	items.ForEach(func(_, item gjson.Result) bool {
		out = append(out, Agent{
			ID:    item.Get("id").String(),
			Name:  item.Get("name").String(),
			Model: item.Get("model").String(),
		})
		return true
	})
	return out, nil
}

// Assistants lists assistants through the Assistants API client.
func Assistants(ctx context.Context, c *openai.Client, limit int) ([]Agent, error) {
	if limit <= 0 {
		limit = 100
	}
	order := "desc"
	list, err := c.ListAssistants(ctx, &limit, &order, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list assistants: %w", err)
	}
	out := make([]Agent, 0, len(list.Assistants))
	for _, a := range list.Assistants {
		ag := Agent{ID: a.ID, Model: a.Model}
		if a.Name != nil {
			ag.Name = *a.Name
		}
		out = append(out, ag)
	}
	return out, nil
}
