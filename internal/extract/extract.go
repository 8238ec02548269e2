// Package extract pulls reply text out of loosely specified upstream JSON.
package extract

import (
	"bytes"
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/joelklabo/foundry-bridge/internal/core"
)

// ReplyKeys are tried in order against a JSON object reply.
var ReplyKeys = []string{"message", "reply", "response", "output"}

// ErrNoOutputText is returned when a Responses API payload carries no output_text item.
var ErrNoOutputText = errors.New("no text output returned from agent")

// Reply returns the agent text found in body.
//
// For an object, the first of ReplyKeys holding a non-empty value wins (strings
// verbatim, anything else as raw JSON), then the first non-empty top-level
// string. When nothing matches the whole payload is returned unchanged.
// Empty or null payloads yield core.NoResponse.
func Reply(body []byte) (text string, field string) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return core.NoResponse, ""
	}
	if !gjson.ValidBytes(trimmed) {
		return string(trimmed), ""
	}

	root := gjson.ParseBytes(trimmed)
	switch {
	case root.Type == gjson.Null:
		return core.NoResponse, ""
	case root.Type == gjson.String:
		if root.Str == "" {
			return core.NoResponse, ""
		}
		return root.Str, ""
	case !root.IsObject():
		return string(trimmed), ""
	}

	for _, key := range ReplyKeys {
		v := root.Get(key)
		if key == "output" && v.IsArray() {
			if s, err := OutputText(trimmed); err == nil && s != "" {
				return s, key
			}
		}
		if s, ok := nonEmpty(v); ok {
			return s, key
		}
	}

	root.ForEach(func(k, v gjson.Result) bool {
		if v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
			text, field = v.Str, k.String()
			return false
		}
		return true
	})
	if field != "" {
		return text, field
	}
	if len(root.Map()) == 0 {
		return core.NoResponse, ""
	}
	return string(trimmed), ""
}

// OutputText returns the first output_text of the first message item in a
// Responses API payload.
func OutputText(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", errors.New("responses payload is not valid JSON")
	}
	var (
		text  string
		found bool
	)
	gjson.GetBytes(body, "output").ForEach(func(_, item gjson.Result) bool {
		if item.Get("type").String() != "message" {
			return true
		}
		item.Get("content").ForEach(func(_, c gjson.Result) bool {
			if c.Get("type").String() == "output_text" {
				text, found = c.Get("text").String(), true
				return false
			}
			return true
		})
		return !found
	})
	if !found {
		return "", ErrNoOutputText
	}
	return text, nil
}

func nonEmpty(v gjson.Result) (string, bool) {
	if !v.Exists() {
		return "", false
	}
	switch v.Type {
	case gjson.Null:
		return "", false
	case gjson.String:
		if strings.TrimSpace(v.Str) == "" {
			return "", false
		}
		return v.Str, true
	case gjson.JSON:
		if v.IsArray() && len(v.Array()) == 0 {
			return "", false
		}
		if v.IsObject() && len(v.Map()) == 0 {
			return "", false
		}
		return v.Raw, true
	default:
		return v.Raw, true
	}
}
