// Package credential supplies bearer tokens for upstream agent calls.
package credential

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Token is a bearer token and the instant it stops being valid.
type Token struct {
	Value     string
	ExpiresOn time.Time
}

// Source fetches a fresh token. Implementations may be slow (network, CLI).
type Source interface {
	Fetch(ctx context.Context) (Token, error)
}

// Provider hands out a usable bearer token.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// DefaultMargin is how long before expiry a cached token is considered stale.
const DefaultMargin = 60 * time.Second

// FetchTimeout bounds a single refresh against the Source.
const FetchTimeout = 30 * time.Second

// Cache is a single-slot token cache in front of a Source.
type Cache struct {
	src    Source
	margin time.Duration
	now    func() time.Time

	// OnRefresh, when set, is called after every successful fetch.
	OnRefresh func(Token)

	mu    sync.Mutex
	token Token
	group singleflight.Group
}

// NewCache wraps src. A zero or negative margin falls back to DefaultMargin.
func NewCache(src Source, margin time.Duration) *Cache {
	if margin <= 0 {
		margin = DefaultMargin
	}
	return &Cache{src: src, margin: margin, now: time.Now}
}

// Token returns the cached token while now < expiry - margin, otherwise fetches a new one.
// Concurrent callers that find the slot stale share one fetch; each waits only
// as long as its own ctx allows.
func (c *Cache) Token(ctx context.Context) (string, error) {
	if tok, ok := c.cached(); ok {
		return tok, nil
	}
	ch := c.group.DoChan("token", func() (any, error) {
		if tok, ok := c.cached(); ok {
			return tok, nil
		}
		// The fetch outlives whichever caller started it.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FetchTimeout)
		defer cancel()
		t, err := c.src.Fetch(fctx)
		if err != nil {
			return "", fmt.Errorf("fetch token: %w", err)
		}
		if t.Value == "" {
			return "", errors.New("fetch token: empty token")
		}
		c.mu.Lock()
		c.token = t
		c.mu.Unlock()
		if c.OnRefresh != nil {
			c.OnRefresh(t)
		}
		return t.Value, nil
	})
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("fetch token: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached token.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.token = Token{}
	c.mu.Unlock()
}

func (c *Cache) cached() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token.Value == "" {
		return "", false
	}
	if !c.now().Before(c.token.ExpiresOn.Add(-c.margin)) {
		return "", false
	}
	return c.token.Value, true
}

// Static returns a fixed token that never expires.
type Static string

func (s Static) Fetch(context.Context) (Token, error) {
	if s == "" {
		return Token{}, errors.New("static token is empty")
	}
	return Token{Value: string(s), ExpiresOn: time.Now().Add(100 * 365 * 24 * time.Hour)}, nil
}

// Token satisfies Provider directly; static tokens need no cache.
func (s Static) Token(context.Context) (string, error) {
	if s == "" {
		return "", errors.New("static token is empty")
	}
	return string(s), nil
}

// None is a Provider that sends no Authorization header.
type None struct{}

func (None) Token(context.Context) (string, error) { return "", nil }
