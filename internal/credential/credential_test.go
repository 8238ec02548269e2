package credential

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	calls   atomic.Int32
	expires time.Time
	delay   time.Duration
	err     error
}

func (s *countingSource) Fetch(ctx context.Context) (Token, error) {
	n := s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return Token{}, s.err
	}
	return Token{Value: "tok-" + string(rune('0'+n)), ExpiresOn: s.expires}, nil
}

func TestCacheReusesTokenUntilMargin(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	src := &countingSource{expires: base.Add(10 * time.Minute)}
	c := NewCache(src, 60*time.Second)
	now := base
	c.now = func() time.Time { return now }

	tok, err := c.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	now = base.Add(8 * time.Minute)
	tok, err = c.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok, "token well before the margin should be reused")

	// Inside the 60s window before expiry the token counts as stale.
	now = base.Add(9*time.Minute + 1*time.Second)
	src.expires = now.Add(10 * time.Minute)
	tok, err = c.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCacheExactMarginBoundaryRefreshes(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	src := &countingSource{expires: base.Add(2 * time.Minute)}
	c := NewCache(src, time.Minute)
	now := base
	c.now = func() time.Time { return now }

	_, err := c.Token(context.Background())
	require.NoError(t, err)
	now = base.Add(time.Minute)
	_, err = c.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCacheCoalescesConcurrentRefresh(t *testing.T) {
	src := &countingSource{expires: time.Now().Add(time.Hour), delay: 50 * time.Millisecond}
	c := NewCache(src, 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := c.Token(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "tok-1", tok)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), src.calls.Load())
}

// slowSource honours the ctx it is handed, like a real network fetch.
type slowSource struct {
	calls atomic.Int32
	delay time.Duration
}

func (s *slowSource) Fetch(ctx context.Context) (Token, error) {
	s.calls.Add(1)
	select {
	case <-time.After(s.delay):
		return Token{Value: "slow", ExpiresOn: time.Now().Add(time.Hour)}, nil
	case <-ctx.Done():
		return Token{}, ctx.Err()
	}
}

func TestCacheSharedRefreshIgnoresFirstCallerDeadline(t *testing.T) {
	src := &slowSource{delay: 200 * time.Millisecond}
	c := NewCache(src, 0)

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	shortErr := make(chan error, 1)
	go func() {
		_, err := c.Token(short)
		shortErr <- err
	}()

	time.Sleep(5 * time.Millisecond)
	tok, err := c.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "slow", tok)

	err = <-shortErr
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestCacheFetchErrorAndOnRefresh(t *testing.T) {
	src := &countingSource{err: errors.New("no credential")}
	c := NewCache(src, 0)
	_, err := c.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credential")

	var refreshed int
	src.err = nil
	src.expires = time.Now().Add(time.Hour)
	c.OnRefresh = func(Token) { refreshed++ }
	_, err = c.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed)

	c.Invalidate()
	_, err = c.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, refreshed)
}

func TestStaticAndNone(t *testing.T) {
	tok, err := Static("abc").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = Static("").Token(context.Background())
	assert.Error(t, err)

	tok, err = None{}.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok)
}
