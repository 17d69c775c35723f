package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(endpoints ...EndpointConfig) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)}
	l := newLimiter(&Config{
		Enabled:         true,
		DefaultLimit:    5,
		DefaultWindow:   time.Minute,
		Whitelist:       map[string]bool{"10.0.0.1": true},
		Blacklist:       map[string]bool{"10.0.0.2": true},
		EndpointConfigs: endpoints,
	}, clock.Now)
	return l, clock
}

func TestAllow_BurstThenDeny(t *testing.T) {
	l, _ := newTestLimiter(EndpointConfig{Path: "/api/generate-nfa", Method: "POST", Limit: 30, Window: time.Hour, Burst: 2})

	for i := 0; i < 2; i++ {
		allowed, info := l.Allow("1.2.3.4", "/api/generate-nfa", "POST")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 30, info.Limit)
	}

	allowed, info := l.Allow("1.2.3.4", "/api/generate-nfa", "POST")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.InDelta(t, float64(2*time.Minute), float64(info.RetryAfter), float64(time.Millisecond))
}

func TestAllow_Refill(t *testing.T) {
	l, clock := newTestLimiter(EndpointConfig{Path: "/api/edit-nfa", Method: "POST", Limit: 60, Window: time.Minute, Burst: 1})

	allowed, _ := l.Allow("1.2.3.4", "/api/edit-nfa", "POST")
	require.True(t, allowed)
	allowed, _ = l.Allow("1.2.3.4", "/api/edit-nfa", "POST")
	require.False(t, allowed)

	clock.Advance(time.Second)
	allowed, _ = l.Allow("1.2.3.4", "/api/edit-nfa", "POST")
	assert.True(t, allowed)
}

func TestAllow_BucketsAreIsolated(t *testing.T) {
	l, _ := newTestLimiter(EndpointConfig{Path: "/api/auth/token", Method: "POST", Limit: 1, Window: time.Minute})

	allowed, _ := l.Allow("1.1.1.1", "/api/auth/token", "POST")
	require.True(t, allowed)

	other, _ := l.Allow("2.2.2.2", "/api/auth/token", "POST")
	assert.True(t, other, "a different client has its own bucket")

	read, _ := l.Allow("1.1.1.1", "/api/history", "GET")
	assert.True(t, read, "a different endpoint has its own bucket")
}

func TestAllow_PrefixEndpointsShareBucket(t *testing.T) {
	l, _ := newTestLimiter(EndpointConfig{Path: "/api/history/", Method: "PATCH", Limit: 1, Window: time.Minute})

	allowed, _ := l.Allow("1.1.1.1", "/api/history/a/status", "PATCH")
	require.True(t, allowed)
	allowed, _ = l.Allow("1.1.1.1", "/api/history/b/status", "PATCH")
	assert.False(t, allowed)
}

func TestAllow_Lists(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 20; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/api/history", "GET")
		require.True(t, allowed)
	}

	allowed, _ := l.Allow("10.0.0.2", "/api/history", "GET")
	assert.False(t, allowed)
}

func TestAllow_HealthUnlimited(t *testing.T) {
	l, _ := newTestLimiter()
	for i := 0; i < 50; i++ {
		allowed, _ := l.Allow("1.1.1.1", HealthPath, "GET")
		require.True(t, allowed)
	}
}

func TestAllow_Disabled(t *testing.T) {
	l := NewLimiter(&Config{Enabled: false})
	defer l.Stop()

	allowed, info := l.Allow("1.1.1.1", "/api/generate-nfa", "POST")
	assert.True(t, allowed)
	assert.Zero(t, info.Limit)
}

func TestDropIdle(t *testing.T) {
	l, clock := newTestLimiter()
	l.Allow("1.1.1.1", "/api/history", "GET")
	clock.Advance(2 * time.Hour)
	l.Allow("2.2.2.2", "/api/history", "GET")

	l.dropIdle(clock.Now().Add(-time.Hour))

	assert.Len(t, l.buckets, 1)
}

func TestStop_EndsSweep(t *testing.T) {
	l := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute, CleanupInterval: time.Millisecond})
	l.Stop()
	l.Stop()
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	tests := []struct {
		path, method string
		wantPath     string
	}{
		{"/api/generate-nfa", "POST", "/api/generate-nfa"},
		{"/api/generate-nfa/stream", "POST", "/api/generate-nfa/stream"},
		{"/api/history/123/status", "PATCH", "/api/history/"},
		{"/api/health", "GET", HealthPath},
		{"/api/history", "GET", ""},
		{"/api/generate-nfa", "GET", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantPath == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantPath, got.Path)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	env := map[string]string{
		"RATE_LIMIT_DEFAULT_LIMIT":  "100",
		"RATE_LIMIT_DEFAULT_WINDOW": "30s",
		"RATE_LIMIT_WHITELIST":      "10.0.0.1, 10.0.0.3,",
	}
	cfg := LoadConfig(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 100, cfg.DefaultLimit)
	assert.Equal(t, 30*time.Second, cfg.DefaultWindow)
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval)
	assert.Equal(t, map[string]bool{"10.0.0.1": true, "10.0.0.3": true}, cfg.Whitelist)
	assert.NotEmpty(t, cfg.EndpointConfigs)

	disabled := LoadConfig(func(k string) (string, bool) {
		if k == "RATE_LIMIT_ENABLED" {
			return "false", true
		}
		return "", false
	})
	assert.False(t, disabled.Enabled)

	assert.True(t, LoadConfig(nil).Enabled)
}
