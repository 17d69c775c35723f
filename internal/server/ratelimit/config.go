package ratelimit

import (
	"strconv"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (a trailing "/" matches by prefix)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// key identifies the bucket family for this endpoint.
func (e EndpointConfig) key() string {
	return e.Method + " " + e.Path
}

// LookupFunc reads an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// LoadConfig loads rate limiting configuration from environment variables:
// RATE_LIMIT_ENABLED, RATE_LIMIT_DEFAULT_LIMIT, RATE_LIMIT_DEFAULT_WINDOW,
// RATE_LIMIT_CLEANUP_INTERVAL, RATE_LIMIT_WHITELIST and RATE_LIMIT_BLACKLIST.
func LoadConfig(lookup LookupFunc) *Config {
	env := envReader{lookup: lookup}
	if !env.bool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    env.int("RATE_LIMIT_DEFAULT_LIMIT", 600),
		DefaultWindow:   env.duration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: env.duration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Whitelist:       parseIPList(env.string("RATE_LIMIT_WHITELIST", "")),
		Blacklist:       parseIPList(env.string("RATE_LIMIT_BLACKLIST", "")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Model-backed operations (strictest limits)
		{Path: "/api/generate-nfa", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/api/generate-nfa/stream", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/api/edit-nfa", Method: "POST", Limit: 60, Window: time.Hour, Burst: 5},

		// Document rendering without a model call
		{Path: "/api/download-edited-nfa", Method: "POST", Limit: 120, Window: time.Hour, Burst: 10},

		// Login attempts
		{Path: "/api/auth/token", Method: "POST", Limit: 10, Window: time.Minute, Burst: 5},

		// Write operations
		{Path: "/api/history/", Method: "PATCH", Limit: 100, Window: time.Minute, Burst: 10},

		// Reads use the default limit; health is unlimited (see MatchEndpoint)
	}
}

type envReader struct {
	lookup LookupFunc
}

func (e envReader) string(key, defaultValue string) string {
	if e.lookup == nil {
		return defaultValue
	}
	if value, ok := e.lookup(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func (e envReader) int(key string, defaultValue int) int {
	if v, err := strconv.Atoi(e.string(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func (e envReader) bool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(e.string(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func (e envReader) duration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(e.string(key, "")); err == nil {
		return v
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
