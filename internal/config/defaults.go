package config

import "time"

// Defaults mirror spec.md's stated default values.
const (
	DefaultHost               = "localhost"
	DefaultPort               = 8080
	DefaultOutputSizeLimit    = 64 * 1024 // 64 KiB
	DefaultTimeoutMs          = 30_000
	DefaultMaxSessions        = 1000
	DefaultSessionTimeoutMs   = 5 * 60 * 1000
	DefaultRegistryGraceMs    = 5_000
	DefaultCircuitBreakerN    = 5
	DefaultWatchDebounce      = 500 * time.Millisecond
	DefaultConfigPathTemplate = "~/.goblin/config.json"
)

// applyDefaults fills zero-valued fields with spec.md defaults. Called
// after parse and after the env overlay; it only fills fields still at
// their zero value, so overlays and explicit config values always win
// over defaults.
func applyDefaults(c *Config) {
	if c.Gateway.Host == "" {
		c.Gateway.Host = DefaultHost
	}
	if c.Gateway.Port == 0 {
		c.Gateway.Port = DefaultPort
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = AuthModeNone
	}
	if c.Policies.OutputSizeLimit == 0 {
		c.Policies.OutputSizeLimit = DefaultOutputSizeLimit
	}
	if c.Policies.DefaultTimeoutMs == 0 {
		c.Policies.DefaultTimeoutMs = DefaultTimeoutMs
	}
	if c.StreamableHTTP != nil {
		if c.StreamableHTTP.MaxSessions == 0 {
			c.StreamableHTTP.MaxSessions = DefaultMaxSessions
		}
		if c.StreamableHTTP.SessionTimeoutMs == 0 {
			c.StreamableHTTP.SessionTimeoutMs = DefaultSessionTimeoutMs
		}
	}
	for i := range c.Servers {
		if c.Servers[i].Mode == "" {
			c.Servers[i].Mode = ModeStateful
		}
	}
}
