package config

import (
	"os"
	"strconv"
)

// applyEnvOverrides applies the environment-variable overlay described in
// spec.md §4.1: host, port, auth mode, and api key. Overlays run after
// parse and before validation so a bad override is still caught.
func applyEnvOverrides(c *Config) {
	if v, ok := os.LookupEnv("GOBLIN_GATEWAY_HOST"); ok {
		c.Gateway.Host = v
	}
	if v, ok := os.LookupEnv("GOBLIN_GATEWAY_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			c.Gateway.Port = port
		}
	}
	if v, ok := os.LookupEnv("GOBLIN_AUTH_MODE"); ok {
		c.Auth.Mode = AuthMode(v)
	}
	if v, ok := os.LookupEnv("GOBLIN_AUTH_API_KEY"); ok {
		c.Auth.APIKey = v
	}
}
