package config

import (
	"fmt"

	"goblin/internal/gatewayerr"
)

// Validate checks a parsed Config against the schema and invariants named
// in spec.md §3/§4.1/§4.5, returning a single ConfigInvalid error
// describing every violation found (not just the first) so a user fixing a
// config file sees the whole picture in one reload attempt.
func Validate(c *Config) error {
	var problems []string

	seenNames := make(map[string]bool)
	for i, s := range c.Servers {
		if s.Name == "" {
			problems = append(problems, fmt.Sprintf("servers[%d]: name is required", i))
			continue
		}
		if seenNames[s.Name] {
			problems = append(problems, fmt.Sprintf("servers[%d]: duplicate server name %q", i, s.Name))
		}
		seenNames[s.Name] = true

		problems = append(problems, validateTransportPayload(i, s)...)

		switch s.Mode {
		case ModeStateful, ModeStateless, ModeSmart, "":
		default:
			problems = append(problems, fmt.Sprintf("servers[%d] (%s): unknown mode %q", i, s.Name, s.Mode))
		}
	}

	switch c.Auth.Mode {
	case AuthModeNone, AuthModeAPIKey, "":
	default:
		problems = append(problems, fmt.Sprintf("auth.mode: unknown mode %q", c.Auth.Mode))
	}
	if c.Auth.Mode == AuthModeAPIKey && c.Auth.APIKey == "" {
		problems = append(problems, "auth.apiKey: required when auth.mode is \"apiKey\"")
	}

	if c.Policies.OutputSizeLimit < 0 {
		problems = append(problems, "policies.outputSizeLimit: must be >= 0")
	}
	if c.Policies.DefaultTimeoutMs < 0 {
		problems = append(problems, "policies.defaultTimeout: must be >= 0")
	}

	problems = append(problems, validateAliases(c)...)

	if len(problems) > 0 {
		return gatewayerr.ConfigInvalid("invalid configuration: %v", problems)
	}
	return nil
}

func validateTransportPayload(i int, s ServerSpec) []string {
	var problems []string
	switch s.Transport {
	case TransportStdio:
		if s.Command == "" {
			problems = append(problems, fmt.Sprintf("servers[%d] (%s): command is required for stdio transport", i, s.Name))
		}
		if s.URL != "" {
			problems = append(problems, fmt.Sprintf("servers[%d] (%s): url is not valid for stdio transport", i, s.Name))
		}
	case TransportHTTP, TransportSSE, TransportStreamableHTTP:
		if s.URL == "" {
			problems = append(problems, fmt.Sprintf("servers[%d] (%s): url is required for %s transport", i, s.Name, s.Transport))
		}
		if s.Command != "" {
			problems = append(problems, fmt.Sprintf("servers[%d] (%s): command is not valid for %s transport", i, s.Name, s.Transport))
		}
	default:
		problems = append(problems, fmt.Sprintf("servers[%d] (%s): unknown transport %q", i, s.Name, s.Transport))
	}
	return problems
}

// validateAliases rejects a snapshot where two aliases resolve to the same
// {serverName, localName} pair or where an alias name collides with
// another alias — spec.md's Open Question, resolved: reject at validation.
func validateAliases(c *Config) []string {
	var problems []string
	names := make(map[string]bool)
	targets := make(map[string]string) // "serverName/localName" -> alias name
	for i, a := range c.Aliases {
		if a.Name == "" {
			problems = append(problems, fmt.Sprintf("aliases[%d]: name is required", i))
			continue
		}
		if names[a.Name] {
			problems = append(problems, fmt.Sprintf("aliases[%d]: duplicate alias name %q", i, a.Name))
		}
		names[a.Name] = true

		key := a.ServerName + "/" + a.LocalName
		if existing, ok := targets[key]; ok && existing != a.Name {
			problems = append(problems, fmt.Sprintf(
				"aliases[%d]: %q and %q both resolve to {%s, %s}", i, existing, a.Name, a.ServerName, a.LocalName))
		}
		targets[key] = a.Name
	}
	return problems
}
