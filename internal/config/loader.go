package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"goblin/internal/gatewayerr"
)

// Load reads and parses the JSON document at path, applies the
// environment-variable overlay, fills defaults, and validates the result.
// On any failure it returns a ConfigInvalid error and no Config; callers
// that are reloading MUST retain their previous snapshot rather than apply
// a partial result (spec.md §4.1).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindConfigInvalid, err, "read config file %s", path)
	}
	return Parse(data)
}

// Parse parses a JSON config document from memory, applying overlay,
// defaults, and validation exactly as Load does. Exposed separately so
// tests can exercise it without a file on disk.
func Parse(data []byte) (*Config, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var c Config
	if err := dec.Decode(&c); err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindConfigInvalid, err, "parse config document")
	}
	if dec.More() {
		return nil, gatewayerr.ConfigInvalid("config document contains trailing data")
	}

	applyEnvOverrides(&c)
	applyDefaults(&c)

	if err := Validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// DefaultPath expands spec.md's well-known default config path.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".goblin/config.json"
	}
	return fmt.Sprintf("%s/.goblin/config.json", home)
}
