package config

import (
	"testing"

	"goblin/internal/gatewayerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDoc = `{
  "servers": [
    {"name": "s1", "transport": "stdio", "command": "/bin/echo", "enabled": true, "mode": "stateful"},
    {"name": "s2", "transport": "streamablehttp", "url": "http://example.invalid/mcp", "enabled": true, "mode": "stateless"}
  ],
  "gateway": {"host": "0.0.0.0", "port": 9090},
  "auth": {"mode": "none"},
  "policies": {"outputSizeLimit": 65536, "defaultTimeout": 500}
}`

func TestParseValidDocument(t *testing.T) {
	cfg, err := Parse([]byte(validDoc))
	require.NoError(t, err)
	assert.Len(t, cfg.Servers, 2)
	assert.Equal(t, "0.0.0.0", cfg.Gateway.Host)
	assert.Equal(t, 9090, cfg.Gateway.Port)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`{"servers": [], "gateway": {}, "auth": {}, "policies": {}, "bogus": true}`))
	require.Error(t, err)
	assert.True(t, gatewayerr.Is(err, gatewayerr.KindConfigInvalid))
}

func TestParseRejectsSyntacticallyBrokenJSON(t *testing.T) {
	_, err := Parse([]byte(`{"servers": [`))
	require.Error(t, err)
	assert.True(t, gatewayerr.Is(err, gatewayerr.KindConfigInvalid))
}

func TestParseRejectsMissingCommandForStdio(t *testing.T) {
	_, err := Parse([]byte(`{
		"servers": [{"name": "s1", "transport": "stdio", "enabled": true}],
		"gateway": {}, "auth": {}, "policies": {}
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command is required")
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{"servers": [], "gateway": {}, "auth": {}, "policies": {}}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultHost, cfg.Gateway.Host)
	assert.Equal(t, DefaultPort, cfg.Gateway.Port)
	assert.Equal(t, DefaultOutputSizeLimit, cfg.Policies.OutputSizeLimit)
}

func TestParseRejectsDuplicateServerNames(t *testing.T) {
	_, err := Parse([]byte(`{
		"servers": [
			{"name": "s1", "transport": "stdio", "command": "/bin/true", "enabled": true},
			{"name": "s1", "transport": "stdio", "command": "/bin/true", "enabled": true}
		],
		"gateway": {}, "auth": {}, "policies": {}
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate server name")
}

func TestParseRejectsAliasCollision(t *testing.T) {
	_, err := Parse([]byte(`{
		"servers": [{"name": "s1", "transport": "stdio", "command": "/bin/true", "enabled": true}],
		"gateway": {}, "auth": {}, "policies": {},
		"aliases": [
			{"name": "a1", "serverName": "s1", "localName": "x"},
			{"name": "a2", "serverName": "s1", "localName": "x"}
		]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both resolve to")
}
