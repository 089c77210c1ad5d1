package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunValidateConfigAcceptsValidDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
  "servers": [{"name": "s1", "transport": "stdio", "command": "/bin/echo", "enabled": true, "mode": "stateless"}],
  "gateway": {"host": "localhost", "port": 8080},
  "auth": {"mode": "none"},
  "policies": {"outputSizeLimit": 65536, "defaultTimeout": 30000}
}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	validateConfigPath = path
	defer func() { validateConfigPath = "" }()

	var buf bytes.Buffer
	validateConfigCmd.SetOut(&buf)
	err := runValidateConfig(validateConfigCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "valid (1 server(s), 0 alias(es))")
}

func TestRunValidateConfigRejectsInvalidDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{"servers": [{"name": "s1", "transport": "stdio", "enabled": true}], "gateway": {}, "auth": {}, "policies": {}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	validateConfigPath = path
	defer func() { validateConfigPath = "" }()

	err := runValidateConfig(validateConfigCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command is required")
}
