package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"goblin/internal/config"

	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `{
  "servers": [
    {"name": "s1", "transport": "stdio", "command": "/bin/echo", "enabled": true, "mode": "stateless"}
  ],
  "gateway": {"host": "localhost", "port": 8080},
  "auth": {"mode": "none"},
  "policies": {"outputSizeLimit": 65536, "defaultTimeout": 30000}
}`

func TestInitializeServicesWiresComponents(t *testing.T) {
	path := writeTestConfig(t, minimalConfig)
	cfg := NewConfig(false, false, path, "http", "", 0)

	s, err := InitializeServices(cfg)
	require.NoError(t, err)
	require.NotNil(t, s.Reconciler)
	require.NotNil(t, s.Registry)
	require.NotNil(t, s.Pool)
	require.NotNil(t, s.Router)
	require.NotNil(t, s.Gateway)
}

func TestApplyInitialServersSeedsPool(t *testing.T) {
	path := writeTestConfig(t, minimalConfig)
	cfg := NewConfig(false, false, path, "http", "", 0)

	s, err := InitializeServices(cfg)
	require.NoError(t, err)

	applyInitialServers(context.Background(), s, s.Reconciler.Current().Config)

	// Stateless backends connect lazily, but ApplyEvent still records the
	// spec immediately so a later Acquire can find it.
	_, err = s.Pool.Acquire(context.Background(), "unknown-server")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not configured")

	// s1 is known to the pool: acquiring it fails while connecting to
	// /bin/echo (not an MCP server), not because it is unconfigured.
	acquireCtx, acquireCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer acquireCancel()
	_, err = s.Pool.Acquire(acquireCtx, "s1")
	require.Error(t, err)
	require.NotContains(t, err.Error(), "not configured")
}

func TestWatchReconcilerAppliesServerEvents(t *testing.T) {
	path := writeTestConfig(t, minimalConfig)
	cfg := NewConfig(false, false, path, "http", "", 0)

	s, err := InitializeServices(cfg)
	require.NoError(t, err)
	applyInitialServers(context.Background(), s, s.Reconciler.Current().Config)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchReconciler(ctx, s)

	updated := `{
  "servers": [
    {"name": "s1", "transport": "stdio", "command": "/bin/echo", "enabled": true, "mode": "stateless"},
    {"name": "s2", "transport": "stdio", "command": "/bin/echo", "enabled": true, "mode": "stateless"}
  ],
  "gateway": {"host": "localhost", "port": 8080},
  "auth": {"mode": "none"},
  "policies": {"outputSizeLimit": 65536, "defaultTimeout": 30000},
  "aliases": [{"name": "echo", "serverName": "s1", "localName": "s1"}]
}`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	// Give watchReconciler time to subscribe before the reload publishes.
	time.Sleep(20 * time.Millisecond)
	s.Reconciler.Reload()
	time.Sleep(50 * time.Millisecond)

	// The reloaded alias reached the registry (s1 has no listed
	// capabilities, so the alias resolves to a missing target) ...
	_, _, _, err = s.Registry.Resolve("echo")
	require.Error(t, err)
	require.Contains(t, err.Error(), "targets missing capability")

	// ... and the added server s2 reached the pool.
	acquireCtx, acquireCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer acquireCancel()
	_, err = s.Pool.Acquire(acquireCtx, "s2")
	require.Error(t, err)
	require.NotContains(t, err.Error(), "not configured")
}
