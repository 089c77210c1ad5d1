package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const oneServerDoc = `{
  "servers": [
    {"name": "s1", "transport": "stdio", "command": "/bin/echo", "enabled": true, "mode": "stateful"}
  ],
  "gateway": {"host": "0.0.0.0", "port": 9090},
  "auth": {"mode": "none"},
  "policies": {"outputSizeLimit": 65536, "defaultTimeout": 500}
}`

const twoServerDoc = `{
  "servers": [
    {"name": "s1", "transport": "stdio", "command": "/bin/echo", "enabled": true, "mode": "stateful"},
    {"name": "s2", "transport": "stdio", "command": "/bin/echo", "enabled": true, "mode": "stateless"}
  ],
  "gateway": {"host": "0.0.0.0", "port": 9090},
  "auth": {"mode": "none"},
  "policies": {"outputSizeLimit": 65536, "defaultTimeout": 500}
}`

func writeReconcilerFixture(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// TestReloadHotAddsServer covers spec.md §8 scenario 2 ("Hot add"): a
// config file edited to add a server produces exactly one Added
// ServerEvent and the live snapshot reflects the new server, without
// disturbing the already-configured one.
func TestReloadHotAddsServer(t *testing.T) {
	path := writeReconcilerFixture(t, oneServerDoc)
	r, err := NewReconciler(path)
	require.NoError(t, err)
	events := r.Subscribe()

	require.NoError(t, os.WriteFile(path, []byte(twoServerDoc), 0o600))
	r.Reload()

	select {
	case ev := <-events:
		require.NoError(t, ev.Err)
		require.Len(t, ev.ServerEvents, 1)
		assert.Equal(t, EventAdded, ev.ServerEvents[0].Kind)
		assert.Equal(t, "s2", ev.ServerEvents[0].Spec.Name)
		assert.Len(t, ev.Snapshot.Config.Servers, 2)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reconcile event")
	}

	assert.Len(t, r.Current().Config.Servers, 2)
}

// TestReloadInvalidDocumentRetainsPreviousSnapshot covers spec.md §8
// scenario 3 ("Invalid reload"): a reload candidate that fails validation
// must not replace the live snapshot, and subscribers must observe the
// failure via ReconcileEvent.Err rather than a silent no-op.
func TestReloadInvalidDocumentRetainsPreviousSnapshot(t *testing.T) {
	path := writeReconcilerFixture(t, oneServerDoc)
	r, err := NewReconciler(path)
	require.NoError(t, err)
	events := r.Subscribe()

	before := r.Current()
	require.NoError(t, os.WriteFile(path, []byte(`{"servers": [{"name": "s1"}]}`), 0o600))
	r.Reload()

	select {
	case ev := <-events:
		require.Error(t, ev.Err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reconcile event")
	}

	after := r.Current()
	assert.Same(t, before, after, "invalid reload must not replace the live snapshot")
	assert.Equal(t, before.Generation, after.Generation)
}

// TestReloadNoopOnIdenticalDocumentPublishesNoServerEvents ensures a
// reload that re-reads byte-identical config still bumps the snapshot
// (generation) but produces zero ServerEvents, so the pool does not
// needlessly reconnect backends.
func TestReloadNoopOnIdenticalDocumentPublishesNoServerEvents(t *testing.T) {
	path := writeReconcilerFixture(t, oneServerDoc)
	r, err := NewReconciler(path)
	require.NoError(t, err)
	events := r.Subscribe()

	r.Reload()

	select {
	case ev := <-events:
		require.NoError(t, ev.Err)
		assert.Empty(t, ev.ServerEvents)
		assert.Equal(t, uint64(2), r.Current().Generation)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reconcile event")
	}
}
