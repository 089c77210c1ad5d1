package session

import (
	"testing"
	"time"

	"goblin/internal/gatewayerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddWithIDAndGet(t *testing.T) {
	m := NewSessionManager(time.Hour, 0, func(id string) *Session { return New(id, "stdio") })
	defer m.Stop()

	s, err := m.AddWithID("sess1")
	require.NoError(t, err)
	assert.Equal(t, "sess1", s.ID())
	// AddWithID does not force the factory to use the given id; Manager
	// keys by the caller's id regardless of what the factory assigns.
	got, ok := m.Get("sess1")
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestAddWithIDDuplicateErrors(t *testing.T) {
	m := NewSessionManager(time.Hour, 0, func(id string) *Session { return New(id, "stdio") })
	defer m.Stop()

	_, err := m.AddWithID("dup")
	require.NoError(t, err)
	_, err = m.AddWithID("dup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestAddWithIDOverCapacity(t *testing.T) {
	m := NewSessionManager(time.Hour, 1, func(id string) *Session { return New(id, "stdio") })
	defer m.Stop()

	_, err := m.AddWithID("first")
	require.NoError(t, err)

	_, err = m.AddWithID("second")
	require.Error(t, err)
	assert.True(t, gatewayerr.Is(err, gatewayerr.KindSessionOverCapacity))
}

func TestDeleteRemovesSession(t *testing.T) {
	m := NewSessionManager(time.Hour, 0, func(id string) *Session { return New(id, "stdio") })
	defer m.Stop()

	_, err := m.AddWithID("gone")
	require.NoError(t, err)
	m.Delete("gone")

	_, ok := m.Get("gone")
	assert.False(t, ok)
}

func TestCleanupExpiredOnceReapsIdleSessions(t *testing.T) {
	m := NewSessionManager(20*time.Millisecond, 0, func(id string) *Session { return New(id, "stdio") })
	defer m.Stop()

	_, err := m.AddWithID("stale")
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	m.cleanupExpiredOnce()

	_, ok := m.Get("stale")
	assert.False(t, ok)
}

// TestSessionResumePreservesSubscriptions covers spec.md §8 scenario 5
// ("Session resume"): a client that reconnects using the same session id
// must find its prior resource subscriptions still intact, since resume
// looks up the existing Session rather than replacing it.
func TestSessionResumePreservesSubscriptions(t *testing.T) {
	m := NewSessionManager(time.Hour, 0, func(id string) *Session { return New(id, "streamable-http") })
	defer m.Stop()

	first, err := m.AddWithID("resumable")
	require.NoError(t, err)
	first.Subscribe("file:///watched.txt")

	// Simulate the transport dropping and the client reconnecting with the
	// same session id: the gateway looks the session up rather than
	// calling AddWithID again.
	resumed, ok := m.Get("resumable")
	require.True(t, ok)
	assert.Same(t, first, resumed)
	assert.True(t, resumed.IsSubscribed("file:///watched.txt"))
}

func TestBroadcastSkipsCompatModeSessions(t *testing.T) {
	m := NewSessionManager(time.Hour, 0, func(id string) *Session { return New(id, "stdio") })
	defer m.Stop()

	normal, err := m.AddWithID("normal")
	require.NoError(t, err)
	compat, err := m.AddWithID("compat")
	require.NoError(t, err)
	compat.MarkInitialized("2024-11-05", normal.clientInfo, true)

	m.Broadcast(Notification{Method: "notifications/tools/list_changed"})

	select {
	case <-normal.Outbound():
	default:
		t.Fatal("expected normal session to receive broadcast")
	}
	select {
	case <-compat.Outbound():
		t.Fatal("compat-mode session should not receive broadcast")
	default:
	}
}
