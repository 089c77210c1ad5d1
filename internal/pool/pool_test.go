package pool

import (
	"context"
	"testing"
	"time"

	"goblin/internal/config"
	"goblin/internal/gatewayerr"
	"goblin/internal/mcpclient"
	"goblin/internal/registry"
	"goblin/internal/transport"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport is a no-op transport.Transport stub, used where a test
// needs a *mcpclient.Client whose Shutdown can be exercised without a
// real backend connection.
type fakeTransport struct{}

func (fakeTransport) Connect(ctx context.Context, clientName, clientVersion string) (*mcp.InitializeResult, error) {
	return &mcp.InitializeResult{}, nil
}
func (fakeTransport) Kind() transport.Kind          { return transport.KindStdio }
func (fakeTransport) State() transport.State        { return transport.StateConnected }
func (fakeTransport) Underlying() client.MCPClient  { return nil }
func (fakeTransport) Close() error                  { return nil }

func TestAcquireUnconfiguredBackend(t *testing.T) {
	p := New(registry.New(5*time.Second, false), time.Second)

	_, err := p.Acquire(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, gatewayerr.Is(err, gatewayerr.KindBackendUnavailable))
}

func TestApplyEventAddDisabledServerSkipsConnect(t *testing.T) {
	p := New(registry.New(5*time.Second, false), time.Second)

	p.ApplyEvent(context.Background(), config.ServerEvent{
		Kind: config.EventAdded,
		Spec: config.ServerSpec{Name: "disabled1", Enabled: false},
	})

	b, ok := p.get("disabled1")
	require.True(t, ok)
	state, _ := b.snapshot()
	assert.Equal(t, StateDisconnected, state)
}

func TestApplyEventRemovedOnUnknownServerIsNoop(t *testing.T) {
	p := New(registry.New(5*time.Second, false), time.Second)

	assert.NotPanics(t, func() {
		p.ApplyEvent(context.Background(), config.ServerEvent{
			Kind: config.EventRemoved,
			Spec: config.ServerSpec{Name: "ghost"},
		})
	})
}

func TestEvictStopsBackendAndRemovesFromPool(t *testing.T) {
	p := New(registry.New(5*time.Second, false), time.Second)
	p.ApplyEvent(context.Background(), config.ServerEvent{
		Kind: config.EventAdded,
		Spec: config.ServerSpec{Name: "s1", Enabled: false},
	})

	p.evict("s1")

	_, ok := p.get("s1")
	assert.False(t, ok)
}

func TestAcquireStatelessUnreachableBackendReturnsError(t *testing.T) {
	p := New(registry.New(5*time.Second, false), time.Second)
	p.ApplyEvent(context.Background(), config.ServerEvent{
		Kind: config.EventAdded,
		Spec: config.ServerSpec{
			Name:      "s1",
			Enabled:   true,
			Mode:      config.ModeStateless,
			Transport: config.TransportStdio,
			Command:   "/nonexistent/goblin-test-binary",
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := p.Acquire(ctx, "s1")
	require.Error(t, err)
}

// TestCrashedBackendDoesNotAffectSiblingPoolEntry covers spec.md §8
// scenario 6 ("Crash isolation"): one backend failing to connect must
// leave a sibling backend's pool entry and state machine untouched.
func TestCrashedBackendDoesNotAffectSiblingPoolEntry(t *testing.T) {
	p := New(registry.New(5*time.Second, false), time.Second)
	p.ApplyEvent(context.Background(), config.ServerEvent{
		Kind: config.EventAdded,
		Spec: config.ServerSpec{
			Name:      "crashy",
			Enabled:   true,
			Mode:      config.ModeStateless,
			Transport: config.TransportStdio,
			Command:   "/nonexistent/goblin-test-binary",
		},
	})
	p.ApplyEvent(context.Background(), config.ServerEvent{
		Kind: config.EventAdded,
		Spec: config.ServerSpec{Name: "bystander", Enabled: false},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := p.Acquire(ctx, "crashy")
	require.Error(t, err)

	bystander, ok := p.get("bystander")
	require.True(t, ok)
	state, streak := bystander.snapshot()
	assert.Equal(t, StateDisconnected, state)
	assert.Zero(t, streak)
}

// TestPumpNotificationsExitsWhenSuperseded guards against the
// pumpNotifications goroutine leak: mcpclient.Client never closes its own
// notification channel, so pumpNotifications must exit via its done
// channel once the client it was reading is superseded by a reconnect.
func TestPumpNotificationsExitsWhenSuperseded(t *testing.T) {
	p := New(registry.New(5*time.Second, false), time.Second)
	b := newBackend(config.ServerSpec{Name: "s1"})
	c := mcpclient.New("s1", fakeTransport{}, time.Second)
	done := make(chan struct{})

	exited := make(chan struct{})
	go func() {
		p.pumpNotifications(b, c, done)
		close(exited)
	}()

	close(done)

	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("pumpNotifications did not exit after its done channel closed")
	}
}

// TestShutdownSupersededClosesDoneAndShutsDownClient ensures connectOnce's
// reconnect path tears down the previous client's pump and transport
// rather than abandoning them.
func TestShutdownSupersededClosesDoneAndShutsDownClient(t *testing.T) {
	p := New(registry.New(5*time.Second, false), time.Second)
	c := mcpclient.New("s1", fakeTransport{}, time.Second)
	done := make(chan struct{})

	p.shutdownSuperseded("s1", c, done)

	select {
	case <-done:
	default:
		t.Fatal("expected done channel to be closed")
	}
}
