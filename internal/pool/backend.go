// Package pool implements component D: per-backend connection lifecycle
// management (Stateful/Stateless/Smart policies), health probing, and
// circuit breaking (spec.md §4.4).
package pool

import (
	"sync"
	"time"

	"goblin/internal/config"
	"goblin/internal/mcpclient"

	"github.com/mark3labs/mcp-go/mcp"
)

// State is the live projection of a ServerSpec, per spec.md §3.
type State string

const (
	StateDisconnected State = "Disconnected"
	StateConnecting   State = "Connecting"
	StateReady        State = "Ready"
	StateDegraded     State = "Degraded"
	StateFailed       State = "Failed"
	StateEvicted      State = "Evicted"
)

// Backend is one backend's live state, owned by the Pool. The registry
// only ever holds the backend's name (a weak reference), per spec.md §3.
type Backend struct {
	mu sync.Mutex

	Spec   config.ServerSpec
	State  State
	Client *mcpclient.Client
	// connDone is closed whenever Client is superseded (reconnect, smart
	// idle-disconnect) so the pumpNotifications goroutine reading the
	// superseded client's notification channel can exit. Notification
	// channels are never closed by mcpclient.Client itself (its callback
	// can still fire mid-teardown), so without this every reconnect leaks
	// the previous pumpNotifications goroutine.
	connDone chan struct{}

	ProtocolVersion string
	ServerInfo      mcp.Implementation
	Capabilities    mcp.ServerCapabilities

	LastActivity  time.Time
	FailureStreak int
	openedAt      time.Time // when the circuit opened (Degraded), zero otherwise

	idleTimer *time.Timer
	stopCh    chan struct{}
}

func newBackend(spec config.ServerSpec) *Backend {
	return &Backend{Spec: spec, State: StateDisconnected, stopCh: make(chan struct{})}
}

func (b *Backend) snapshot() (State, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.State, b.FailureStreak
}

func (b *Backend) setState(s State) {
	b.mu.Lock()
	b.State = s
	b.mu.Unlock()
}

func (b *Backend) recordSuccess() {
	b.mu.Lock()
	b.FailureStreak = 0
	b.LastActivity = time.Now()
	if b.State != StateEvicted {
		b.State = StateReady
	}
	b.openedAt = time.Time{}
	b.mu.Unlock()
}

// setClient installs a freshly connected client and its pumpNotifications
// done channel, returning whatever client/done pair it superseded so the
// caller can shut the old one down and stop its notification pump.
func (b *Backend) setClient(c *mcpclient.Client, done chan struct{}) (oldClient *mcpclient.Client, oldDone chan struct{}) {
	b.mu.Lock()
	oldClient, oldDone = b.Client, b.connDone
	b.Client = c
	b.connDone = done
	b.mu.Unlock()
	return oldClient, oldDone
}

// clearClient disassociates the current client/done pair, returning them
// so the caller can shut the client down and stop its notification pump.
func (b *Backend) clearClient() (oldClient *mcpclient.Client, oldDone chan struct{}) {
	return b.setClient(nil, nil)
}

func (b *Backend) recordFailure(threshold int) (openedCircuit bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.FailureStreak++
	if b.FailureStreak >= threshold && b.State != StateDegraded {
		b.State = StateDegraded
		b.openedAt = time.Now()
		return true
	}
	return false
}
