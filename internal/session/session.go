// Package session implements component H: goblin's front-side client
// session bookkeeping (spec.md §4.8). A Session tracks one connected MCP
// client across its New -> Initialized -> Active* -> Closing -> Closed
// lifecycle, its resource subscriptions, and a bounded outbound
// notification queue.
package session

import (
	"sync"
	"time"

	"goblin/pkg/logging"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// State is a session's position in its lifecycle state machine.
type State string

const (
	StateNew         State = "New"
	StateInitialized State = "Initialized"
	StateActive      State = "Active"
	StateClosing     State = "Closing"
	StateClosed      State = "Closed"
)

const defaultOutboundQueueSize = 256

// Notification is one backend-originated event queued for delivery to a
// session's transport.
type Notification struct {
	Method string
	Params map[string]interface{}
}

// Session is one front-side client connection.
type Session struct {
	mu sync.Mutex

	id              string
	transportKind   string
	protocolVersion string
	clientInfo      mcp.Implementation
	compatMode      bool

	state        State
	createdAt    time.Time
	lastActivity time.Time

	subscriptions map[string]struct{}
	outbound      chan Notification
}

// New creates a Session in the New state. Call MarkInitialized once the
// client's initialize request has been answered.
// New creates a Session with the given id in the New state. Pass an empty
// id to have one generated (used when no front-side transport already
// assigned one, e.g. a bare protocol test).
func New(id, transportKind string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	return &Session{
		id:            id,
		transportKind: transportKind,
		state:         StateNew,
		createdAt:     now,
		lastActivity:  now,
		subscriptions: make(map[string]struct{}),
		outbound:      make(chan Notification, defaultOutboundQueueSize),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// MarkInitialized records the negotiated protocol version and client info
// and transitions New -> Initialized. Per spec.md §4.7, only after this
// call may non-initialize requests be honored.
func (s *Session) MarkInitialized(protocolVersion string, clientInfo mcp.Implementation, compatMode bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protocolVersion = protocolVersion
	s.clientInfo = clientInfo
	s.compatMode = compatMode
	s.state = StateInitialized
}

// Touch marks the session active and bumps lastActivity.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateInitialized || s.state == StateActive {
		s.state = StateActive
	}
	s.lastActivity = time.Now()
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// CompatMode reports whether this session opted into compatibility mode
// (excluded from notification fan-out, per spec.md §4.7).
func (s *Session) CompatMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compatMode
}

// BeginClosing transitions towards Closed; repeated calls are a no-op.
func (s *Session) BeginClosing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateClosed {
		s.state = StateClosing
	}
}

// Close transitions to Closed and drains the outbound queue.
func (s *Session) Close() {
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
	for {
		select {
		case <-s.outbound:
		default:
			return
		}
	}
}

// Subscribe records uri as subscribed by this session.
func (s *Session) Subscribe(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[uri] = struct{}{}
}

// Unsubscribe removes uri from this session's subscription set.
func (s *Session) Unsubscribe(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, uri)
}

// IsSubscribed reports whether this session subscribed to uri.
func (s *Session) IsSubscribed(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subscriptions[uri]
	return ok
}

// Outbound returns the channel a session's transport should drain to
// deliver queued notifications.
func (s *Session) Outbound() <-chan Notification { return s.outbound }

// Enqueue delivers a notification fire-and-forget. When the outbound queue
// is full the oldest entry is dropped to make room, per spec.md §4.7 —
// bounded queue, drop-oldest-on-full, counter incremented by the caller.
func (s *Session) Enqueue(n Notification) (dropped bool) {
	select {
	case s.outbound <- n:
		return false
	default:
	}

	select {
	case <-s.outbound:
	default:
	}
	select {
	case s.outbound <- n:
	default:
		logging.Warn("SessionManager", "%s: outbound queue contention, notification lost", logging.TruncateSessionID(s.id))
	}
	return true
}
