package session

import (
	"fmt"
	"sync"
	"time"

	"goblin/internal/gatewayerr"
	"goblin/internal/metrics"
	"goblin/pkg/logging"
)

const cleanupInterval = 10 * time.Second

// Factory builds a new Session for id. Tests substitute a stub to control
// timestamps, mirroring toolhive's pkg/transport/session factory shape.
type Factory func(id string) *Session

// Manager owns the set of live sessions, enforcing a capacity limit and
// reaping sessions idle past ttl. The shape (AddWithID/Get/Delete plus a
// ticker-driven cleanupExpiredOnce) mirrors toolhive's
// pkg/transport/session.Manager, generalized to goblin's richer Session.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  Factory
	ttl      time.Duration
	maxSize  int

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewSessionManager builds a Manager reaping sessions idle longer than ttl.
// A ttl <= 0 disables the reaper. maxSize <= 0 means unbounded.
func NewSessionManager(ttl time.Duration, maxSize int, factory Factory) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		factory:  factory,
		ttl:      ttl,
		maxSize:  maxSize,
		stopCh:   make(chan struct{}),
	}
	if ttl > 0 {
		go m.cleanupLoop()
	}
	return m
}

// AddWithID creates a session with the given id via the factory and stores
// it, failing if the id is already in use or capacity is exhausted.
func (m *Manager) AddWithID(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; exists {
		return nil, fmt.Errorf("session %q already exists", id)
	}
	if m.maxSize > 0 && len(m.sessions) >= m.maxSize {
		return nil, gatewayerr.SessionOverCapacity(m.maxSize)
	}

	s := m.factory(id)
	m.sessions[id] = s
	return s, nil
}

// Get returns the session for id and bumps its activity timestamp.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.Touch()
	}
	return s, ok
}

// Delete removes a session by id.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Broadcast enqueues n to every session except those in compatibility mode,
// per spec.md §4.7. Returns the number of sessions the notification was
// dropped for due to a full outbound queue.
func (m *Manager) Broadcast(n Notification) (dropped int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, s := range m.sessions {
		if s.CompatMode() {
			continue
		}
		if s.Enqueue(n) {
			dropped++
			metrics.SessionNotificationDrops.WithLabelValues(logging.TruncateSessionID(id)).Inc()
		}
	}
	return dropped
}

// BroadcastSubscribed is like Broadcast, but only delivers to sessions
// subscribed to uri (used for notifications/resources/updated).
func (m *Manager) BroadcastSubscribed(uri string, n Notification) (dropped int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, s := range m.sessions {
		if s.CompatMode() || !s.IsSubscribed(uri) {
			continue
		}
		if s.Enqueue(n) {
			dropped++
			metrics.SessionNotificationDrops.WithLabelValues(logging.TruncateSessionID(id)).Inc()
		}
	}
	return dropped
}

func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.cleanupExpiredOnce()
		}
	}
}

func (m *Manager) cleanupExpiredOnce() {
	now := time.Now()
	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if now.Sub(s.LastActivity()) >= m.ttl {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
		logging.Info("SessionManager", "%s: expired after %s idle", logging.TruncateSessionID(s.ID()), m.ttl)
	}
}

// Stop halts the TTL reaper. Safe to call multiple times.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}
