package gatewayserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"goblin/internal/config"
	"goblin/internal/pool"
	"goblin/internal/registry"
	"goblin/internal/router"

	"github.com/stretchr/testify/assert"
)

func passThroughHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// TestCapacityGateRejectsNewSessionsOverCapacity covers spec.md §6's
// boundary test: maxSessions exactly N accepted, N+1 rejected with 429.
// Exercised through the real HTTP middleware, not just the disconnected
// session.Manager, since that's what actually produces the response a
// client over capacity receives.
func TestCapacityGateRejectsNewSessionsOverCapacity(t *testing.T) {
	reg := registry.New(5*time.Second, false)
	p := pool.New(reg, time.Second)
	rt := router.New(reg, p, 1024, time.Second)
	s := New(reg, rt, p, &config.StreamableHTTPConfig{MaxSessions: 1})

	_, err := s.sessions.AddWithID("already-connected")
	assert.NoError(t, err)

	gated := s.capacityGate(passThroughHandler())

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	rec := httptest.NewRecorder()
	gated.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

// TestCapacityGatePassesThroughEstablishedSessions ensures a request that
// already carries an Mcp-Session-Id is never capacity-gated, even once the
// gateway is at maxSessions, since it isn't creating a new session.
func TestCapacityGatePassesThroughEstablishedSessions(t *testing.T) {
	reg := registry.New(5*time.Second, false)
	p := pool.New(reg, time.Second)
	rt := router.New(reg, p, 1024, time.Second)
	s := New(reg, rt, p, &config.StreamableHTTPConfig{MaxSessions: 1})

	_, err := s.sessions.AddWithID("already-connected")
	assert.NoError(t, err)

	gated := s.capacityGate(passThroughHandler())

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set(mcpSessionIDHeader, "already-connected")
	rec := httptest.NewRecorder()
	gated.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestCapacityGateAllowsFirstSessionUnderCapacity is the N-accepted half of
// the same boundary: a brand-new session request with no header at all is
// let through while the gateway is under maxSessions.
func TestCapacityGateAllowsFirstSessionUnderCapacity(t *testing.T) {
	reg := registry.New(5*time.Second, false)
	p := pool.New(reg, time.Second)
	rt := router.New(reg, p, 1024, time.Second)
	s := New(reg, rt, p, &config.StreamableHTTPConfig{MaxSessions: 2})

	_, err := s.sessions.AddWithID("already-connected")
	assert.NoError(t, err)

	gated := s.capacityGate(passThroughHandler())

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	rec := httptest.NewRecorder()
	gated.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
