// Package gatewayserver implements component G: the front-side MCP server
// that aggregates backend capabilities behind one logical endpoint (spec.md
// §4.7), plus the read-only admin HTTP plane (SPEC_FULL.md §4.7).
package gatewayserver

import (
	"context"
	"sync"
	"time"

	"goblin/internal/config"
	"goblin/internal/pool"
	"goblin/internal/registry"
	"goblin/internal/router"
	"goblin/internal/session"
	"goblin/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "goblin"
	serverVersion = "0.1.0"
)

// Server wires the registry, router, pool, and session manager into a live
// mcp-go MCPServer and keeps its advertised tool/prompt/resource set in sync
// with the registry as backends come and go.
type Server struct {
	mcpServer *mcpserver.MCPServer
	reg       *registry.Registry
	route     *router.Router
	pool      *pool.Pool
	sessions  *session.Manager
	startedAt time.Time

	mu           sync.Mutex
	exposedTool  map[string]bool
	exposedProm  map[string]bool
	exposedRes   map[string]bool
	shutdownFunc func()

	sessionTimeoutMs int
	maxSessions      int
}

// New builds a Server. Call Run to start background sync and notification
// pumps; call Serve* to start a front-side transport.
func New(reg *registry.Registry, route *router.Router, p *pool.Pool, cfg *config.StreamableHTTPConfig) *Server {
	s := &Server{
		reg:         reg,
		route:       route,
		pool:        p,
		startedAt:   time.Now(),
		exposedTool: make(map[string]bool),
		exposedProm: make(map[string]bool),
		exposedRes:  make(map[string]bool),
	}

	sessionTimeout := time.Duration(config.DefaultSessionTimeoutMs) * time.Millisecond
	maxSessions := config.DefaultMaxSessions
	if cfg != nil {
		if cfg.SessionTimeoutMs > 0 {
			sessionTimeout = time.Duration(cfg.SessionTimeoutMs) * time.Millisecond
		}
		if cfg.MaxSessions > 0 {
			maxSessions = cfg.MaxSessions
		}
	}
	s.sessionTimeoutMs = int(sessionTimeout.Milliseconds())
	s.maxSessions = maxSessions
	s.sessions = session.NewSessionManager(sessionTimeout, maxSessions, func(id string) *session.Session {
		return session.New(id, "unknown")
	})

	hooks := &mcpserver.Hooks{}
	hooks.AddOnRegisterSession(func(_ context.Context, sess mcpserver.ClientSession) {
		if _, err := s.sessions.AddWithID(sess.SessionID()); err != nil {
			logging.Warn("GatewayServer", "session %s registration: %v", logging.TruncateSessionID(sess.SessionID()), err)
		}
	})
	hooks.AddOnUnregisterSession(func(_ context.Context, sess mcpserver.ClientSession) {
		s.sessions.Delete(sess.SessionID())
	})

	s.mcpServer = mcpserver.NewMCPServer(
		serverName, serverVersion,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithHooks(hooks),
	)

	return s
}

// Run blocks, resyncing the exposed capability set on every registry change
// and forwarding backend resource updates to subscribed sessions, until ctx
// is done.
func (s *Server) Run(ctx context.Context) {
	s.sync()

	changes := s.reg.Subscribe()
	updates := s.pool.ResourceUpdates()
	for {
		select {
		case <-ctx.Done():
			s.sessions.Stop()
			return
		case <-changes:
			s.sync()
		case ru, ok := <-updates:
			if !ok {
				return
			}
			s.forwardResourceUpdate(ru)
		}
	}
}

// sync reconciles the mcp-go server's advertised tools/prompts/resources
// against the registry's current union, adding new capabilities and
// removing obsolete ones in batches to minimize client notifications,
// mirroring the teacher's updateCapabilities/addNewItems/removeObsoleteItems
// split.
func (s *Server) sync() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.syncTools()
	s.syncPrompts()
	s.syncResources()
}

func (s *Server) syncTools() {
	cards := s.reg.ListTools()
	wanted := make(map[string]bool, len(cards))

	var toAdd []mcpserver.ServerTool
	for _, c := range cards {
		wanted[c.QualifiedName] = true
		if s.exposedTool[c.QualifiedName] {
			continue
		}
		if c.Blocked {
			continue
		}
		toAdd = append(toAdd, mcpserver.ServerTool{
			Tool:    mcp.Tool{Name: c.QualifiedName, Description: c.Summary},
			Handler: s.toolHandler(c.QualifiedName),
		})
		s.exposedTool[c.QualifiedName] = true
	}

	var toRemove []string
	for name := range s.exposedTool {
		if !wanted[name] {
			toRemove = append(toRemove, name)
			delete(s.exposedTool, name)
		}
	}

	if len(toAdd) > 0 {
		s.mcpServer.AddTools(toAdd...)
	}
	if len(toRemove) > 0 {
		s.mcpServer.DeleteTools(toRemove...)
	}
}

func (s *Server) syncPrompts() {
	cards := s.reg.ListPrompts()
	wanted := make(map[string]bool, len(cards))

	var toAdd []mcpserver.ServerPrompt
	for _, c := range cards {
		wanted[c.QualifiedName] = true
		if s.exposedProm[c.QualifiedName] {
			continue
		}
		toAdd = append(toAdd, mcpserver.ServerPrompt{
			Prompt:  mcp.Prompt{Name: c.QualifiedName, Description: c.Summary},
			Handler: s.promptHandler(c.QualifiedName),
		})
		s.exposedProm[c.QualifiedName] = true
	}

	var toRemove []string
	for name := range s.exposedProm {
		if !wanted[name] {
			toRemove = append(toRemove, name)
			delete(s.exposedProm, name)
		}
	}

	if len(toAdd) > 0 {
		s.mcpServer.AddPrompts(toAdd...)
	}
	if len(toRemove) > 0 {
		s.mcpServer.DeletePrompts(toRemove...)
	}
}

func (s *Server) syncResources() {
	cards := s.reg.ListResources()
	wanted := make(map[string]bool, len(cards))

	var toAdd []mcpserver.ServerResource
	for _, c := range cards {
		wanted[c.QualifiedName] = true
		if s.exposedRes[c.QualifiedName] {
			continue
		}
		toAdd = append(toAdd, mcpserver.ServerResource{
			Resource: mcp.Resource{URI: c.QualifiedName, Description: c.Summary},
			Handler:  s.resourceHandler(c.QualifiedName),
		})
		s.exposedRes[c.QualifiedName] = true
	}

	// The mcp-go API has no batch resource removal, so remove individually
	// (each call triggers its own list_changed notification).
	for uri := range s.exposedRes {
		if !wanted[uri] {
			s.mcpServer.RemoveResource(uri)
			delete(s.exposedRes, uri)
		}
	}

	if len(toAdd) > 0 {
		s.mcpServer.AddResources(toAdd...)
	}
}

func (s *Server) forwardResourceUpdate(ru pool.ResourceUpdate) {
	dropped := s.sessions.BroadcastSubscribed(ru.URI, session.Notification{
		Method: "notifications/resources/updated",
		Params: map[string]interface{}{"uri": ru.URI},
	})
	if dropped > 0 {
		logging.Warn("GatewayServer", "resource update for %s dropped for %d session(s)", ru.URI, dropped)
	}
}

// MCPServer exposes the underlying mcp-go server for transport constructors.
func (s *Server) MCPServer() *mcpserver.MCPServer { return s.mcpServer }

// Status is the snapshot backing GET /status.
type Status struct {
	Uptime        string `json:"uptime"`
	PID           int    `json:"pid"`
	SessionCount  int    `json:"sessionCount"`
	ToolCount     int    `json:"toolCount"`
	PromptCount   int    `json:"promptCount"`
	ResourceCount int    `json:"resourceCount"`
}

func (s *Server) status(pid int) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Uptime:        time.Since(s.startedAt).String(),
		PID:           pid,
		SessionCount:  s.sessions.Count(),
		ToolCount:     len(s.exposedTool),
		PromptCount:   len(s.exposedProm),
		ResourceCount: len(s.exposedRes),
	}
}
