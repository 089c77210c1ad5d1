// Package transport implements the uniform client-transport contract used
// to reach backend MCP servers: stdio child process, HTTP POST, SSE, and
// streamable-HTTP. Every adapter wraps an underlying mark3labs/mcp-go client
// and exposes the same small surface so the pool and backend client layers
// never branch on transport kind.
package transport

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Kind identifies a transport implementation.
type Kind string

const (
	KindStdio          Kind = "stdio"
	KindHTTP           Kind = "http"
	KindSSE            Kind = "sse"
	KindStreamableHTTP Kind = "streamable-http"
)

// State mirrors a transport's connection lifecycle.
type State string

const (
	StateDisconnected State = "Disconnected"
	StateConnecting   State = "Connecting"
	StateConnected    State = "Connected"
	StateFailed       State = "Failed"
)

// Transport is the uniform contract every backend adapter satisfies.
type Transport interface {
	io.Closer

	// Connect performs transport-level connect and the MCP initialize
	// handshake, capturing serverInfo/capabilities for the caller.
	Connect(ctx context.Context, clientName, clientVersion string) (*mcp.InitializeResult, error)
	Kind() Kind
	State() State

	// Underlying returns the wrapped mcp-go client so callers (the backend
	// client layer) can issue MCP operations directly.
	Underlying() client.MCPClient
}

// StderrReader is implemented by transports that surface a child process's
// stderr stream for diagnostic logging (stdio only).
type StderrReader interface {
	Stderr() (io.Reader, bool)
}

// base centralizes the connection bookkeeping shared by every transport.
type base struct {
	mu        sync.RWMutex
	kind      Kind
	underlying client.MCPClient
	state     State
}

func (b *base) Kind() Kind { return b.kind }

func (b *base) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *base) Underlying() client.MCPClient {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.underlying
}

func (b *base) setConnected(c client.MCPClient) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.underlying = c
	b.state = StateConnected
}

func (b *base) setFailed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateFailed
}

func (b *base) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.underlying == nil {
		return nil
	}
	err := b.underlying.Close()
	b.underlying = nil
	b.state = StateDisconnected
	return err
}

func doInitialize(ctx context.Context, c client.MCPClient, clientName, clientVersion string) (*mcp.InitializeResult, error) {
	result, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: "2024-11-05",
			ClientInfo: mcp.Implementation{
				Name:    clientName,
				Version: clientVersion,
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mcp initialize: %w", err)
	}
	return result, nil
}
