package transport

import (
	"context"
	"fmt"
	"io"
	"time"

	"goblin/pkg/logging"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// DefaultStdioInitTimeout bounds subprocess spawn + MCP handshake when the
// caller's context carries no deadline of its own.
const DefaultStdioInitTimeout = 10 * time.Second

// Stdio spawns a child process and exchanges JSON-RPC messages with it over
// its stdin/stdout through mcp-go's stdio client, which frames them as
// newline-delimited JSON; Content-Length headers are not used.
type Stdio struct {
	base
	command string
	args    []string
	env     map[string]string
}

var (
	_ Transport    = (*Stdio)(nil)
	_ StderrReader = (*Stdio)(nil)
)

// NewStdio builds a stdio transport for the given command.
func NewStdio(command string, args []string, env map[string]string) *Stdio {
	return &Stdio{base: base{kind: KindStdio, state: StateDisconnected}, command: command, args: args, env: env}
}

// Connect spawns the child process and performs the MCP handshake.
func (s *Stdio) Connect(ctx context.Context, clientName, clientVersion string) (*mcp.InitializeResult, error) {
	s.mu.Lock()
	if s.state == StateConnected {
		s.mu.Unlock()
		return nil, fmt.Errorf("already connected")
	}
	s.state = StateConnecting
	s.mu.Unlock()

	var envStrings []string
	for k, v := range s.env {
		envStrings = append(envStrings, fmt.Sprintf("%s=%s", k, v))
	}

	logging.Debug("Transport:stdio", "spawning %s %v", s.command, s.args)
	mcpClient, err := client.NewStdioMCPClient(s.command, envStrings, s.args...)
	if err != nil {
		s.setFailed()
		return nil, fmt.Errorf("spawn stdio client: %w", err)
	}

	initCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, DefaultStdioInitTimeout)
		defer cancel()
	}

	result, err := doInitialize(initCtx, mcpClient, clientName, clientVersion)
	if err != nil {
		_ = mcpClient.Close()
		s.setFailed()
		return nil, err
	}

	s.setConnected(mcpClient)
	return result, nil
}

// Stderr exposes the child process's stderr stream for diagnostic logging.
func (s *Stdio) Stderr() (io.Reader, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.underlying == nil {
		return nil, false
	}
	if concrete, ok := s.underlying.(*client.Client); ok {
		return client.GetStderr(concrete)
	}
	return nil, false
}
