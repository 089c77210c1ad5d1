package transport

import (
	"context"
	"fmt"

	"goblin/pkg/logging"

	"github.com/mark3labs/mcp-go/client"
	clienttransport "github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// SSE holds a long-lived GET for server-to-client events and a POST
// sidecar for client-to-server requests, per spec.md §4.2.
type SSE struct {
	base
	url     string
	headers map[string]string
}

var _ Transport = (*SSE)(nil)

// NewSSE builds an SSE transport for url, with optional custom headers.
func NewSSE(url string, headers map[string]string) *SSE {
	if headers == nil {
		headers = make(map[string]string)
	}
	return &SSE{base: base{kind: KindSSE, state: StateDisconnected}, url: url, headers: headers}
}

func (s *SSE) Connect(ctx context.Context, clientName, clientVersion string) (*mcp.InitializeResult, error) {
	s.mu.Lock()
	if s.state == StateConnected {
		s.mu.Unlock()
		return nil, fmt.Errorf("already connected")
	}
	s.state = StateConnecting
	s.mu.Unlock()

	var opts []clienttransport.ClientOption
	if len(s.headers) > 0 {
		opts = append(opts, clienttransport.WithHeaders(s.headers))
	}

	logging.Debug("Transport:sse", "connecting to %s", s.url)
	mcpClient, err := client.NewSSEMCPClient(s.url, opts...)
	if err != nil {
		s.setFailed()
		return nil, fmt.Errorf("create sse client: %w", err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		_ = mcpClient.Close()
		s.setFailed()
		return nil, fmt.Errorf("start sse transport: %w", err)
	}

	result, err := doInitialize(ctx, mcpClient, clientName, clientVersion)
	if err != nil {
		_ = mcpClient.Close()
		s.setFailed()
		return nil, err
	}

	s.setConnected(mcpClient)
	return result, nil
}
