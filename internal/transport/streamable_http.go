package transport

import (
	"context"
	"fmt"

	"goblin/pkg/logging"

	"github.com/mark3labs/mcp-go/client"
	clienttransport "github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// StreamableHTTP speaks the single-endpoint streamable-HTTP transport: the
// first POST may return JSON or an SSE stream, and the server assigns an
// opaque session id echoed on subsequent requests, per spec.md §4.2.
type StreamableHTTP struct {
	base
	url     string
	headers map[string]string
}

var _ Transport = (*StreamableHTTP)(nil)

// NewStreamableHTTP builds a streamable-HTTP transport for url.
func NewStreamableHTTP(url string, headers map[string]string) *StreamableHTTP {
	if headers == nil {
		headers = make(map[string]string)
	}
	return &StreamableHTTP{base: base{kind: KindStreamableHTTP, state: StateDisconnected}, url: url, headers: headers}
}

func (s *StreamableHTTP) Connect(ctx context.Context, clientName, clientVersion string) (*mcp.InitializeResult, error) {
	s.mu.Lock()
	if s.state == StateConnected {
		s.mu.Unlock()
		return nil, fmt.Errorf("already connected")
	}
	s.state = StateConnecting
	s.mu.Unlock()

	var opts []clienttransport.StreamableHTTPCOption
	if len(s.headers) > 0 {
		opts = append(opts, clienttransport.WithHTTPHeaders(s.headers))
	}

	logging.Debug("Transport:streamable-http", "connecting to %s", s.url)
	mcpClient, err := client.NewStreamableHttpClient(s.url, opts...)
	if err != nil {
		s.setFailed()
		return nil, fmt.Errorf("create streamable-http client: %w", err)
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
