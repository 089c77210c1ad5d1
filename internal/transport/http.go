package transport

import (
	"context"
	"fmt"

	"goblin/pkg/logging"

	"github.com/mark3labs/mcp-go/client"
	clienttransport "github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// HTTP is a plain request-response transport: one HTTP POST per frame, no
// intrinsic session, per spec.md §4.2. It reuses mcp-go's streamable-HTTP
// client in non-streaming mode, since the wire shape (one JSON POST per
// call) is the same without an SSE upgrade.
type HTTP struct {
	base
	url     string
	headers map[string]string
}

var _ Transport = (*HTTP)(nil)

// NewHTTP builds a plain HTTP transport for url.
func NewHTTP(url string, headers map[string]string) *HTTP {
	if headers == nil {
		headers = make(map[string]string)
	}
	return &HTTP{base: base{kind: KindHTTP, state: StateDisconnected}, url: url, headers: headers}
}

func (h *HTTP) Connect(ctx context.Context, clientName, clientVersion string) (*mcp.InitializeResult, error) {
	h.mu.Lock()
	if h.state == StateConnected {
		h.mu.Unlock()
		return nil, fmt.Errorf("already connected")
	}
	h.state = StateConnecting
	h.mu.Unlock()

	var opts []clienttransport.StreamableHTTPCOption
	if len(h.headers) > 0 {
		opts = append(opts, clienttransport.WithHTTPHeaders(h.headers))
	}

	logging.Debug("Transport:http", "connecting to %s", h.url)
	mcpClient, err := client.NewStreamableHttpClient(h.url, opts...)
	if err != nil {
		h.setFailed()
		return nil, fmt.Errorf("create http client: %w", err)
	}

	result, err := doInitialize(ctx, mcpClient, clientName, clientVersion)
	if err != nil {
		_ = mcpClient.Close()
		h.setFailed()
		return nil, err
	}

	h.setConnected(mcpClient)
	return result, nil
}
