package gatewayserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"goblin/pkg/logging"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/coreos/go-systemd/v22/activation"
)

// ServeStdio runs the gateway server over stdio until ctx is done. Used for
// single-client, single-process deployments; the admin HTTP plane is
// unavailable in this mode (spec.md §4.7 / SPEC_FULL.md §4.7).
func (s *Server) ServeStdio(ctx context.Context) error {
	logging.Info("GatewayServer", "admin HTTP plane unavailable under stdio transport")
	stdioServer := mcpserver.NewStdioServer(s.mcpServer)
	errCh := make(chan error, 1)
	go func() { errCh <- stdioServer.Listen(ctx, os.Stdin, os.Stdout) }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// ServeHTTP runs the gateway's streamable-HTTP front-side transport plus the
// admin plane, both mounted on one http.ServeMux per spec.md §6, mirroring
// the teacher's createStandardMux. When systemd socket activation passes
// listeners in, the first one is used (names are not consulted).
func (s *Server) ServeHTTP(ctx context.Context, host string, port int, sseEnabled bool) error {
	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer)

	mux := http.NewServeMux()
	s.mountAdmin(mux)

	if sseEnabled {
		baseURL := fmt.Sprintf("http://%s:%d", host, port)
		sse := mcpserver.NewSSEServer(s.mcpServer, mcpserver.WithBaseURL(baseURL))
		mux.Handle("/sse", s.capacityGate(sse))
		mux.Handle("/message", sse)
	}
	mux.Handle("/mcp", s.capacityGate(streamable))

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := activatedListener(addr)
	if err != nil {
		return fmt.Errorf("acquire listener for %s: %w", addr, err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Serve(listener) }()
	logging.Info("GatewayServer", "listening on %s", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// mcpSessionIDHeader is the header mcp-go's streamable-HTTP server uses to
// carry an established session id on every request after initialize
// (mark3labs/mcp-go server/streamable_http.go's headerKeySessionID).
const mcpSessionIDHeader = "Mcp-Session-Id"

// capacityGate rejects requests that would start a new session once the
// gateway is already at maxSessions, per spec.md §6 ("Over capacity ⇒
// HTTP 429"). mcpserver.Hooks.AddOnRegisterSession (wired in New) has no
// way to refuse a session — by the time it runs, mcp-go has already
// accepted the connection — so the capacity check has to happen here,
// before the request ever reaches the streamable-HTTP handler. Requests
// that already carry an established session id always pass through:
// only session-creating requests (no session id yet) are capacity-gated.
func (s *Server) capacityGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(mcpSessionIDHeader) == "" && s.maxSessions > 0 && s.sessions.Count() >= s.maxSessions {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "session capacity exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// activatedListener prefers a systemd-provided socket (when present) over
// binding addr directly, grounded in the teacher's activation.ListenersWithNames
// use in AggregatorServer.Start.
func activatedListener(addr string) (net.Listener, error) {
	listeners, err := activation.Listeners()
	if err != nil {
		logging.Debug("GatewayServer", "systemd activation check failed: %v", err)
	} else if len(listeners) > 0 {
		logging.Info("GatewayServer", "using systemd-activated listener (%d provided)", len(listeners))
		return listeners[0], nil
	}
	return net.Listen("tcp", addr)
}
