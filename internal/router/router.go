// Package router implements component F: translating a qualified capability
// name into a concrete backend call (spec.md §4.6). It sits between the
// gateway server and the pool/registry, owning the route cache and output
// size enforcement.
package router

import (
	"context"
	"sync"
	"time"

	"goblin/internal/gatewayerr"
	"goblin/internal/mcpclient"
	"goblin/internal/metrics"
	"goblin/internal/pool"
	"goblin/internal/registry"
	"goblin/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
)

// route is a cached resolution of a qualified name.
type route struct {
	serverName string
	localName  string
	kind       registry.Kind
}

// Router resolves and dispatches calls against the registry and pool.
// Route cache entries are invalidated wholesale on any registry change, per
// spec.md §4.6; an in-flight call always completes against the backend it
// originally resolved to, since Acquire is called once per dispatch and the
// cache is never consulted again mid-call.
type Router struct {
	reg  *registry.Registry
	pool *pool.Pool

	outputSizeLimit int
	defaultTimeout  time.Duration

	cacheMu sync.RWMutex
	cache   map[string]route
}

// New builds a Router. Call Run in its own goroutine to keep the route
// cache invalidated as the registry changes.
func New(reg *registry.Registry, p *pool.Pool, outputSizeLimit int, defaultTimeout time.Duration) *Router {
	return &Router{
		reg:             reg,
		pool:            p,
		outputSizeLimit: outputSizeLimit,
		defaultTimeout:  defaultTimeout,
		cache:           make(map[string]route),
	}
}

// Run invalidates the route cache on every registry change until ctx is
// done. Call as `go router.Run(ctx)` once during startup.
func (rt *Router) Run(ctx context.Context) {
	ch := rt.reg.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			rt.invalidateAll()
		}
	}
}

func (rt *Router) invalidateAll() {
	rt.cacheMu.Lock()
	rt.cache = make(map[string]route)
	rt.cacheMu.Unlock()
}

func (rt *Router) resolve(qualifiedName string) (route, error) {
	rt.cacheMu.RLock()
	r, ok := rt.cache[qualifiedName]
	rt.cacheMu.RUnlock()
	if ok {
		metrics.RouteCacheResult.WithLabelValues("hit").Inc()
		return r, nil
	}
	metrics.RouteCacheResult.WithLabelValues("miss").Inc()

	serverName, localName, kind, err := rt.reg.Resolve(qualifiedName)
	if err != nil {
		return route{}, err
	}
	r = route{serverName: serverName, localName: localName, kind: kind}

	rt.cacheMu.Lock()
	rt.cache[qualifiedName] = r
	rt.cacheMu.Unlock()
	return r, nil
}

// CallRecord is the structured record emitted for every CallTool dispatch.
// GetPrompt, ReadResource and Subscribe emit no record.
type CallRecord struct {
	RequestID string
	SessionID string
	Server    string
	Tool      string
	Latency   time.Duration
	Outcome   string
}

func (rt *Router) emitRecord(rec CallRecord) {
	logging.Info("Router", "request=%s session=%s server=%s tool=%s latency=%s outcome=%s",
		rec.RequestID, rec.SessionID, rec.Server, rec.Tool, rec.Latency, rec.Outcome)
	metrics.RouterCalls.WithLabelValues(rec.Server, rec.Tool, rec.Outcome).Inc()
	metrics.RouterCallLatency.WithLabelValues(rec.Server, rec.Tool).Observe(rec.Latency.Seconds())
}

// CallTool resolves qualifiedName, acquires its backend, and dispatches the
// call with the router's default deadline unless ctx already carries one.
// A result whose text content exceeds the output size limit is rejected
// with OutputTooLarge; no truncated preview of it is returned.
func (rt *Router) CallTool(ctx context.Context, requestID, sessionID, qualifiedName string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	start := time.Now()
	r, err := rt.resolve(qualifiedName)
	if err != nil {
		rt.emitRecord(CallRecord{RequestID: requestID, SessionID: sessionID, Tool: qualifiedName, Latency: time.Since(start), Outcome: outcomeFor(err)})
		return nil, err
	}
	if r.kind != registry.KindTool {
		err := gatewayerr.UnknownCapability("%q is not a tool", qualifiedName)
		rt.emitRecord(CallRecord{RequestID: requestID, SessionID: sessionID, Server: r.serverName, Tool: qualifiedName, Latency: time.Since(start), Outcome: outcomeFor(err)})
		return nil, err
	}

	client, err := rt.pool.Acquire(ctx, r.serverName)
	if err != nil {
		rt.emitRecord(CallRecord{RequestID: requestID, SessionID: sessionID, Server: r.serverName, Tool: qualifiedName, Latency: time.Since(start), Outcome: outcomeFor(err)})
		return nil, err
	}

	callCtx, cancel := rt.deadline(ctx)
	defer cancel()

	result, err := client.CallTool(callCtx, r.localName, args)
	if err != nil {
		rt.emitRecord(CallRecord{RequestID: requestID, SessionID: sessionID, Server: r.serverName, Tool: qualifiedName, Latency: time.Since(start), Outcome: outcomeFor(err)})
		return nil, err
	}

	if err := rt.enforceOutputLimit(result); err != nil {
		rt.emitRecord(CallRecord{RequestID: requestID, SessionID: sessionID, Server: r.serverName, Tool: qualifiedName, Latency: time.Since(start), Outcome: "output_too_large"})
		return nil, err
	}

	rt.emitRecord(CallRecord{RequestID: requestID, SessionID: sessionID, Server: r.serverName, Tool: qualifiedName, Latency: time.Since(start), Outcome: "ok"})
	return result, nil
}

// GetPrompt resolves and dispatches a prompts/get call.
func (rt *Router) GetPrompt(ctx context.Context, qualifiedName string, args map[string]string) (*mcp.GetPromptResult, error) {
	r, err := rt.resolve(qualifiedName)
	if err != nil {
		return nil, err
	}
	if r.kind != registry.KindPrompt {
		return nil, gatewayerr.UnknownCapability("%q is not a prompt", qualifiedName)
	}
	client, err := rt.pool.Acquire(ctx, r.serverName)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := rt.deadline(ctx)
	defer cancel()
	return client.GetPrompt(callCtx, r.localName, args)
}

// ReadResource resolves and dispatches a resources/read call.
func (rt *Router) ReadResource(ctx context.Context, qualifiedName string) (*mcp.ReadResourceResult, error) {
	r, err := rt.resolve(qualifiedName)
	if err != nil {
		return nil, err
	}
	if r.kind != registry.KindResource {
		return nil, gatewayerr.UnknownCapability("%q is not a resource", qualifiedName)
	}
	client, err := rt.pool.Acquire(ctx, r.serverName)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := rt.deadline(ctx)
	defer cancel()

	result, err := client.ReadResource(callCtx, r.localName)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// warnedNoSubscribe holds the servers Subscribe has already warned about.
var warnedNoSubscribe sync.Map

// Subscribe resolves a resource URI and forwards resources/subscribe to its
// owning backend, per spec.md's resolved Open Question (SPEC_FULL.md §4.5).
// If the backend does not advertise subscription support, Subscribe
// acknowledges without forwarding and logs once per server at Warn.
func (rt *Router) Subscribe(ctx context.Context, qualifiedName string) error {
	r, err := rt.resolve(qualifiedName)
	if err != nil {
		return err
	}
	client, err := rt.pool.Acquire(ctx, r.serverName)
	if err != nil {
		return err
	}
	caps := client.Capabilities()
	if caps.Resources == nil || !caps.Resources.Subscribe {
		if _, warned := warnedNoSubscribe.LoadOrStore(r.serverName, true); !warned {
			logging.Warn("Router", "%s: backend does not support resources/subscribe, acknowledging without forwarding", r.serverName)
		}
		return nil
	}
	callCtx, cancel := rt.deadline(ctx)
	defer cancel()
	return client.Subscribe(callCtx, r.localName)
}

func (rt *Router) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, rt.defaultTimeout)
}

// enforceOutputLimit sums the byte lengths of the text content blocks in
// result and returns OutputTooLarge if the sum exceeds the configured limit.
// Non-text content is not counted.
func (rt *Router) enforceOutputLimit(result *mcp.CallToolResult) error {
	if rt.outputSizeLimit <= 0 {
		return nil
	}
	var total int
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			total += len(tc.Text)
		}
	}
	if total > rt.outputSizeLimit {
		return gatewayerr.OutputTooLarge(rt.outputSizeLimit, total)
	}
	return nil
}

func outcomeFor(err error) string {
	if kind, ok := gatewayerr.KindOf(err); ok {
		switch kind {
		case gatewayerr.KindTimeout:
			return "timeout"
		case gatewayerr.KindBackendUnavailable:
			return "backend_unavailable"
		case gatewayerr.KindUnknownCapability:
			return "unknown_capability"
		case gatewayerr.KindOutputTooLarge:
			return "output_too_large"
		}
	}
	return "error"
}
