package router

import (
	"context"
	"testing"
	"time"

	"goblin/internal/gatewayerr"
	"goblin/internal/pool"
	"goblin/internal/registry"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *Router {
	reg := registry.New(5*time.Second, false)
	p := pool.New(reg, time.Second)
	return New(reg, p, 1024, time.Second)
}

func TestResolveCachesAndInvalidates(t *testing.T) {
	reg := registry.New(5*time.Second, false)
	p := pool.New(reg, time.Second)
	rt := New(reg, p, 1024, time.Second)

	reg.UpdateBackend("s1", []mcp.Tool{{Name: "a"}}, nil, nil, nil)

	r, err := rt.resolve("s1_a")
	require.NoError(t, err)
	assert.Equal(t, "s1", r.serverName)

	rt.cacheMu.RLock()
	_, cached := rt.cache["s1_a"]
	rt.cacheMu.RUnlock()
	assert.True(t, cached)

	rt.invalidateAll()
	rt.cacheMu.RLock()
	_, cached = rt.cache["s1_a"]
	rt.cacheMu.RUnlock()
	assert.False(t, cached)
}

func TestResolveUnknownCapability(t *testing.T) {
	rt := newTestRouter()
	_, err := rt.resolve("missing")
	require.Error(t, err)
	assert.True(t, gatewayerr.Is(err, gatewayerr.KindUnknownCapability))
}

func TestEnforceOutputLimit(t *testing.T) {
	rt := newTestRouter()
	rt.outputSizeLimit = 10

	small := &mcp.CallToolResult{Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "tiny"}}}
	assert.NoError(t, rt.enforceOutputLimit(small))

	big := &mcp.CallToolResult{Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "this text is far too long"}}}
	err := rt.enforceOutputLimit(big)
	require.Error(t, err)
	assert.True(t, gatewayerr.Is(err, gatewayerr.KindOutputTooLarge))
}

func TestOutcomeForClassifiesGatewayErrors(t *testing.T) {
	assert.Equal(t, "timeout", outcomeFor(gatewayerr.Timeout("slow")))
	assert.Equal(t, "backend_unavailable", outcomeFor(gatewayerr.BackendUnavailable("down")))
	assert.Equal(t, "unknown_capability", outcomeFor(gatewayerr.UnknownCapability("nope")))
	assert.Equal(t, "error", outcomeFor(assert.AnError))
}

func TestCallToolOnMismatchedKindReturnsUnknownCapability(t *testing.T) {
	reg := registry.New(5*time.Second, false)
	p := pool.New(reg, time.Second)
	rt := New(reg, p, 1024, time.Second)

	reg.UpdateBackend("s1", nil, []mcp.Prompt{{Name: "greeting"}}, nil, nil)

	_, err := rt.CallTool(context.Background(), "req1", "sess1", "greeting", nil)
	require.Error(t, err)
	assert.True(t, gatewayerr.Is(err, gatewayerr.KindUnknownCapability))
}
