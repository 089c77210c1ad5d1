package gatewayserver

import (
	"context"
	"testing"
	"time"

	"goblin/internal/gatewayerr"
	"goblin/internal/pool"
	"goblin/internal/registry"
	"goblin/internal/router"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestToolHandlerPropagatesUnknownToolAsJSONRPCError covers spec.md §7: router
// errors must surface as a real JSON-RPC error (a non-nil Go error mcp-go
// translates into a structured error reply), not a success envelope with
// isError content, so boundary tests like scenario 4's "expect a JSON-RPC
// error with the Timeout kind" can actually observe the failure.
func TestToolHandlerPropagatesUnknownToolAsJSONRPCError(t *testing.T) {
	reg := registry.New(5*time.Second, false)
	p := pool.New(reg, time.Second)
	rt := router.New(reg, p, 65536, time.Second)
	s := New(reg, rt, p, nil)

	handler := s.toolHandler("unknown_tool")
	result, err := handler(context.Background(), mcp.CallToolRequest{})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, gatewayerr.Is(err, gatewayerr.KindUnknownCapability))
}
