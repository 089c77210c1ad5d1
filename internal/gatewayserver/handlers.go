package gatewayserver

import (
	"context"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// sessionIDFromContext extracts the mcp-go per-connection session id, or
// "stdio" for the single-session stdio transport (spec.md §4.7 compatibility
// note: stdio has no library-assigned session id).
func sessionIDFromContext(ctx context.Context) string {
	if sess := mcpserver.ClientSessionFromContext(ctx); sess != nil {
		if id := sess.SessionID(); id != "" {
			return id
		}
	}
	return "stdio"
}

// toolHandler closes over qualifiedName and forwards tools/call through the
// router, mirroring the teacher's toolHandlerFactory.
func (s *Server) toolHandler(qualifiedName string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]interface{}{}
		if req.Params.Arguments != nil {
			if m, ok := req.Params.Arguments.(map[string]interface{}); ok {
				args = m
			}
		}

		sessionID := sessionIDFromContext(ctx)
		requestID := uuid.NewString()

		result, err := s.route.CallTool(ctx, requestID, sessionID, qualifiedName, args)
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

func (s *Server) promptHandler(qualifiedName string) func(context.Context, mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return s.route.GetPrompt(ctx, qualifiedName, req.Params.Arguments)
	}
}

func (s *Server) resourceHandler(qualifiedName string) func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		result, err := s.route.ReadResource(ctx, qualifiedName)
		if err != nil {
			return nil, err
		}
		return result.Contents, nil
	}
}
