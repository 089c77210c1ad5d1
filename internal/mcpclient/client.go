// Package mcpclient wraps a transport.Transport with MCP framing, deadline
// enforcement, and notification demuxing, implementing component C of the
// gateway design (spec.md §4.3).
package mcpclient

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"goblin/internal/gatewayerr"
	"goblin/internal/transport"
	"goblin/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
)

// NotificationKind identifies one of the four typed notification streams a
// backend can emit; these are the registry's only source of dynamic change.
type NotificationKind string

const (
	ToolsListChanged     NotificationKind = "tools/list_changed"
	PromptsListChanged   NotificationKind = "prompts/list_changed"
	ResourcesListChanged NotificationKind = "resources/list_changed"
	ResourcesUpdated     NotificationKind = "resources/updated"
)

// Notification is a demuxed backend-originated event.
type Notification struct {
	Kind NotificationKind
	URI  string // populated for ResourcesUpdated
}

// Client wraps one backend transport with per-call deadlines and a
// notification fan-out channel the pool selects on.
type Client struct {
	ServerName    string
	transport     transport.Transport
	defaultTimeout time.Duration
	notifications chan Notification
	closed        atomic.Bool
	closeOnce     sync.Once

	serverInfo   mcp.Implementation
	capabilities mcp.ServerCapabilities
}

// New wraps tr for serverName with the given default per-call deadline.
func New(serverName string, tr transport.Transport, defaultTimeout time.Duration) *Client {
	return &Client{
		ServerName:     serverName,
		transport:      tr,
		defaultTimeout: defaultTimeout,
		notifications:  make(chan Notification, 64),
	}
}

// Notifications returns the channel of demuxed notifications for this
// backend. The pool selects on it; the channel is never closed (see
// Shutdown).
func (c *Client) Notifications() <-chan Notification { return c.notifications }

// Initialize connects the transport and performs the MCP handshake,
// capturing serverInfo and negotiated capabilities. Per spec.md §4.3, if a
// backend lacks a capability, the registry must not advertise it on the
// backend's behalf — Capabilities() exposes exactly what was negotiated.
func (c *Client) Initialize(ctx context.Context, clientName, clientVersion string) error {
	result, err := c.transport.Connect(ctx, clientName, clientVersion)
	if err != nil {
		return gatewayerr.Wrap(gatewayerr.KindTransportError, err, "initialize backend %s", c.ServerName)
	}
	c.serverInfo = result.ServerInfo
	c.capabilities = result.Capabilities

	c.registerNotificationHandlers()
	return nil
}

// ServerInfo returns the backend's negotiated implementation info.
func (c *Client) ServerInfo() mcp.Implementation { return c.serverInfo }

// Capabilities returns the backend's negotiated capability set.
func (c *Client) Capabilities() mcp.ServerCapabilities { return c.capabilities }

func (c *Client) registerNotificationHandlers() {
	underlying := c.transport.Underlying()
	if underlying == nil {
		return
	}
	underlying.OnNotification(func(n mcp.JSONRPCNotification) {
		kind, uri, ok := classifyNotification(n)
		if !ok {
			logging.Debug("BackendClient", "%s: ignoring unrecognized notification %s", c.ServerName, n.Method)
			return
		}
		if c.closed.Load() {
			return
		}
		select {
		case c.notifications <- Notification{Kind: kind, URI: uri}:
		default:
			logging.Warn("BackendClient", "%s: notification channel full, dropping %s", c.ServerName, kind)
		}
	})
}

func classifyNotification(n mcp.JSONRPCNotification) (NotificationKind, string, bool) {
	switch n.Method {
	case "notifications/tools/list_changed":
		return ToolsListChanged, "", true
	case "notifications/prompts/list_changed":
		return PromptsListChanged, "", true
	case "notifications/resources/list_changed":
		return ResourcesListChanged, "", true
	case "notifications/resources/updated":
		uri, _ := n.Params.AdditionalFields["uri"].(string)
		return ResourcesUpdated, uri, true
	default:
		return "", "", false
	}
}

// withDeadline derives a per-call context, using the client's default
// timeout when ctx carries no deadline of its own.
func (c *Client) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.defaultTimeout)
}

// call wraps any blocking op with deadline handling and Timeout translation.
func call[T any](c *Client, ctx context.Context, op func(context.Context) (T, error)) (T, error) {
	cctx, cancel := c.withDeadline(ctx)
	defer cancel()

	result, err := op(cctx)
	if err != nil {
		var zero T
		if cctx.Err() == context.DeadlineExceeded {
			return zero, gatewayerr.Timeout("call to %s exceeded deadline", c.ServerName)
		}
		if cctx.Err() == context.Canceled {
			return zero, gatewayerr.Cancelled("call to %s cancelled", c.ServerName)
		}
		return zero, gatewayerr.Wrap(gatewayerr.KindProtocolError, err, "call to %s failed", c.ServerName)
	}
	return result, nil
}

func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return call(c, ctx, func(ctx context.Context) ([]mcp.Tool, error) {
		result, err := c.transport.Underlying().ListTools(ctx, mcp.ListToolsRequest{})
		if err != nil {
			return nil, err
		}
		return result.Tools, nil
	})
}

func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	return call(c, ctx, func(ctx context.Context) (*mcp.CallToolResult, error) {
		return c.transport.Underlying().CallTool(ctx, mcp.CallToolRequest{
			Params: mcp.CallToolParams{Name: name, Arguments: args},
		})
	})
}

func (c *Client) ListPrompts(ctx context.Context) ([]mcp.Prompt, error) {
	return call(c, ctx, func(ctx context.Context) ([]mcp.Prompt, error) {
		result, err := c.transport.Underlying().ListPrompts(ctx, mcp.ListPromptsRequest{})
		if err != nil {
			return nil, err
		}
		return result.Prompts, nil
	})
}

func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	return call(c, ctx, func(ctx context.Context) (*mcp.GetPromptResult, error) {
		return c.transport.Underlying().GetPrompt(ctx, mcp.GetPromptRequest{
			Params: struct {
				Name      string            `json:"name"`
				Arguments map[string]string `json:"arguments,omitempty"`
			}{Name: name, Arguments: args},
		})
	})
}

func (c *Client) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	return call(c, ctx, func(ctx context.Context) ([]mcp.Resource, error) {
		result, err := c.transport.Underlying().ListResources(ctx, mcp.ListResourcesRequest{})
		if err != nil {
			return nil, err
		}
		return result.Resources, nil
	})
}

func (c *Client) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	return call(c, ctx, func(ctx context.Context) (*mcp.ReadResourceResult, error) {
		return c.transport.Underlying().ReadResource(ctx, mcp.ReadResourceRequest{
			Params: struct {
				URI       string         `json:"uri"`
				Arguments map[string]any `json:"arguments,omitempty"`
			}{URI: uri},
		})
	})
}

func (c *Client) ListResourceTemplates(ctx context.Context) ([]mcp.ResourceTemplate, error) {
	return call(c, ctx, func(ctx context.Context) ([]mcp.ResourceTemplate, error) {
		result, err := c.transport.Underlying().ListResourceTemplates(ctx, mcp.ListResourceTemplatesRequest{})
		if err != nil {
			return nil, err
		}
		return result.ResourceTemplates, nil
	})
}

// Subscribe forwards a resources/subscribe request to the owning backend, if
// it advertises the capability. Callers should check Capabilities().Resources
// != nil && .Subscribe before calling, per spec.md's resolved Open Question.
func (c *Client) Subscribe(ctx context.Context, uri string) error {
	_, err := call(c, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.transport.Underlying().Subscribe(ctx, mcp.SubscribeRequest{
			Params: struct {
				URI string `json:"uri"`
			}{URI: uri},
		})
	})
	return err
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := call(c, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.transport.Underlying().Ping(ctx)
	})
	return err
}

// Shutdown closes the transport once. ctx is not consulted, and Shutdown
// applies no grace period or kill escalation of its own. The
// notification channel is marked closed but never actually closed, since
// the transport's notification callback can still fire concurrently
// during teardown and a send on a closed channel panics.
func (c *Client) Shutdown(ctx context.Context) error {
	c.closed.Store(true)
	var closeErr error
	c.closeOnce.Do(func() {
		closeErr = c.transport.Close()
	})
	if closeErr != nil {
		return fmt.Errorf("close transport for %s: %w", c.ServerName, closeErr)
	}
	return nil
}

// Transport exposes the underlying transport, e.g. for Stderr() access.
func (c *Client) Transport() transport.Transport { return c.transport }
