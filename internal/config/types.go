// Package config implements component A of the gateway: parsing,
// validating, diffing, and hot-reloading the JSON configuration document
// described in spec.md §6.
package config

// TransportKind identifies a backend's wire transport.
type TransportKind string

const (
	TransportStdio          TransportKind = "stdio"
	TransportHTTP           TransportKind = "http"
	TransportSSE            TransportKind = "sse"
	TransportStreamableHTTP TransportKind = "streamablehttp"
)

// Mode selects a backend's connection lifecycle policy (component D).
type Mode string

const (
	ModeStateful  Mode = "stateful"
	ModeStateless Mode = "stateless"
	ModeSmart     Mode = "smart"
)

// ServerSpec is the configuration record identifying one backend, per
// spec.md §3. Transport-specific fields are all present on the struct;
// validation requires command for stdio and url for network transports,
// and rejects url on stdio and command on network transports. Other
// mismatched fields (args, env, headers) are not rejected.
type ServerSpec struct {
	Name        string            `json:"name"`
	Transport   TransportKind     `json:"transport"`
	Enabled     bool              `json:"enabled"`
	Mode        Mode              `json:"mode"`
	Description string            `json:"description,omitempty"`
	IdleTimeoutMs int             `json:"idleTimeoutMs,omitempty"`

	// stdio
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`

	// http / sse / streamablehttp
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// GatewayConfig is the front-side listener configuration.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// AuthMode selects the gateway's authentication posture. Per spec.md's
// Non-goals, only a static shared secret or an explicit dev-mode bypass
// are supported — no OAuth, no RBAC.
type AuthMode string

const (
	AuthModeNone   AuthMode = "none"
	AuthModeAPIKey AuthMode = "apiKey"
)

// AuthConfig configures the gateway's minimal authentication posture.
type AuthConfig struct {
	Mode   AuthMode `json:"mode"`
	APIKey string   `json:"apiKey,omitempty"`
}

// PoliciesConfig sets cross-cutting router/session defaults.
type PoliciesConfig struct {
	OutputSizeLimit int  `json:"outputSizeLimit"`
	DefaultTimeoutMs int `json:"defaultTimeout"`
	Yolo            bool `json:"yolo,omitempty"`
}

// StreamableHTTPConfig tunes the streamable-HTTP front-side transport.
type StreamableHTTPConfig struct {
	SessionTimeoutMs int  `json:"sessionTimeout"`
	MaxSessions      int  `json:"maxSessions"`
	SSEEnabled       bool `json:"sseEnabled"`
}

// Alias maps an external capability name to a specific backend's local
// name, per spec.md §4.5. Aliases must be unique across a snapshot.
type Alias struct {
	Name       string `json:"name"`
	ServerName string `json:"serverName"`
	LocalName  string `json:"localName"`
}

// Config is the parsed, not-yet-validated configuration document.
type Config struct {
	Servers        []ServerSpec          `json:"servers"`
	Gateway        GatewayConfig         `json:"gateway"`
	Auth           AuthConfig            `json:"auth"`
	Policies       PoliciesConfig        `json:"policies"`
	VirtualTools   []string              `json:"virtualTools,omitempty"`
	StreamableHTTP *StreamableHTTPConfig `json:"streamableHttp,omitempty"`
	Aliases        []Alias               `json:"aliases,omitempty"`
}
