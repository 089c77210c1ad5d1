package transport

import "fmt"

// Config is the unified set of construction parameters for any transport
// kind, mirroring the teacher's MCPClientConfig.
type Config struct {
	Command string
	Args    []string
	Env     map[string]string
	URL     string
	Headers map[string]string
}

// New builds the Transport implementation matching kind.
func New(kind Kind, cfg Config) (Transport, error) {
	switch kind {
	case KindStdio:
		if cfg.Command == "" {
			return nil, fmt.Errorf("command is required for stdio transport")
		}
		return NewStdio(cfg.Command, cfg.Args, cfg.Env), nil
	case KindHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("url is required for http transport")
		}
		return NewHTTP(cfg.URL, cfg.Headers), nil
	case KindSSE:
		if cfg.URL == "" {
			return nil, fmt.Errorf("url is required for sse transport")
		}
		return NewSSE(cfg.URL, cfg.Headers), nil
	case KindStreamableHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("url is required for streamable-http transport")
		}
		return NewStreamableHTTP(cfg.URL, cfg.Headers), nil
	default:
		return nil, fmt.Errorf("unsupported transport kind: %s", kind)
	}
}
