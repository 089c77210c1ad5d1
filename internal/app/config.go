package app

// Config holds the process-level settings needed to bootstrap an
// Application, distinct from the backend configuration document loaded by
// internal/config.
type Config struct {
	// ConfigPath overrides the default config file location
	// (config.DefaultPath()) when non-empty.
	ConfigPath string

	// Debug enables debug-level logging.
	Debug bool

	// Yolo disables the destructive-tool denylist (spec.md §4.5).
	Yolo bool

	// Transport selects the front-side MCP listener: "stdio" or "http".
	Transport string

	// Host/Port override the config document's gateway.host/gateway.port
	// when non-zero/non-empty.
	Host string
	Port int
}

// NewConfig builds an app.Config from CLI flag values.
func NewConfig(debug, yolo bool, configPath, transport, host string, port int) *Config {
	return &Config{
		ConfigPath: configPath,
		Debug:      debug,
		Yolo:       yolo,
		Transport:  transport,
		Host:       host,
		Port:       port,
	}
}
