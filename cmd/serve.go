package cmd

import (
	"context"
	"fmt"

	"goblin/internal/app"

	"github.com/spf13/cobra"
)

// serveDebug enables verbose logging across the gateway.
var serveDebug bool

// serveYolo disables the destructive-tool denylist (spec.md §4.5).
var serveYolo bool

// serveConfigPath overrides the default config file location
// (~/.goblin/config.json) when set.
var serveConfigPath string

// serveTransport selects the front-side MCP listener.
var serveTransport string

// serveHost/servePort override the config document's gateway.host/port.
var serveHost string
var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the goblin gateway",
	Long: `Starts the goblin gateway: loads the backend configuration document,
connects to every enabled backend MCP server, and exposes their aggregated
tools, prompts, and resources on the chosen front-side transport.

SIGHUP triggers a config reload in place; SIGINT/SIGTERM trigger a graceful
shutdown (stop accepting, cancel pending calls, close backends, exit).`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(serveDebug, serveYolo, serveConfigPath, serveTransport, serveHost, servePort)

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize gateway: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().BoolVar(&serveYolo, "yolo", false, "Disable denylist for destructive tool calls (use with caution)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to the config document (default ~/.goblin/config.json)")
	serveCmd.Flags().StringVar(&serveTransport, "transport", "http", "Front-side MCP transport: stdio or http")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Override gateway.host from the config document")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Override gateway.port from the config document")
}
