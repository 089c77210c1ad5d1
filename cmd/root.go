package cmd

import (
	"os"

	"goblin/internal/gatewayerr"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error that carries no gatewayerr kind
	// (errors with a kind exit with that kind's own code, see exitCodeFor).
	ExitCodeError = 1
)

// exitCodeFor maps a command's returned error to the process exit code
// spec.md §6 defines (0 success; 1 generic; 2 invalid arguments; 3 config
// error; 4 connection error; 5 permission denied; 6 timeout; 7 not found; 8
// validation error). err is nil on success. A *gatewayerr.Error anywhere in
// err's chain (even wrapped by fmt.Errorf's %w, as runValidateConfig and
// runServe both do) yields its Kind's exit code; any other error, including
// cobra's own argument-parsing errors, falls back to the generic code.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	if kind, ok := gatewayerr.KindOf(err); ok {
		return kind.ExitCode()
	}
	return ExitCodeError
}

// rootCmd is the entry point when goblin is invoked without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "goblin",
	Short: "An MCP gateway that aggregates backend MCP servers behind one endpoint",
	Long: `goblin terminates MCP client sessions and multiplexes them across a
configurable fleet of backend MCP servers (stdio, HTTP, SSE, streamable-HTTP),
presenting the union of their tools, prompts, and resources as one logical
server.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command, injected at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current build version.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and translates a returned error into a
// process exit code.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "goblin version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if code := exitCodeFor(err); code != ExitCodeSuccess {
		os.Exit(code)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
