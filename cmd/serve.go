package cmd

import (
	"context"
	"fmt"
	"mcprouter/internal/app"

	"github.com/spf13/cobra"
)

// debug enables verbose logging across the application.
// This helps troubleshoot connection issues and understand service behavior.
var serveDebug bool

// yolo bypasses policy evaluation and approval for every call.
// When enabled, all MCP tools can be executed without restriction.
var serveYolo bool

// configPath specifies a custom configuration directory path.
// When set, disables layered configuration and loads config.yaml from this directory alone.
var serveConfigPath string

// serveCmd defines the serve command structure.
// This is the main command of mcprouter: it starts the client-facing MCP
// surface and the downstream-server supervisor.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mcprouter front-end and downstream-server supervisor.",
	Long: `Starts mcprouter: the client-facing MCP/JSON-RPC surface (streamable-HTTP and
SSE) plus the supervisor that starts and monitors every downstream MCP server
registered in the store.

Manage the running router from another terminal with 'mcprouter server',
'mcprouter token', 'mcprouter policy', 'mcprouter approval', and
'mcprouter audit' — they operate on the same SQLite-backed store serve uses.

Configuration:
  mcprouter loads configuration from .mcprouter/config.yaml in the current
  directory or the user config directory. By default it reads the first
  config.yaml it finds (a project config, when present, is used instead of
  the user config) over the built-in defaults; the files are not merged.

  Use --config-path to load config.yaml from a single directory instead.`,
	Args: cobra.NoArgs, // No arguments required
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	// Create application configuration without cluster arguments
	cfg := app.NewConfig(serveDebug, serveYolo, serveConfigPath)

	// Create and initialize the application
	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	// Run the application
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

// init registers the serve command and its flags with the root command.
// This is called automatically when the package is imported.
func init() {
	rootCmd.AddCommand(serveCmd)

	// Register command flags
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable general debug logging")
	serveCmd.Flags().BoolVar(&serveYolo, "yolo", false, "Bypass policy evaluation and approval for every call (use with caution)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Custom configuration directory path (disables layered config)")
}
