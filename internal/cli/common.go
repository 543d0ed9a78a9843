package cli

import (
	"fmt"
	"mcprouter/internal/config"
	"net/http"
	"time"
)

// OutputFormat represents the supported output formats for CLI commands.
type OutputFormat string

const (
	// OutputFormatTable formats output as a kubectl-style plain table.
	OutputFormatTable OutputFormat = "table"
	// OutputFormatJSON formats output as raw JSON data.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML formats output as YAML data converted from JSON.
	OutputFormatYAML OutputFormat = "yaml"
)

// ValidOutputFormats contains all valid output format values.
var ValidOutputFormats = []OutputFormat{OutputFormatTable, OutputFormatJSON, OutputFormatYAML}

// ValidateOutputFormat validates that the given format string is a supported output format.
func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %q (valid: table, json, yaml)", format)
	}
}

// DetectAggregatorEndpoint detects and returns the aggregator endpoint URL from configuration.
// It loads the mcprouter configuration and constructs a localhost MCP endpoint URL using the
// configured port. If configuration cannot be loaded, it returns a default localhost endpoint.
//
// Returns:
//   - string: The complete HTTP endpoint URL (e.g., "http://localhost:8090/mcp")
//   - error: Always nil (kept for future compatibility)
func DetectAggregatorEndpoint() (string, error) {
	return DetectAggregatorEndpointWithConfig(nil)
}

// DetectAggregatorEndpointWithConfig detects and returns the aggregator endpoint URL from configuration.
// If cfg is provided, it uses that configuration; otherwise it loads the configuration from the system.
// This function is designed to be testable by accepting a configuration arg.
//
// Args:
//   - cfg: Optional configuration to use. If nil, loads from system
//
// Returns:
//   - string: The complete HTTP endpoint URL (e.g., "http://localhost:8090/mcp")
//   - error: Always nil (kept for future compatibility)
func DetectAggregatorEndpointWithConfig(cfg *config.RouterConfig) (string, error) {
	var actualCfg config.RouterConfig
	var err error

	if cfg != nil {
		actualCfg = *cfg
	} else {
		// Load configuration to get aggregator settings
		actualCfg, err = config.LoadConfig()
		if err != nil {
			// Use default if config cannot be loaded
			endpoint := "http://localhost:8090/mcp"
			return endpoint, nil
		}
	}

	// Build endpoint from config
	port := actualCfg.HTTP.Port
	if port == 0 {
		port = 8090
	}
	endpoint := fmt.Sprintf("http://localhost:%d/mcp", port)

	return endpoint, nil
}

// CheckServerRunning verifies that the mcprouter aggregator server is running and responsive.
// It performs a health check by sending a GET request to the MCP endpoint and validates
// the response status code. This is typically used before attempting to execute commands
// that require server connectivity.
//
// Returns:
//   - error: nil if server is running and responsive, otherwise an error with guidance
func CheckServerRunning() error {
	endpoint, err := DetectAggregatorEndpoint()
	if err != nil {
		return fmt.Errorf("failed to detect endpoint: %w", err)
	}
	return checkEndpointRunning(endpoint)
}

// checkEndpointRunning probes a single MCP endpoint directly, factored out of
// CheckServerRunning so tests can point it at an httptest server.
func checkEndpointRunning(endpoint string) error {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	// Test the MCP endpoint directly with a GET request
	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("mcprouter server is not running. Start it with: mcprouter serve")
	}
	defer resp.Body.Close()

	// A running router answers 200/202, or 401 because /mcp sits behind bearer
	// authentication and this probe sends no token
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnauthorized {
		return fmt.Errorf("mcprouter server is not responding correctly (status: %d). Try restarting with: mcprouter serve", resp.StatusCode)
	}

	return nil
}

// FormatError formats an error message for consistent CLI output display.
// It prefixes the error message with "Error: " for clear identification.
//
// Args:
//   - err: The error to format
//
// Returns:
//   - string: Formatted error message with "Error: " prefix
func FormatError(err error) string {
	return fmt.Sprintf("Error: %v", err)
}

// FormatSuccess formats a success message for CLI output with a checkmark icon.
// Used to provide positive feedback to users when operations complete successfully.
//
// Args:
//   - msg: The success message to format
//
// Returns:
//   - string: Formatted success message with "✓ " prefix
func FormatSuccess(msg string) string {
	return fmt.Sprintf("✓ %s", msg)
}

// FormatWarning formats a warning message for CLI output with a warning icon.
// Used to alert users about potential issues or important information.
//
// Args:
//   - msg: The warning message to format
//
// Returns:
//   - string: Formatted warning message with "⚠ " prefix
func FormatWarning(msg string) string {
	return fmt.Sprintf("⚠ %s", msg)
}
