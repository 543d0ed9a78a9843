// Package logging provides a structured logging system for mcprouter that supports both
// CLI and TUI execution modes with unified log handling and flexible output formatting.
//
// This package implements a dual-mode logging architecture that can operate in either
// CLI mode (direct output) or TUI mode (channel-based message passing), enabling
// consistent logging behavior across different user interface paradigms.
//
// # Architecture
//
// The logging system is built around these core concepts:
//
// ## Log Levels
//   - **Debug**: Detailed information for debugging and development
//   - **Info**: General informational messages about application operation
//   - **Warn**: Warning messages that indicate potential issues
//   - **Error**: Error messages for failures and exceptional conditions
//
// ## Execution Modes
//   - **CLI Mode**: Direct logging to specified output writer (stdout/stderr)
//   - **TUI Mode**: Logging via buffered channel for consumption by terminal UI
//
// ## Structured Logging
// In CLI mode each line carries the time, level and message, a subsystem
// attribute, and an error attribute when an error is given. In TUI mode each
// LogEntry carries the time, level, subsystem, message and error; the package
// leaves its Attributes field empty.
//
// # Dual-Mode Operation
//
// ## CLI Mode
// When initialized for CLI mode:
//   - Logs are written directly to the specified output writer
//   - Uses structured text format via slog.TextHandler
//   - Respects configured log level filtering
//   - Suitable for command-line tools and automation
//
// ## TUI Mode
// When initialized for TUI mode:
//   - Logs are sent to a buffered channel for UI consumption
//   - TUI component reads from channel and handles display/filtering
//   - Fallback to stderr if channel is full or unavailable
//   - Enables rich terminal UI with interactive log viewing
//
// # Usage Examples
//
// ## CLI Mode Initialization
//
//	import "mcprouter/pkg/logging"
//
//	// Initialize for CLI with Info level logging to stdout
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//
//	// Log messages
//	logging.Info("Bootstrap", "Application starting up")
//	logging.Debug("Config", "Loaded configuration from %s", configPath)
//	logging.Warn("Service", "Service dependency not available")
//	logging.Error("Database", err, "Failed to connect to database")
//
// ## TUI Mode Initialization
//
//	import "mcprouter/pkg/logging"
//
//	// Initialize for TUI with Debug level (0 selects the default buffer size)
//	logChannel := logging.Initcommon("tui", logging.LevelDebug, nil, 0)
//
//	// Start goroutine to consume log entries
//	go func() {
//	    for entry := range logChannel {
//	        // Process log entry in TUI
//	        displayLogEntry(entry)
//	    }
//	}()
//
//	// Log messages (same API as CLI mode)
//	logging.Info("TUI", "Terminal interface initialized")
//	logging.Debug("Input", "User pressed key: %c", key)
//
// ## Advanced Initialization
//
//	// Custom channel buffer size for TUI mode
//	logChannel := logging.Initcommon("tui", logging.LevelInfo, os.Stdout, 4096)
//
//	// CLI mode with custom writer
//	logFile, _ := os.OpenFile("app.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
//	logging.InitForCLI(logging.LevelDebug, logFile)
//
// # Log Entry Structure
//
// Each log entry contains comprehensive information:
//
//	type LogEntry struct {
//	    Timestamp  time.Time   // When the log entry was created
//	    Level      LogLevel    // Severity level
//	    Subsystem  string      // Component that generated the log
//	    Message    string      // Log message content
//	    Err        error       // Optional associated error
//	    Attributes []slog.Attr // Additional structured data
//	}
//
// # Subsystem Organization
//
// Logs are organized by subsystem to enable filtering and categorization:
//
//   - **Bootstrap**, **App**, **CLI**: application startup and run mode
//   - **ConfigLoader**: configuration file loading
//   - **Store**: the SQLite state store
//   - **Supervisor**: downstream server lifecycle
//   - **Aggregator**, **AggregatorDispatcher**: capability aggregation and tool dispatch
//   - **StdioClient**, **SSEClient**, **StreamableHTTPClient**: downstream MCP clients
//   - **Pipeline**, **Approval**: the call pipeline and the approval queue
//   - **Frontend**: the HTTP front-end
//
// # Integration with slog
//
// The logging system integrates with Go's standard slog package:
//   - Uses slog.TextHandler for output formatting
//   - Converts custom LogLevel to slog.Level for compatibility
//   - Initcommon installs its logger as the slog default, and also sets the
//     controller-runtime global logger from the same handler through logr
//
// # Error Handling and Reliability
//
// ## Channel Overflow (TUI Mode)
//   - Non-blocking channel sends; an entry that does not fit is dropped and
//     a [LOGGING_CRITICAL] line is written to stderr instead
//   - Buffer size set through Initcommon's channelBufferSize
//
// ## Before Initialization
//   - Log calls made before InitForCLI or Initcommon are dropped silently
//
// ## Mode Switching
//   - Each Initcommon call replaces the logger and, in TUI mode, the channel
//   - The package has no function that closes the TUI channel
//
// # Performance Characteristics
//
// ## CLI Mode
//   - Direct write to output with minimal overhead
//   - Level filtering at handler level for efficiency
//   - No memory allocation for filtered-out messages
//
// ## TUI Mode
//   - Buffered channel prevents UI blocking
//   - Configurable buffer size (default 2048 entries)
//   - Non-blocking sends with overflow handling
//   - Memory-efficient message passing
//
// # Thread Safety
//
// Once initialized, the logging functions may be called from multiple
// goroutines. Initcommon writes the package's logger and mode without
// locking, so it is not safe to call while other goroutines are logging.
//
// The logging package provides a robust foundation for mcprouter's diagnostic
// and monitoring capabilities across both interactive and non-interactive
// execution modes.
package logging
