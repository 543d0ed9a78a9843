// Package cli provides shared command-line utilities used by cmd/: output
// format selection, plain kubectl-style table rendering, server-connectivity
// probing, and actionable error types for authentication failures.
//
// # Output formats
//
// OutputFormat selects how a command renders its result: table (the
// default, via PlainTableWriter), json, or yaml. ValidateOutputFormat checks
// a user-supplied --output value against the supported set.
//
// # Table rendering
//
// PlainTableWriter renders rows in kubectl's plain, box-drawing-free style:
// uppercase headers, column widths sized to content, easy to pipe through
// grep/awk/cut. Commands build their own rows from store types rather than
// routing through a generic formatter, since mcprouter's resources (servers,
// tokens, policies, approvals, audit events) are few and fixed-shape enough
// not to need column auto-detection.
//
// # Connectivity and errors
//
// DetectAggregatorEndpoint/CheckServerRunning probe the configured /mcp
// endpoint so a command that talks to a running `mcprouter serve` (the
// version command's server lookup) can report it as not running rather than
// fail with a raw dial error. AuthRequiredError/AuthExpiredError/AuthFailedError give the same
// treatment to bearer-token problems, pointing at `mcprouter token create`.
package cli
