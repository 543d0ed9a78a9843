// Package formatting renders MCP tool/resource/prompt lists as human-readable
// text for logging. mcprouter uses it to describe the aggregator's current
// exposed capability set whenever a downstream server joins or leaves.
package formatting

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Options configures the formatter behavior.
type Options struct {
	Quiet bool // Suppress decorative elements
}

// Formatter renders MCP resource lists for display.
type Formatter interface {
	FormatToolsList(tools []mcp.Tool) string
	FormatResourcesList(resources []mcp.Resource) string
	FormatPromptsList(prompts []mcp.Prompt) string
}
