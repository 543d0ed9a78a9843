package formatting

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// ConsoleFormatter renders tool/resource/prompt lists as plain text, used for
// logging the aggregator's exposed capability set.
type ConsoleFormatter struct {
	options Options
}

// NewConsoleFormatter creates a new console formatter.
func NewConsoleFormatter(options Options) Formatter {
	return &ConsoleFormatter{options: options}
}

// FormatToolsList formats tools list for console output.
func (f *ConsoleFormatter) FormatToolsList(tools []mcp.Tool) string {
	if len(tools) == 0 {
		return "no tools exposed"
	}

	var output []string
	output = append(output, fmt.Sprintf("%d tool(s) exposed:", len(tools)))
	for _, tool := range tools {
		output = append(output, fmt.Sprintf("  %-40s - %s", tool.Name, tool.Description))
	}
	return strings.Join(output, "\n")
}

// FormatResourcesList formats resources list for console output.
func (f *ConsoleFormatter) FormatResourcesList(resources []mcp.Resource) string {
	if len(resources) == 0 {
		return "no resources exposed"
	}

	var output []string
	output = append(output, fmt.Sprintf("%d resource(s) exposed:", len(resources)))
	for _, resource := range resources {
		desc := resource.Description
		if desc == "" {
			desc = resource.Name
		}
		output = append(output, fmt.Sprintf("  %-50s - %s", resource.URI, desc))
	}
	return strings.Join(output, "\n")
}

// FormatPromptsList formats prompts list for console output.
func (f *ConsoleFormatter) FormatPromptsList(prompts []mcp.Prompt) string {
	if len(prompts) == 0 {
		return "no prompts exposed"
	}

	var output []string
	output = append(output, fmt.Sprintf("%d prompt(s) exposed:", len(prompts)))
	for _, prompt := range prompts {
		output = append(output, fmt.Sprintf("  %-40s - %s", prompt.Name, prompt.Description))
	}
	return strings.Join(output, "\n")
}
