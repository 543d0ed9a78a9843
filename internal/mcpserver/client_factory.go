package mcpserver

import (
	"fmt"

	"mcprouter/internal/store"
)

// MCPClientConfig contains configuration for creating an MCP client.
// This provides a unified configuration structure for all client types.
type MCPClientConfig struct {
	// Command is the executable path for stdio servers
	Command string
	// Args are the command line arguments for stdio servers
	Args []string
	// Env contains environment variables for stdio servers
	Env map[string]string
	// URL is the endpoint for remote servers (http, sse)
	URL string
	// Headers are HTTP headers for remote servers
	Headers map[string]string
}

// NewMCPClientFromType creates the appropriate MCP client based on the
// downstream server's configured transport.
func NewMCPClientFromType(transport store.Transport, config MCPClientConfig) (MCPClient, error) {
	switch transport {
	case store.TransportStdio:
		if config.Command == "" {
			return nil, fmt.Errorf("command is required for stdio transport")
		}
		return NewStdioClientWithEnv(config.Command, config.Args, config.Env), nil

	case store.TransportHTTP:
		if config.URL == "" {
			return nil, fmt.Errorf("url is required for http transport")
		}
		return NewStreamableHTTPClientWithHeaders(config.URL, config.Headers), nil

	case store.TransportSSE:
		if config.URL == "" {
			return nil, fmt.Errorf("url is required for sse transport")
		}
		return NewSSEClientWithHeaders(config.URL, config.Headers), nil

	default:
		return nil, fmt.Errorf("unsupported transport: %s (supported: %s, %s, %s)",
			transport, store.TransportStdio, store.TransportHTTP, store.TransportSSE)
	}
}
