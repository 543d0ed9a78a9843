// Package mcpserver provides the downstream MCP (Model Context Protocol)
// clients mcprouter uses to talk to the servers it fronts.
//
// # Clients
//
// MCPClient is the transport-independent interface (Initialize, Close,
// ListTools, CallTool, ListResources, ReadResource, ListPrompts, GetPrompt,
// Ping). Three implementations wrap the mark3labs/mcp-go client package and
// share the baseMCPClient helpers:
//
//   - StdioClient starts a local subprocess and speaks MCP over its
//     stdin/stdout; GetStderr exposes the subprocess's stderr.
//   - StreamableHTTPClient connects to a remote server over streamable HTTP.
//   - SSEClient connects to a remote server over Server-Sent Events.
//
// # Construction
//
// NewMCPClientFromType picks the implementation from a store.Transport
// (stdio, http, sse) and an MCPClientConfig, and returns an error when the
// config lacks the command (stdio) or URL (http, sse) that transport needs,
// or when the transport is not one of the three.
//
// # Status updates
//
// McpDiscreteStatusUpdate and McpUpdateFunc describe a discrete status change
// of a downstream server for callers that report one.
//
// Server definitions are not loaded or managed here; they live in the store.
package mcpserver
