// Package frontend is the client-facing HTTP surface of mcprouter: the
// loopback-bound listener clients talk MCP to, per spec.md §4.10 and §6.
//
// A single mark3labs/mcp-go server.MCPServer backs three transports mounted
// on one mux: POST /mcp (streamable-HTTP JSON-RPC), GET /mcp/sse + POST
// /mcp/messages (SSE), and the unauthenticated GET /health and GET /status.
// /metrics exposes the Prometheus registry built by registerMetrics.
//
// Every tool call, whatever transport carried it, ends up as one
// pipeline.Pipeline.Call through a per-tool handler. Namespacing
// ("<slug>.<tool>") and capability sync from the aggregator registry are
// handled here, not in mcp-go itself: handlers are added/removed with
// AddTools/DeleteTools as downstream servers come and go.
package frontend
