package frontend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mcprouter/internal/aggregator"
	"mcprouter/internal/api"
	"mcprouter/internal/pipeline"
	"mcprouter/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

const serverName = "mcprouter"

// newMCPServer builds the mark3labs/mcp-go server that backs every transport
// this package mounts, and registers the built-in router.ping/router.whoami
// tools alongside the namespaced downstream tools.
func newMCPServer(version string, pipe *pipeline.Pipeline) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(
		serverName, version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithPromptCapabilities(true),
	)

	s.AddTool(pingTool(), handlePing)
	s.AddTool(whoamiTool(), handleWhoami(pipe))

	return s
}

func pingTool() mcp.Tool {
	return mcp.NewTool("router.ping",
		mcp.WithDescription("Liveness check that resolves entirely in-process, bypassing downstream dispatch."),
	)
}

func handlePing(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("pong"), nil
}

func whoamiTool() mcp.Tool {
	return mcp.NewTool("router.whoami",
		mcp.WithDescription("Reports the caller's resolved client and project scope, exercising auth/project resolution without dispatching to a downstream server."),
	)
}

// handleWhoami runs the request far enough through the pipeline to resolve
// identity and project scope, then short-circuits before dispatch: it is a
// memory primitive, not a downstream call, per spec.md §4.10.
func handleWhoami(pipe *pipeline.Pipeline) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tokenID := tokenIDFrom(ctx)
		projectID := projectIDFrom(ctx)

		result, err := pipe.Whoami(ctx, tokenID, projectID)
		if err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("client=%s project=%s", result.ClientID, result.ProjectID)), nil
	}
}

// toolSync keeps the mcp-go server's tool set mirrored to the aggregator
// registry: adding namespaced tools for newly-visible downstream tools and
// removing ones that disappeared, the way the teacher's AggregatorServer
// reconciles its capability set off registry update notifications.
type toolSync struct {
	mcpServer *mcpserver.MCPServer
	registry  *aggregator.ServerRegistry
	pipe      *pipeline.Pipeline

	mu     sync.Mutex
	active map[string]bool
}

func newToolSync(mcpServer *mcpserver.MCPServer, registry *aggregator.ServerRegistry, pipe *pipeline.Pipeline) *toolSync {
	return &toolSync{
		mcpServer: mcpServer,
		registry:  registry,
		pipe:      pipe,
		active:    make(map[string]bool),
	}
}

// Run reconciles once immediately, then on every registry update until ctx
// is cancelled.
func (ts *toolSync) Run(ctx context.Context) {
	ts.reconcile()
	updates := ts.registry.GetUpdateChannel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			ts.reconcile()
		}
	}
}

func (ts *toolSync) reconcile() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	tools := ts.registry.GetAllTools()
	wanted := make(map[string]mcp.Tool, len(tools))
	for _, t := range tools {
		wanted[t.Name] = t
	}

	var toAdd []mcpserver.ServerTool
	for name, tool := range wanted {
		if ts.active[name] {
			continue
		}
		toAdd = append(toAdd, mcpserver.ServerTool{
			Tool:    tool,
			Handler: ts.dispatchHandler(name),
		})
		ts.active[name] = true
	}
	if len(toAdd) > 0 {
		ts.mcpServer.AddTools(toAdd...)
	}

	var toRemove []string
	for name := range ts.active {
		if _, ok := wanted[name]; !ok {
			toRemove = append(toRemove, name)
			delete(ts.active, name)
		}
	}
	if len(toRemove) > 0 {
		ts.mcpServer.DeleteTools(toRemove...)
	}

	if len(toAdd) > 0 || len(toRemove) > 0 {
		logging.Debug("Frontend", "tool sync: +%d -%d (total %d)", len(toAdd), len(toRemove), len(wanted))
	}
}

// dispatchHandler builds the mcp-go tool handler for an exposed (namespaced)
// tool name: resolve it back to a server id + original tool name, then run
// the call through the full pipeline.
func (ts *toolSync) dispatchHandler(exposedName string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		serverID, toolName, err := ts.registry.ResolveToolName(exposedName)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("unknown tool: %s", exposedName)), nil
		}

		callReq := api.ToolCallRequest{
			TokenID:     tokenIDFrom(ctx),
			ProjectID:   projectIDFrom(ctx),
			ServerID:    serverID,
			ToolName:    toolName,
			Arguments:   req.GetArguments(),
			RequestedAt: time.Now(),
		}

		result, err := ts.pipe.Call(ctx, callReq)
		if err != nil {
			return toolError(err), nil
		}
		return convertResult(result), nil
	}
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

// convertResult adapts the pipeline's transport-agnostic result into an
// mcp-go CallToolResult. Content elements already shaped like mcp.Content
// (e.g. passed straight through from a downstream client) are kept as-is;
// anything else is rendered as text.
func convertResult(result *api.ToolCallResult) *mcp.CallToolResult {
	out := &mcp.CallToolResult{IsError: result.IsError}
	for _, c := range result.Content {
		switch v := c.(type) {
		case mcp.Content:
			out.Content = append(out.Content, v)
		case string:
			out.Content = append(out.Content, mcp.TextContent{Type: "text", Text: v})
		default:
			out.Content = append(out.Content, mcp.TextContent{Type: "text", Text: fmt.Sprintf("%v", v)})
		}
	}
	return out
}
