package aggregator

import (
	"context"
	"fmt"

	"mcprouter/internal/api"
	"mcprouter/internal/supervisor"
	"mcprouter/pkg/logging"
)

// Dispatcher implements pipeline.Dispatcher by resolving a server id to its
// live downstream MCP client through the ServerRegistry and invoking the
// tool call against it. Access control (deny/require_approval) is entirely
// the pipeline's policy-evaluate stage's job, run before a request ever
// reaches here — the dispatcher never re-derives a blocklist of its own.
type Dispatcher struct {
	registry *ServerRegistry
}

// NewDispatcher creates a Dispatcher over registry.
func NewDispatcher(registry *ServerRegistry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// CallTool resolves serverID to a connected downstream client and invokes
// toolName with args, returning the result in the pipeline's normalized form.
func (d *Dispatcher) CallTool(ctx context.Context, serverID, toolName string, args map[string]any) (*api.ToolCallResult, error) {
	client, err := d.registry.GetClient(serverID)
	if err != nil {
		return nil, fmt.Errorf("resolve server %s: %w", serverID, err)
	}

	result, err := client.CallTool(ctx, toolName, args)
	if err != nil {
		if invalidateErr := d.registry.InvalidateServerCache(serverID); invalidateErr != nil {
			logging.Debug("AggregatorDispatcher", "invalidate cache for %s: %v", serverID, invalidateErr)
		}
		return nil, fmt.Errorf("call tool %s on server %s: %w", toolName, serverID, err)
	}

	content := make([]any, len(result.Content))
	for i, c := range result.Content {
		content[i] = c
	}
	return &api.ToolCallResult{Content: content, IsError: result.IsError}, nil
}

// SyncFromSupervisor mirrors the aggregator's registry to the set of
// currently running supervised services: newly-running servers are
// registered (their tool/resource/prompt capabilities fetched), and servers
// that are no longer running are deregistered.
func (d *Dispatcher) SyncFromSupervisor(ctx context.Context, sup *supervisor.Supervisor) {
	for _, svc := range sup.All() {
		srv := svc.Server()

		if !svc.IsRunning() {
			if _, exists := d.registry.GetServerInfo(srv.ID); exists {
				if err := d.registry.Deregister(srv.ID); err != nil {
					logging.Debug("AggregatorDispatcher", "deregister %s: %v", srv.ID, err)
				}
			}
			continue
		}

		if _, exists := d.registry.GetServerInfo(srv.ID); exists {
			continue
		}

		client := svc.Client()
		if client == nil {
			continue
		}
		slug := srv.ToolPrefix
		if slug == "" {
			slug = srv.Slug
		}
		if err := d.registry.Register(ctx, srv.ID, client, slug); err != nil {
			logging.Warn("AggregatorDispatcher", "register %s: %v", srv.ID, err)
		}
	}
}
