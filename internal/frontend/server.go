package frontend

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"mcprouter/internal/aggregator"
	"mcprouter/internal/approval"
	"mcprouter/internal/auth"
	"mcprouter/internal/config"
	"mcprouter/internal/pipeline"
	"mcprouter/internal/ratelimit"
	"mcprouter/internal/store"
	"mcprouter/internal/supervisor"
	"mcprouter/pkg/logging"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Server is the client-facing MCP surface: one HTTP listener fronting a
// shared mark3labs/mcp-go server.MCPServer over streamable-HTTP and SSE,
// plus the unauthenticated health/status/metrics endpoints.
type Server struct {
	cfg config.HTTPConfig

	httpServer *http.Server
	toolSync   *toolSync

	cancel context.CancelFunc
}

// Dependencies bundles everything the frontend needs to build its handlers.
// Constructed by the composition root (internal/app) once the store,
// pipeline, and supervisor are wired up.
type Dependencies struct {
	Store      *store.Store
	Validator  *auth.Validator
	Limiter    *ratelimit.Limiter
	Pipeline   *pipeline.Pipeline
	Registry   *aggregator.ServerRegistry
	Supervisor *supervisor.Supervisor
	Approvals  *approval.Queue
	Version    string
}

// NewServer builds the HTTP mux and underlying mcp-go server, but does not
// start listening; call Start for that.
func NewServer(cfg config.HTTPConfig, deps Dependencies) *Server {
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	mcpServer := newMCPServer(version, deps.Pipeline)
	ts := newToolSync(mcpServer, deps.Registry, deps.Pipeline)

	streamable := mcpserver.NewStreamableHTTPServer(mcpServer,
		mcpserver.WithHTTPContextFunc(contextFromRequest),
	)
	sse := mcpserver.NewSSEServer(mcpServer,
		mcpserver.WithSSEContextFunc(contextFromRequest),
		mcpserver.WithSSEEndpoint("/mcp/sse"),
		mcpserver.WithMessageEndpoint("/mcp/messages"),
	)

	mux := http.NewServeMux()

	authed := authenticatedChain(streamable, cfg, deps.Limiter, deps.Validator, deps.Store)
	mux.Handle("/mcp", authed)

	sseAuthed := authenticatedChain(sse, cfg, deps.Limiter, deps.Validator, deps.Store)
	mux.Handle("/mcp/sse", sseAuthed)
	mux.Handle("/mcp/messages", sseAuthed)

	mux.Handle("/health", unauthenticatedChain(http.HandlerFunc(handleHealth), cfg))
	mux.Handle("/status", unauthenticatedChain(http.HandlerFunc(statusHandler(deps)), cfg))

	metricsRegistry := prometheus.NewRegistry()
	registerMetrics(metricsRegistry, deps.Supervisor, deps.Registry, deps.Approvals)
	mux.Handle("/metrics", unauthenticatedChain(promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}), cfg))

	addr := fmt.Sprintf("localhost:%d", cfg.Port)
	return &Server{
		cfg:      cfg,
		toolSync: ts,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// contextFromRequest carries the bearer token and resolved project from the
// HTTP request (set earlier in the middleware chain) into the context seen
// by mcp-go tool handlers.
func contextFromRequest(ctx context.Context, r *http.Request) context.Context {
	ctx = withTokenID(ctx, tokenIDFrom(r.Context()))
	ctx = withProjectID(ctx, projectIDFrom(r.Context()))
	return ctx
}

// Start begins serving and runs the tool-sync reconciliation loop until ctx
// is cancelled. If the process was started under systemd socket activation
// (LISTEN_FDS set), the first inherited listener is served instead of
// binding cfg.Port directly.
func (s *Server) Start(ctx context.Context) error {
	syncCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.toolSync.Run(syncCtx)

	listener, err := s.listener()
	if err != nil {
		return fmt.Errorf("acquire listener: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("Frontend", "listening on %s", listener.Addr())
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop(context.Background())
	case err := <-errCh:
		return err
	}
}

// listener returns the systemd-activated listener for this process if one
// was passed down (LISTEN_FDS), otherwise it binds cfg's configured address
// itself.
func (s *Server) listener() (net.Listener, error) {
	listenersWithNames, err := activation.ListenersWithNames()
	if err != nil {
		logging.Debug("Frontend", "systemd socket activation check failed: %v", err)
	} else if len(listenersWithNames) > 0 {
		for name, listeners := range listenersWithNames {
			for i, l := range listeners {
				logging.Info("Frontend", "using systemd-activated listener %d for %s", i, name)
				return l, nil
			}
		}
	}

	return net.Listen("tcp", s.httpServer.Addr)
}

// Stop gracefully shuts down the HTTP listener and the tool-sync loop.
func (s *Server) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func statusHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		servers := deps.Supervisor.All()
		healthy := 0
		for _, svc := range servers {
			if svc.IsHealthy() {
				healthy++
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":         "ok",
			"serversTotal":   len(servers),
			"serversHealthy": healthy,
			"toolsExposed":   len(deps.Registry.GetAllTools()),
			"approvalsPending": deps.Approvals.PendingCount(),
		})
	}
}
