package app

import (
	"context"
	"fmt"
	"time"

	"mcprouter/internal/aggregator"
	"mcprouter/internal/approval"
	"mcprouter/internal/audit"
	"mcprouter/internal/auth"
	"mcprouter/internal/formatting"
	"mcprouter/internal/frontend"
	"mcprouter/internal/pipeline"
	"mcprouter/internal/policy"
	"mcprouter/internal/ratelimit"
	"mcprouter/internal/store"
	"mcprouter/internal/supervisor"
	"mcprouter/pkg/logging"
)

// Services holds every component wired together at startup: the persistent
// store, the request pipeline and its stage collaborators, the downstream
// process supervisor, and the client-facing frontend.
type Services struct {
	Store      *store.Store
	Supervisor *supervisor.Supervisor
	Dispatcher *aggregator.Dispatcher
	Pipeline   *pipeline.Pipeline
	Frontend   *frontend.Server
	Registry   *aggregator.ServerRegistry
}

// dispatcherSyncInterval is how often the dispatcher re-mirrors the
// supervisor's running services into the aggregator registry. It is
// independent of SupervisorConfig.HeartbeatInterval, which now drives the
// supervisor's own liveness checks.
const dispatcherSyncInterval = 10 * time.Second

// InitializeServices opens the store and constructs every collaborator the
// pipeline and frontend need, registers a supervised Service per persisted
// downstream server, and builds (but does not start) the frontend listener.
func InitializeServices(cfg *Config) (*Services, error) {
	rc := cfg.RouterConfig

	st, err := store.Open(rc.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	validator := auth.NewValidator(st)
	evaluator := policy.NewEvaluator(st)
	mcpRateLimit := ratelimit.Config{
		Capacity:   float64(rc.HTTP.RateLimit.MCP.Burst),
		RefillRate: rc.HTTP.RateLimit.MCP.RequestsPerSecond,
	}
	limiter := ratelimit.NewLimiter(mcpRateLimit)
	approvals := approval.NewQueue(st)
	auditSink := audit.NewSink(st)

	cacheTTL := time.Duration(rc.Aggregator.CacheTTLMs) * time.Millisecond
	if cacheTTL <= 0 {
		cacheTTL = aggregator.DefaultCacheTTL
	}
	registry := aggregator.NewServerRegistryWithTTL(rc.Aggregator.ToolPrefix, cacheTTL)
	dispatcher := aggregator.NewDispatcher(registry)

	pipe := pipeline.New(st, validator, limiter, evaluator, approvals, auditSink, dispatcher, pipeline.Config{
		DefaultRateLimit:       mcpRateLimit,
		ApprovalDefaultTimeout: time.Duration(rc.Approval.DefaultTimeoutMs) * time.Millisecond,
		Yolo:                   cfg.Yolo,
	})

	restartPolicy := supervisor.RestartPolicy{
		MaxRestarts:       rc.Supervisor.MaxRestarts,
		RestartWindow:     rc.Supervisor.RestartWindow,
		InitialBackoff:    rc.Supervisor.InitialBackoff,
		BackoffMultiplier: rc.Supervisor.BackoffMultiplier,
		MaxBackoff:        rc.Supervisor.MaxBackoff,
		HeartbeatInterval: rc.Supervisor.HeartbeatInterval,
	}
	sup := supervisor.New(restartPolicy)
	servers, err := st.ListServers(context.Background())
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	for _, srv := range servers {
		sup.Register(supervisor.NewServiceWithPolicy(srv, restartPolicy))
	}

	frontendServer := frontend.NewServer(rc.HTTP, frontend.Dependencies{
		Store:      st,
		Validator:  validator,
		Limiter:    limiter,
		Pipeline:   pipe,
		Registry:   registry,
		Supervisor: sup,
		Approvals:  approvals,
	})

	return &Services{
		Store:      st,
		Supervisor: sup,
		Dispatcher: dispatcher,
		Pipeline:   pipe,
		Frontend:   frontendServer,
		Registry:   registry,
	}, nil
}

// Run starts the supervisor, its registry-sync loop, the capability-change
// logger, and the frontend listener, blocking until ctx is cancelled.
func (s *Services) Run(ctx context.Context) error {
	s.Supervisor.StartAutoStart(ctx)
	go s.Supervisor.Run(ctx)
	go s.runDispatcherSync(ctx)
	go s.logCapabilityChanges(ctx)

	return s.Frontend.Start(ctx)
}

// logCapabilityChanges logs the aggregator's exposed tool/resource/prompt set
// every time a downstream server's registration changes, so an operator
// tailing the log can see what mcprouter currently exposes without needing a
// client connected.
func (s *Services) logCapabilityChanges(ctx context.Context) {
	console := formatting.NewConsoleFormatter(formatting.Options{})
	updates := s.Registry.GetUpdateChannel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			logging.Info("Aggregator", "%s", console.FormatToolsList(s.Registry.GetAllTools()))
			logging.Info("Aggregator", "%s", console.FormatResourcesList(s.Registry.GetAllResources()))
			logging.Info("Aggregator", "%s", console.FormatPromptsList(s.Registry.GetAllPrompts()))
		}
	}
}

// Shutdown stops the frontend listener, every supervised server, and closes
// the store.
func (s *Services) Shutdown(ctx context.Context) error {
	if err := s.Frontend.Stop(ctx); err != nil {
		logging.Warn("App", "frontend shutdown: %v", err)
	}
	if err := s.Supervisor.StopAll(ctx); err != nil {
		logging.Warn("App", "supervisor shutdown: %v", err)
	}
	s.Supervisor.Close()
	return s.Store.Close()
}

// runDispatcherSync periodically mirrors the supervisor's running services
// into the aggregator registry so newly-healthy servers' tools become
// dispatchable and stopped ones are removed.
func (s *Services) runDispatcherSync(ctx context.Context) {
	ticker := time.NewTicker(dispatcherSyncInterval)
	defer ticker.Stop()

	s.Dispatcher.SyncFromSupervisor(ctx, s.Supervisor)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Dispatcher.SyncFromSupervisor(ctx, s.Supervisor)
		}
	}
}
