package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mcprouter/internal/services"
	"mcprouter/internal/store"
	"mcprouter/pkg/logging"

	"golang.org/x/sync/errgroup"
)

// Supervisor owns the set of downstream MCP server Services, starting
// auto-start servers at boot, running periodic health checks, retrying
// unreachable remote servers once their backoff window elapses, and driving
// the crash/restart-quota policy for local (stdio) servers.
type Supervisor struct {
	mu       sync.RWMutex
	services map[string]*Service

	policy         RestartPolicy
	healthInterval time.Duration
	stop           chan struct{}
	wg             sync.WaitGroup
}

// New creates a Supervisor with no services registered. An optional
// RestartPolicy configures the crash/restart quota and heartbeat cadence
// applied to services built via ServiceForServer; DefaultRestartPolicy is
// used if none is given.
func New(policy ...RestartPolicy) *Supervisor {
	p := DefaultRestartPolicy()
	if len(policy) > 0 {
		p = policy[0]
	}
	interval := p.HeartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Supervisor{
		services:       make(map[string]*Service),
		policy:         p,
		healthInterval: interval,
		stop:           make(chan struct{}),
	}
}

// Register adds a Service under its server's id. Registering a second
// service for the same id replaces the first (the caller is responsible for
// stopping the old one first).
func (sup *Supervisor) Register(svc *Service) {
	sup.mu.Lock()
	defer sup.mu.Unlock()
	sup.services[svc.Server().ID] = svc
}

// Unregister removes a service from supervision without stopping it.
func (sup *Supervisor) Unregister(serverID string) {
	sup.mu.Lock()
	defer sup.mu.Unlock()
	delete(sup.services, serverID)
}

// Get returns the service supervising serverID, if any.
func (sup *Supervisor) Get(serverID string) (*Service, bool) {
	sup.mu.RLock()
	defer sup.mu.RUnlock()
	svc, ok := sup.services[serverID]
	return svc, ok
}

// All returns every supervised service.
func (sup *Supervisor) All() []*Service {
	sup.mu.RLock()
	defer sup.mu.RUnlock()
	out := make([]*Service, 0, len(sup.services))
	for _, svc := range sup.services {
		out = append(out, svc)
	}
	return out
}

// StartAutoStart starts every registered service whose server descriptor has
// AutoStart set, concurrently. Failures are logged and do not abort the
// remaining starts.
func (sup *Supervisor) StartAutoStart(ctx context.Context) {
	var eg errgroup.Group
	for _, svc := range sup.All() {
		svc := svc
		if !svc.Server().AutoStart {
			continue
		}
		eg.Go(func() error {
			if err := svc.Start(ctx); err != nil {
				logging.Warn("Supervisor", "failed to auto-start server %s: %v", svc.GetName(), err)
			}
			return nil
		})
	}
	_ = eg.Wait()
}

// StopAll stops every supervised service concurrently, returning the first
// error encountered (if any) once every stop has completed.
func (sup *Supervisor) StopAll(ctx context.Context) error {
	var eg errgroup.Group
	for _, svc := range sup.All() {
		svc := svc
		eg.Go(func() error {
			return svc.Stop(ctx)
		})
	}
	return eg.Wait()
}

// Restart restarts the service supervising serverID. An operator-triggered
// restart resets any open circuit, giving the service a fresh restart quota.
func (sup *Supervisor) Restart(ctx context.Context, serverID string) error {
	svc, ok := sup.Get(serverID)
	if !ok {
		return fmt.Errorf("supervisor: no service for server %s", serverID)
	}
	svc.ResetCircuit()
	return svc.Restart(ctx)
}

// Run starts the background health-check and unreachable-retry loops. It
// blocks until ctx is cancelled or Close is called.
func (sup *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(sup.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sup.stop:
			return
		case <-ticker.C:
			sup.tick(ctx)
		}
	}
}

// Close stops the Run loop.
func (sup *Supervisor) Close() {
	close(sup.stop)
}

func (sup *Supervisor) tick(ctx context.Context) {
	for _, svc := range sup.All() {
		svc := svc
		sup.wg.Add(1)
		go func() {
			defer sup.wg.Done()
			sup.tickOne(ctx, svc)
		}()
	}
	sup.wg.Wait()
}

func (sup *Supervisor) tickOne(ctx context.Context, svc *Service) {
	if svc.isRemote() {
		sup.tickRemote(ctx, svc)
		return
	}
	sup.tickLocal(ctx, svc)
}

// tickRemote retries an unreachable remote server once its backoff elapses,
// or checks health on a connected one.
func (sup *Supervisor) tickRemote(ctx context.Context, svc *Service) {
	if svc.IsUnreachable() {
		retryAfter := svc.GetNextRetryAfter()
		if retryAfter == nil || time.Now().After(*retryAfter) {
			if err := svc.Start(ctx); err != nil {
				logging.Debug("Supervisor", "retry for unreachable server %s failed: %v", svc.GetName(), err)
			}
		}
		return
	}

	if svc.IsRunning() {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if _, err := svc.CheckHealth(checkCtx); err != nil {
			logging.Debug("Supervisor", "health check for %s failed: %v", svc.GetName(), err)
		}
		cancel()
	}
}

// tickLocal drives the crash/restart-quota policy for a local (stdio)
// server: attempting a scheduled restart once its backoff elapses, skipping
// a circuit that's already open (StateFailed, awaiting operator Restart), or
// otherwise checking the heartbeat and escalating persistent failures to
// Service.ReportMissedHeartbeat.
func (sup *Supervisor) tickLocal(ctx context.Context, svc *Service) {
	if svc.RestartPending() {
		if svc.RestartDue(time.Now()) {
			if err := svc.AttemptScheduledRestart(ctx); err != nil {
				logging.Debug("Supervisor", "scheduled restart for %s failed: %v", svc.GetName(), err)
			}
		}
		return
	}

	if svc.GetState() == services.StateFailed {
		return
	}

	if !svc.IsRunning() {
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	_, err := svc.CheckHealth(checkCtx)
	cancel()

	if err != nil {
		svc.ReportMissedHeartbeat(err)
	} else {
		svc.ReportHeartbeat()
	}
}

// ServiceForServer builds and registers a new Service for srv without
// starting it, using the Supervisor's configured RestartPolicy. Use Register
// directly if the Service already exists.
func (sup *Supervisor) ServiceForServer(srv *store.Server) *Service {
	svc := NewServiceWithPolicy(srv, sup.policy)
	sup.Register(svc)
	return svc
}
