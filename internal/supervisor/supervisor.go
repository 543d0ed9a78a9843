// Package supervisor manages the lifecycle of downstream MCP server processes
// and connections: starting stdio subprocesses, dialing remote http/sse
// servers, tracking health, and retrying unreachable remote servers with
// exponential backoff.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"mcprouter/internal/mcpserver"
	"mcprouter/internal/services"
	"mcprouter/internal/store"
	"mcprouter/pkg/logging"
)

// DefaultRemoteTimeout is the default connection timeout in seconds for remote MCP servers,
// used when a Server descriptor leaves TimeoutSeconds at zero.
const DefaultRemoteTimeout = 30

// UnreachableThreshold is the number of consecutive failures before marking a remote
// server as unreachable.
const UnreachableThreshold = 3

// Exponential backoff configuration for unreachable remote servers.
const (
	InitialBackoff    = 30 * time.Second
	MaxBackoff        = 30 * time.Minute
	BackoffMultiplier = 2.0
)

// RestartGracePeriod is the pause between stop and start during a restart.
const RestartGracePeriod = 200 * time.Millisecond

// RestartPolicy bounds how aggressively a local (stdio) service is restarted
// after a crash: a sliding-window quota backed by exponential backoff, after
// which the circuit opens and the service is left in StateFailed until an
// operator-triggered Restart resets it.
type RestartPolicy struct {
	MaxRestarts       int
	RestartWindow     time.Duration
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
	HeartbeatInterval time.Duration
}

// DefaultRestartPolicy returns the restart policy applied when a Service is
// constructed without an explicit one (e.g. in tests).
func DefaultRestartPolicy() RestartPolicy {
	return RestartPolicy{
		MaxRestarts:       5,
		RestartWindow:     60 * time.Second,
		InitialBackoff:    1 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
		HeartbeatInterval: 30 * time.Second,
	}
}

// Service supervises a single downstream MCP server: its process (stdio) or
// connection (http/sse), health, and restart/backoff bookkeeping.
type Service struct {
	*services.BaseService

	mu     sync.RWMutex
	server *store.Server
	client mcpserver.MCPClient

	failureMu           sync.RWMutex
	consecutiveFailures int
	lastAttempt         *time.Time
	nextRetryAfter      *time.Time

	// restartMu guards the local-server crash/restart-quota bookkeeping
	// below. It is independent of failureMu, which tracks remote
	// unreachability instead.
	restartMu         sync.Mutex
	policy            RestartPolicy
	restartTimestamps []time.Time
	currentBackoff    time.Duration
	restartDeadline   *time.Time
	unhealthySince    *time.Time
	lastHeartbeat     *time.Time
}

// NewService creates a supervised service for the given server descriptor,
// using DefaultRestartPolicy for local crash/restart bookkeeping.
func NewService(server *store.Server) *Service {
	return NewServiceWithPolicy(server, DefaultRestartPolicy())
}

// NewServiceWithPolicy creates a supervised service with an explicit restart
// policy, as used when servers are loaded from configuration.
func NewServiceWithPolicy(server *store.Server, policy RestartPolicy) *Service {
	base := services.NewBaseService(server.Name, services.TypeMCPServer, nil)
	return &Service{
		BaseService:    base,
		server:         server,
		policy:         policy,
		currentBackoff: policy.InitialBackoff,
	}
}

// Server returns the server descriptor this service supervises.
func (s *Service) Server() *store.Server {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.server
}

// UpdateServer replaces the server descriptor used for future (re)starts.
// It does not affect an already-running client.
func (s *Service) UpdateServer(server *store.Server) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.server = server
}

func (s *Service) isRemote() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.server.Transport == store.TransportHTTP || s.server.Transport == store.TransportSSE
}

// Start creates and initializes the downstream MCP client: spawning a
// subprocess for stdio servers, or dialing the endpoint for http/sse
// servers. Remote servers track consecutive failures, transitioning to
// StateUnreachable after UnreachableThreshold consecutive failures.
func (s *Service) Start(ctx context.Context) error {
	if s.IsRunning() {
		return fmt.Errorf("service %s is already running", s.GetName())
	}

	now := time.Now()
	s.failureMu.Lock()
	s.lastAttempt = &now
	s.failureMu.Unlock()

	s.UpdateState(services.StateStarting, services.HealthUnknown, nil)
	s.LogInfo("starting mcp server")

	if err := s.createAndInitializeClient(ctx); err != nil {
		if s.isRemote() && s.isTransientConnectivityError(err) {
			s.failureMu.Lock()
			s.consecutiveFailures++
			s.calculateNextRetryTimeLocked()
			failures := s.consecutiveFailures
			nextRetry := s.nextRetryAfter
			s.failureMu.Unlock()

			s.LogWarn("connection failure #%d for %s: %v (next retry after %v)", failures, s.GetName(), err, nextRetry)

			if failures >= UnreachableThreshold {
				s.UpdateState(services.StateUnreachable, services.HealthUnknown, err)
				return fmt.Errorf("server unreachable after %d consecutive failures: %w", failures, err)
			}
		}

		s.UpdateState(services.StateFailed, services.HealthUnhealthy, err)
		return fmt.Errorf("failed to start mcp server: %w", err)
	}

	s.failureMu.Lock()
	s.consecutiveFailures = 0
	s.nextRetryAfter = nil
	s.failureMu.Unlock()

	if s.isRemote() {
		s.UpdateState(services.StateConnected, services.HealthHealthy, nil)
		s.LogInfo("mcp server connected")
	} else {
		s.UpdateState(services.StateRunning, services.HealthHealthy, nil)
		s.LogInfo("mcp server started")
	}

	return nil
}

// Stop closes the downstream client, terminating a stdio subprocess or
// closing a remote session.
func (s *Service) Stop(ctx context.Context) error {
	current := s.GetState()

	if current == services.StateStopped {
		return nil
	}

	if current != services.StateRunning && current != services.StateConnected && current != services.StateFailed {
		if s.isRemote() {
			s.UpdateState(services.StateDisconnected, services.HealthUnknown, nil)
		} else {
			s.UpdateState(services.StateStopped, services.HealthUnknown, nil)
		}
		return nil
	}

	s.UpdateState(services.StateStopping, s.GetHealth(), nil)
	s.LogInfo("stopping mcp server")

	if err := s.closeClient(); err != nil {
		s.LogWarn("error during client cleanup: %v", err)
	}

	if s.isRemote() {
		s.UpdateState(services.StateDisconnected, services.HealthUnknown, nil)
		s.LogInfo("mcp server disconnected")
	} else {
		s.UpdateState(services.StateStopped, services.HealthUnknown, nil)
		s.LogInfo("mcp server stopped")
	}

	return nil
}

// Restart stops (if running) and starts the service, pausing for
// RestartGracePeriod in between.
func (s *Service) Restart(ctx context.Context) error {
	s.LogInfo("restarting mcp server")

	if s.IsRunning() {
		if err := s.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop service during restart: %w", err)
		}
	}

	time.Sleep(RestartGracePeriod)
	return s.Start(ctx)
}

// IsRunning reports whether the service is running (stdio) or connected (remote).
func (s *Service) IsRunning() bool {
	state := s.GetState()
	return state == services.StateRunning || state == services.StateConnected
}

// IsHealthy reports whether the service is both running and healthy.
func (s *Service) IsHealthy() bool {
	return s.GetHealth() == services.HealthHealthy && s.IsRunning()
}

// IsUnreachable reports whether the remote server has exceeded UnreachableThreshold.
func (s *Service) IsUnreachable() bool {
	return s.GetState() == services.StateUnreachable
}

// CheckHealth pings the downstream client.
func (s *Service) CheckHealth(ctx context.Context) (services.HealthStatus, error) {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()

	if client == nil {
		s.UpdateHealth(services.HealthUnhealthy)
		return services.HealthUnhealthy, fmt.Errorf("mcp client not available")
	}

	if err := client.Ping(ctx); err != nil {
		s.UpdateHealth(services.HealthUnhealthy)
		return services.HealthUnhealthy, fmt.Errorf("mcp ping failed: %w", err)
	}

	s.UpdateHealth(services.HealthHealthy)
	return services.HealthHealthy, nil
}

// GetHealthCheckInterval implements services.HealthChecker.
func (s *Service) GetHealthCheckInterval() time.Duration {
	if s.policy.HeartbeatInterval > 0 {
		return s.policy.HeartbeatInterval
	}
	return 30 * time.Second
}

// Client returns the live downstream client, or nil if not started.
func (s *Service) Client() mcpserver.MCPClient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

func (s *Service) getRemoteInitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	s.mu.RLock()
	timeout := s.server.TimeoutSeconds
	s.mu.RUnlock()
	if timeout == 0 {
		timeout = DefaultRemoteTimeout
	}
	return context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
}

func (s *Service) createAndInitializeClient(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	srv := s.server
	config := mcpserver.MCPClientConfig{
		Command: srv.Command,
		Args:    srv.Args,
		Env:     srv.Env,
		URL:     srv.URL,
		Headers: srv.Headers,
	}

	client, err := mcpserver.NewMCPClientFromType(srv.Transport, config)
	if err != nil {
		return fmt.Errorf("failed to create mcp client: %w", err)
	}

	var initCtx context.Context
	var cancel context.CancelFunc
	if srv.Transport == store.TransportStdio {
		initCtx, cancel = context.WithTimeout(ctx, mcpserver.DefaultStdioInitTimeout)
	} else {
		initCtx, cancel = s.getRemoteInitContext(ctx)
	}
	defer cancel()

	if err := client.Initialize(initCtx); err != nil {
		return fmt.Errorf("failed to initialize %s mcp client: %w", srv.Transport, err)
	}

	s.client = client
	return nil
}

func (s *Service) closeClient() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func (s *Service) LogInfo(format string, args ...interface{}) {
	logging.Info(s.logCtx(), format, args...)
}

func (s *Service) LogWarn(format string, args ...interface{}) {
	logging.Warn(s.logCtx(), format, args...)
}

func (s *Service) logCtx() string {
	return fmt.Sprintf("supervisor.%s", s.GetName())
}

// isTransientConnectivityError reports whether err is a transient network
// error that should count towards the unreachable threshold, as opposed to a
// configuration error (bad TLS/certificates) that requires user intervention.
func (s *Service) isTransientConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	if isConfigurationError(err) {
		return false
	}

	errStr := strings.ToLower(err.Error())

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	transientPatterns := []string{
		"connection refused", "connection reset", "connection timed out",
		"no such host", "network is unreachable", "host is unreachable",
		"no route to host", "dial tcp", "dial unix", "i/o timeout", "eof",
		"connection closed", "context deadline exceeded", "context canceled",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	for code := 500; code <= 511; code++ {
		if strings.Contains(errStr, fmt.Sprintf("status %d", code)) {
			return true
		}
	}
	http5xx := []string{
		"internal server error", "bad gateway", "service unavailable",
		"gateway timeout", "http version not supported", "variant also negotiates",
	}
	for _, pattern := range http5xx {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

func isConfigurationError(err error) bool {
	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"certificate", "x509", "tls handshake",
		"certificate signed by unknown authority",
		"certificate has expired", "certificate is not valid",
	}
	for _, pattern := range patterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

func (s *Service) calculateNextRetryTimeLocked() {
	backoff := InitialBackoff
	for i := 1; i < s.consecutiveFailures; i++ {
		backoff = time.Duration(float64(backoff) * BackoffMultiplier)
		if backoff > MaxBackoff {
			backoff = MaxBackoff
			break
		}
	}
	next := time.Now().Add(backoff)
	s.nextRetryAfter = &next
}

// GetConsecutiveFailures returns the number of consecutive connection failures.
func (s *Service) GetConsecutiveFailures() int {
	s.failureMu.RLock()
	defer s.failureMu.RUnlock()
	return s.consecutiveFailures
}

// GetNextRetryAfter returns when the next retry should be attempted, or nil
// if none is scheduled.
func (s *Service) GetNextRetryAfter() *time.Time {
	s.failureMu.RLock()
	defer s.failureMu.RUnlock()
	if s.nextRetryAfter == nil {
		return nil
	}
	t := *s.nextRetryAfter
	return &t
}

// ReportCrash records that a local server's process has died. mcp-go's
// stdio client does not surface a raw exit code through MCPClient, so the
// supervisor treats a failed liveness Ping against a previously-running
// local service as the crash signal (see ReportMissedHeartbeat). Within the
// restart quota, a restart is scheduled after the current backoff; once the
// quota is exhausted within RestartWindow, the circuit opens: the service
// moves to StateFailed and stays there until ResetCircuit (operator Restart).
func (s *Service) ReportCrash(cause error) {
	s.UpdateState(services.StateCrashed, services.HealthUnhealthy, cause)

	now := time.Now()
	s.restartMu.Lock()
	s.pruneRestartWindowLocked(now)
	exhausted := len(s.restartTimestamps) >= s.policy.MaxRestarts
	backoff := s.currentBackoff
	if !exhausted {
		deadline := now.Add(backoff)
		s.restartDeadline = &deadline
	} else {
		s.restartDeadline = nil
	}
	s.restartMu.Unlock()

	if exhausted {
		s.UpdateState(services.StateFailed, services.HealthUnhealthy, cause)
		s.LogWarn("restart quota exhausted (%d restarts within %v), circuit open: %v", s.policy.MaxRestarts, s.policy.RestartWindow, cause)
		return
	}

	s.UpdateState(services.StateRestarting, services.HealthUnhealthy, cause)
	s.LogWarn("mcp server crashed, restart scheduled in %v: %v", backoff, cause)
}

// pruneRestartWindowLocked drops restart timestamps that have aged out of
// the restart window. Callers must hold restartMu.
func (s *Service) pruneRestartWindowLocked(now time.Time) {
	cutoff := now.Add(-s.policy.RestartWindow)
	kept := s.restartTimestamps[:0]
	for _, ts := range s.restartTimestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	s.restartTimestamps = kept
}

// RestartPending reports whether a crash-triggered restart is scheduled.
func (s *Service) RestartPending() bool {
	return s.GetState() == services.StateRestarting
}

// RestartDue reports whether a scheduled crash restart's backoff has elapsed.
func (s *Service) RestartDue(now time.Time) bool {
	s.restartMu.Lock()
	defer s.restartMu.Unlock()
	return s.restartDeadline != nil && !now.Before(*s.restartDeadline)
}

// AttemptScheduledRestart performs a pending crash-triggered restart. It first
// clears the pending deadline and records the restart timestamp, so a failed
// attempt counts against the quota too. On success it grows the backoff for
// the next crash. On failure it re-reports the failed
// attempt through ReportCrash, which may exhaust the quota and open the
// circuit.
func (s *Service) AttemptScheduledRestart(ctx context.Context) error {
	s.restartMu.Lock()
	s.restartTimestamps = append(s.restartTimestamps, time.Now())
	s.restartDeadline = nil
	s.restartMu.Unlock()

	if err := s.Start(ctx); err != nil {
		s.ReportCrash(err)
		return err
	}

	s.restartMu.Lock()
	s.currentBackoff = time.Duration(float64(s.currentBackoff) * s.policy.BackoffMultiplier)
	if s.currentBackoff > s.policy.MaxBackoff {
		s.currentBackoff = s.policy.MaxBackoff
	}
	s.restartMu.Unlock()

	s.LogInfo("restarted after crash, backoff now %v", s.currentBackoff)
	return nil
}

// ResetCircuit clears restart-quota and backoff bookkeeping. An
// operator-triggered Restart calls this first, so a server whose circuit
// was opened by ReportCrash gets a fresh quota instead of immediately
// failing again.
func (s *Service) ResetCircuit() {
	s.restartMu.Lock()
	defer s.restartMu.Unlock()
	s.restartTimestamps = nil
	s.currentBackoff = s.policy.InitialBackoff
	s.restartDeadline = nil
	s.unhealthySince = nil
}

// ReportHeartbeat records a successful liveness check against a local
// server, clearing any unhealthy streak and restoring health to healthy.
func (s *Service) ReportHeartbeat() {
	now := time.Now()
	s.restartMu.Lock()
	s.lastHeartbeat = &now
	wasUnhealthy := s.unhealthySince != nil
	s.unhealthySince = nil
	s.restartMu.Unlock()

	if wasUnhealthy || s.GetHealth() != services.HealthHealthy {
		s.UpdateHealth(services.HealthHealthy)
	}
}

// ReportMissedHeartbeat records a failed liveness check against a local
// server. The first miss flips health to unhealthy; once misses persist for
// 2x the configured heartbeat interval, it escalates to ReportCrash.
func (s *Service) ReportMissedHeartbeat(cause error) {
	now := time.Now()
	s.restartMu.Lock()
	if s.unhealthySince == nil {
		s.unhealthySince = &now
		s.restartMu.Unlock()
		s.UpdateHealth(services.HealthUnhealthy)
		return
	}
	since := *s.unhealthySince
	s.restartMu.Unlock()

	if now.Sub(since) >= 2*s.policy.HeartbeatInterval {
		s.restartMu.Lock()
		s.unhealthySince = nil
		s.restartMu.Unlock()
		s.ReportCrash(cause)
		return
	}

	s.UpdateHealth(services.HealthUnhealthy)
}
