// Package services provides the service abstraction layer for mcprouter.
//
// This package defines the interfaces and types shared by the supervised MCP
// servers in mcprouter. The only service type is TypeMCPServer; the supervisor
// package implements Service for each downstream server on top of BaseService.
//
// # Core Concepts
//
// Service: a manageable component that can be started, stopped, restarted and
// monitored.
//
// ServiceRegistry: a thread-safe registry, keyed by service name, that holds
// the registered services (NewRegistry). Registering a second service under
// the same name fails, and Unregister of an unknown name returns an
// api.NotFoundError.
//
// ServiceState: the current state of a service (unknown, waiting, starting,
// running, connected, stopping, stopped, disconnected, failed, retrying,
// unreachable, crashed, restarting).
//
// BaseService: an embeddable implementation of the state, health, last-error,
// name, type, dependency and callback parts of Service; embedders supply
// Start, Stop and Restart.
//
// StatusUpdate, StatusReporter, MapStatusToState and MapStatusToHealth
// translate status strings into ServiceState and HealthStatus values.
//
// # Service Interface
//
// All services must implement the core Service interface:
//
//	type Service interface {
//	    Start(ctx context.Context) error     // Start the service
//	    Stop(ctx context.Context) error      // Stop the service
//	    Restart(ctx context.Context) error   // Restart the service
//	    GetState() ServiceState              // Current state
//	    GetHealth() HealthStatus             // Health status
//	    GetLastError() error                 // Last error encountered
//	    GetName() string                     // Unique identifier
//	    GetType() ServiceType                // Service type
//	    GetDependencies() []string           // Service dependencies
//	    SetStateChangeCallback(StateChangeCallback) // State change notifications
//	}
//
// # Extended Interfaces
//
// Services can implement additional interfaces for extended functionality:
//
// HealthChecker: For services that support periodic health checks
//
//	type HealthChecker interface {
//	    CheckHealth(ctx context.Context) (HealthStatus, error)
//	    GetHealthCheckInterval() time.Duration
//	}
//
// ServiceDataProvider: For services that provide runtime data
//
//	type ServiceDataProvider interface {
//	    GetServiceData() map[string]interface{}
//	}
//
// StateUpdater: For external state management
//
//	type StateUpdater interface {
//	    UpdateState(state ServiceState, health HealthStatus, err error)
//	}
//
// # State Change Events
//
// Services support state change notifications through callbacks:
//
//	type StateChangeCallback func(
//	    name string,
//	    oldState, newState ServiceState,
//	    health HealthStatus,
//	    err error,
//	)
//
// # Thread Safety
//
// The registry returned by NewRegistry and BaseService guard their state with
// mutexes and can be used from several goroutines.
//
// # Example Usage
//
//	// Create a registry
//	registry := services.NewRegistry()
//
//	// Register a service (any type implementing Service)
//	if err := registry.Register(service); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Look it up and start it
//	if svc, ok := registry.Get(service.GetName()); ok {
//	    if err := svc.Start(ctx); err != nil {
//	        log.Fatal(err)
//	    }
//	}
package services
