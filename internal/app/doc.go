// Package app is mcprouter's composition root: it loads configuration, wires
// every collaborator the request pipeline and frontend need, and drives the
// process lifecycle.
//
// # Components
//
//   - Configuration (config.go): the Config struct (debug/yolo flags, an
//     optional single-directory config path) and the layered
//     config.RouterConfig it loads via internal/config.
//   - Bootstrap (bootstrap.go): NewApplication loads configuration, configures
//     logging, and calls InitializeServices.
//   - Services (services.go): InitializeServices opens the SQLite-backed
//     store, constructs the auth validator, policy evaluator, rate limiter,
//     approval queue, audit sink, and aggregator registry/dispatcher, builds
//     the pipeline.Pipeline around them, registers a supervisor.Service per
//     persisted downstream server, and builds the frontend.Server. Services.Run
//     starts the supervisor, its periodic registry-sync loop, and the
//     frontend HTTP listener; Services.Shutdown tears all three down along
//     with the store.
//   - Modes (modes.go): runOrchestrator starts Services.Run in the
//     background, blocks on SIGINT/SIGTERM or context cancellation, and runs
//     Services.Shutdown before returning.
//
// # Startup sequence
//
//	cfg := app.NewConfig(debug, yolo, configPath)
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// NewApplication loads the router configuration (from configPath if set,
// otherwise the layered user/project default), then initializes services.
// Application.Run hands off to runOrchestrator, which owns the rest of the
// process's lifetime.
package app
