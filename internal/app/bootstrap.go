package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"mcprouter/internal/config"
	"mcprouter/pkg/logging"
)

// Application represents the main application structure that bootstraps and runs mcprouter.
// It encapsulates all necessary configuration and services required for the application's
// lifecycle, including initialization, service management, and execution mode handling.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: Load configuration, initialize logging, setup services
//  2. Execution phase: Run the orchestrator
//
// Example usage:
//
//	cfg := app.NewConfig(true, false, "")  // debug enabled
//	app, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return app.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance with the provided configuration.
// This function performs the complete bootstrap sequence:
//
//  1. Configures logging: Debug with --debug; otherwise the LOG_LEVEL
//     environment variable, or else the logLevel config option, picks the
//     minimum level (debug, info, warn, error) once the config is loaded
//  2. Loads mcprouter configuration (from a given directory, or the first config.yaml found)
//  3. Initializes all required services and API handlers
//  4. Sets up service dependencies and registrations
//
// Configuration Loading Behavior:
//   - If cfg.RouterConfig is already set: it is used as is and no file is loaded
//   - If cfg.ConfigPath is set: loads from the specified directory only
//   - If cfg.ConfigPath is empty: loads the first config.yaml found
//     (MCPROUTER_CONFIG, ./.mcprouter, then the user config directory) over
//     the defaults
//
// The function returns an error if any critical initialization step fails,
// including configuration loading or service initialization failures.
//
// Example:
//
//	cfg := app.NewConfig(false, false, "/custom/config")  // custom config path
//	app, err := app.NewApplication(cfg)
//	if err != nil {
//	    log.Fatalf("Bootstrap failed: %v", err)
//	}
func NewApplication(cfg *Config) (*Application, error) {
	// Configure logging based on debug flag
	appLogLevel := logging.LevelInfo
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}

	var logOutput io.Writer = os.Stdout
	logging.InitForCLI(appLogLevel, logOutput)

	// Load environment configuration
	var routerCfg config.RouterConfig
	var err error

	if cfg.RouterConfig != nil {
		routerCfg = *cfg.RouterConfig
	} else if cfg.ConfigPath != "" {
		// Use single directory configuration loading
		routerCfg, err = config.LoadConfigFromPath(cfg.ConfigPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load mcprouter configuration from path: %s", cfg.ConfigPath)
			return nil, fmt.Errorf("failed to load mcprouter configuration from path %s: %w", cfg.ConfigPath, err)
		}
		logging.Info("Bootstrap", "Loaded configuration from custom path: %s", cfg.ConfigPath)
	} else {
		// Use the default config file search (first config.yaml found)
		routerCfg, err = config.LoadConfig()
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load mcprouter configuration")
			return nil, fmt.Errorf("failed to load mcprouter configuration: %w", err)
		}
		logging.Info("Bootstrap", "Loaded configuration using layered approach")
	}

	if !cfg.Debug {
		levelName := routerCfg.LogLevel
		if env := os.Getenv("LOG_LEVEL"); env != "" {
			levelName = env
		}
		switch strings.ToLower(levelName) {
		case "debug":
			appLogLevel = logging.LevelDebug
		case "warn", "warning":
			appLogLevel = logging.LevelWarn
		case "error":
			appLogLevel = logging.LevelError
		}
		logging.InitForCLI(appLogLevel, logOutput)
	}

	cfg.RouterConfig = &routerCfg

	// Initialize services
	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Run executes the application
//
// Handles graceful shutdown via context cancellation and system signals.
// The method blocks until the application is terminated or encounters an error.
//
// Returns an error if the selected execution mode fails to start or encounters
// a runtime error during execution.
func (a *Application) Run(ctx context.Context) error {
	return runOrchestrator(ctx, a.services)
}
