package app

import (
	"context"
	"mcprouter/pkg/logging"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// runOrchestrator executes the application in non-interactive command line
// mode. This mode is designed for automation, scripting, and headless
// environments where no user interaction is expected.
//
// Behavior:
//   - Starts the supervisor, its registry-sync loop, and the frontend listener
//   - Logs startup progress to stdout
//   - Blocks waiting for interrupt signals (SIGINT, SIGTERM)
//   - Performs graceful shutdown when signaled
//   - Suitable for systemd services, run in a container
//
// Signal Handling:
//   - SIGINT (Ctrl+C): Triggers graceful shutdown
//   - SIGTERM: Triggers graceful shutdown
func runOrchestrator(ctx context.Context, services *Services) error {
	logging.Info("CLI", "--- Starting mcprouter services ---")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- services.Run(runCtx)
	}()

	logging.Info("CLI", "Services started. Press Ctrl+C to stop all services and exit.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigChan:
		logging.Info("CLI", "--- Shutting down services ---")
		cancel()
		runErr = <-errCh
	case <-ctx.Done():
		logging.Info("CLI", "--- Shutting down services ---")
		runErr = <-errCh
	case runErr = <-errCh:
		if runErr != nil {
			logging.Error("CLI", runErr, "Service run loop exited unexpectedly")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := services.Shutdown(shutdownCtx); err != nil {
		logging.Error("CLI", err, "Error during shutdown")
		return err
	}

	return runErr
}
