package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestRunOrchestrator_GracefulShutdownOnContextCancel verifies that
// runOrchestrator returns once its context is cancelled, without requiring an
// OS signal, and that Shutdown runs without error.
func TestRunOrchestrator_GracefulShutdownOnContextCancel(t *testing.T) {
	cfg := &Config{RouterConfig: testRouterConfig(t)}
	services, err := InitializeServices(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runOrchestrator(ctx, services) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runOrchestrator did not return after context cancellation")
	}
}
