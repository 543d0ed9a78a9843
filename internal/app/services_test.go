package app

import (
	"path/filepath"
	"testing"

	"mcprouter/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouterConfig(t *testing.T) *config.RouterConfig {
	t.Helper()
	rc := config.GetDefaultConfig()
	rc.Database.Path = filepath.Join(t.TempDir(), "mcprouter.db")
	rc.HTTP.Port = 0
	return &rc
}

func TestInitializeServices(t *testing.T) {
	cfg := &Config{Debug: true, RouterConfig: testRouterConfig(t)}

	services, err := InitializeServices(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = services.Store.Close() })

	assert.NotNil(t, services.Store)
	assert.NotNil(t, services.Supervisor)
	assert.NotNil(t, services.Dispatcher)
	assert.NotNil(t, services.Pipeline)
	assert.NotNil(t, services.Frontend)
}

func TestInitializeServices_RegistersPersistedServers(t *testing.T) {
	cfg := &Config{RouterConfig: testRouterConfig(t)}

	services, err := InitializeServices(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = services.Store.Close() })

	// A freshly opened store has no persisted servers, so the supervisor
	// starts with nothing registered.
	assert.Empty(t, services.Supervisor.All())
}

func TestInitializeServices_YoloWiresPipelineBypass(t *testing.T) {
	cfg := &Config{Yolo: true, RouterConfig: testRouterConfig(t)}

	services, err := InitializeServices(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = services.Store.Close() })

	assert.NotNil(t, services.Pipeline)
}
