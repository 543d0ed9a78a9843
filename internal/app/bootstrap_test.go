package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Note: NewApplication also runs config.LoadConfig when cfg.ConfigPath is
// empty and RouterConfig is nil, which reads the real user/project config
// directories. These tests pre-populate RouterConfig to avoid that.

func TestNewApplication_ConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		debug bool
	}{
		{name: "debug enabled", debug: true},
		{name: "debug disabled", debug: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Debug: tt.debug, RouterConfig: testRouterConfig(t)}

			application, err := NewApplication(cfg)
			require.NoError(t, err)
			require.NotNil(t, application)
			t.Cleanup(func() { _ = application.services.Store.Close() })

			if application.config.Debug != tt.debug {
				t.Errorf("Debug = %v, want %v", application.config.Debug, tt.debug)
			}
		})
	}
}

func TestApplication_Structure(t *testing.T) {
	cfg := &Config{Debug: true, RouterConfig: testRouterConfig(t)}
	services, err := InitializeServices(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = services.Store.Close() })

	application := &Application{config: cfg, services: services}

	if application.config != cfg {
		t.Error("Application config not set correctly")
	}
	if application.services != services {
		t.Error("Application services not set correctly")
	}
}
