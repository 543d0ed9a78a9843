package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadConfigFromPathMissingFileReturnsDefaults(t *testing.T) {
	tempDir := t.TempDir()

	cfg, err := LoadConfigFromPath(tempDir)
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
}

func TestLoadConfigFromPathOverridesDefaults(t *testing.T) {
	tempDir := t.TempDir()

	override := RouterConfig{
		HTTP: HTTPConfig{
			Port:           9999,
			AllowedOrigins: []string{"https://example.com"},
		},
		Database: DatabaseConfig{Path: "/var/lib/mcprouter/custom.db"},
		LogLevel: "debug",
	}
	data, err := yaml.Marshal(override)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, configFileName), data, 0644))

	cfg, err := LoadConfigFromPath(tempDir)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.HTTP.Port)
	assert.Equal(t, []string{"https://example.com"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "/var/lib/mcprouter/custom.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigFromPathMalformedYAMLErrors(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, configFileName), []byte("http: [this is not a map"), 0644))

	_, err := LoadConfigFromPath(tempDir)
	assert.Error(t, err)
}

func TestGetDefaultConfigPathOrPanicJoinsUserConfigDir(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".config", "mcprouter"), GetDefaultConfigPathOrPanic())
}
