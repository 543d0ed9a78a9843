package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mcprouter/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/mcprouter"
	configFileName = "config.yaml"
	configPathEnv  = "MCPROUTER_CONFIG"
)

// GetDefaultConfigPathOrPanic returns the user config directory
// (~/.config/mcprouter), panicking if the home directory can't be resolved.
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}
	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig resolves a config.yaml by checking, in order: the MCPROUTER_CONFIG
// environment variable, ./.mcprouter/config.yaml in the current directory, and
// the user config directory. Falls back to defaults if none exist.
func LoadConfig() (RouterConfig, error) {
	if envPath := os.Getenv(configPathEnv); envPath != "" {
		return LoadConfigFromPath(filepath.Dir(envPath))
	}

	if wd, err := os.Getwd(); err == nil {
		projectPath := filepath.Join(wd, ".mcprouter")
		if _, err := os.Stat(filepath.Join(projectPath, configFileName)); err == nil {
			return LoadConfigFromPath(projectPath)
		}
	}

	return LoadConfigFromPath(GetDefaultConfigPathOrPanic())
}

// LoadConfigFromPath loads configuration from a single specified directory.
// The directory should contain config.yaml; a missing file yields defaults.
func LoadConfigFromPath(configPath string) (RouterConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	cfg := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return cfg, nil
		}
		return RouterConfig{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RouterConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)

	if cfg.Database.Path == "" {
		cfg.Database.Path = GetDefaultConfig().Database.Path
	}

	return cfg, nil
}
