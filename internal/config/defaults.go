package config

import "time"

// GetDefaultConfig returns the configuration used when no config.yaml is
// found or a value is left unset.
func GetDefaultConfig() RouterConfig {
	return RouterConfig{
		HTTP: HTTPConfig{
			Port:           8090,
			AllowedOrigins: []string{"*"},
			RateLimit: HTTPRateLimit{
				Global: RateLimitRule{RequestsPerSecond: 200, Burst: 400},
				MCP:    RateLimitRule{RequestsPerSecond: 20, Burst: 40},
			},
			MaxBodyBytes: 1 << 20, // 1 MiB
		},
		Database: DatabaseConfig{
			Path: "mcprouter.db",
		},
		Supervisor: SupervisorConfig{
			MaxRestarts:       5,
			RestartWindow:     10 * time.Minute,
			InitialBackoff:    30 * time.Second,
			BackoffMultiplier: 2.0,
			MaxBackoff:        30 * time.Minute,
			HeartbeatInterval: 30 * time.Second,
		},
		Approval: ApprovalConfig{
			DefaultTimeoutMs: 5 * 60 * 1000,
		},
		Aggregator: AggregatorConfig{
			ToolPrefix: "x",
			CacheTTLMs: 5 * 60 * 1000,
		},
		LogLevel: "info",
	}
}
