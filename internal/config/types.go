package config

import "time"

// RouterConfig is the top-level configuration structure for mcprouter.
type RouterConfig struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Approval   ApprovalConfig   `yaml:"approval"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	LogLevel   string           `yaml:"logLevel,omitempty"`
}

// HTTPConfig controls the client-facing MCP/JSON-RPC surface.
type HTTPConfig struct {
	Port           int           `yaml:"port,omitempty"`
	AllowedOrigins []string      `yaml:"allowedOrigins,omitempty"`
	RateLimit      HTTPRateLimit `yaml:"rateLimit"`
	MaxBodyBytes   int64         `yaml:"maxBodyBytes,omitempty"`
}

// HTTPRateLimit configures two token-bucket rules: Global, enforced by the
// frontend middleware with one bucket per bearer token (or remote address
// when there is none), and MCP, the pipeline's default rule, with one bucket
// per client and downstream server.
type HTTPRateLimit struct {
	Global RateLimitRule `yaml:"global"`
	MCP    RateLimitRule `yaml:"mcp"`
}

// RateLimitRule describes a token-bucket rate: RequestsPerSecond tokens are
// added per second, up to Burst tokens held in the bucket.
type RateLimitRule struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond,omitempty"`
	Burst             int     `yaml:"burst,omitempty"`
}

// DatabaseConfig points at the SQLite database backing the store.
type DatabaseConfig struct {
	Path string `yaml:"path,omitempty"`
}

// SupervisorConfig tunes downstream MCP server process/connection supervision.
type SupervisorConfig struct {
	MaxRestarts       int           `yaml:"maxRestarts,omitempty"`
	RestartWindow     time.Duration `yaml:"restartWindow,omitempty"`
	InitialBackoff    time.Duration `yaml:"initialBackoff,omitempty"`
	BackoffMultiplier float64       `yaml:"backoffMultiplier,omitempty"`
	MaxBackoff        time.Duration `yaml:"maxBackoff,omitempty"`
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval,omitempty"`
}

// ApprovalConfig tunes the human-in-the-loop approval queue.
type ApprovalConfig struct {
	DefaultTimeoutMs int `yaml:"defaultTimeoutMs,omitempty"`
}

// AggregatorConfig tunes the tool/resource/prompt capability cache that backs
// namespaced dispatch across downstream servers.
type AggregatorConfig struct {
	ToolPrefix string `yaml:"toolPrefix,omitempty"`
	CacheTTLMs int    `yaml:"cacheTtlMs,omitempty"`
}

// Transport name constants used while parsing config-provided defaults (CLI
// flags, server-create requests) before a store.Server is constructed.
// store.Transport is the canonical type once a server descriptor is loaded.
const (
	TransportStdio          = "stdio"
	TransportSSE            = "sse"
	TransportStreamableHTTP = "http"
)
