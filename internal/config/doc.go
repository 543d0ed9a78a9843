// Package config provides configuration loading for mcprouter.
//
// Configuration is a single config.yaml, resolved in order: the
// MCPROUTER_CONFIG environment variable, ./.mcprouter/config.yaml in the
// current directory, then ~/.config/mcprouter/config.yaml. Any value left
// unset in the file falls back to GetDefaultConfig.
//
// The file covers only process-wide, ambient settings: the HTTP listener and
// its rate limits, the SQLite database path, supervisor backoff tuning,
// approval timeout, and the aggregator's capability-cache TTL. Servers,
// tokens, and policies are runtime state owned by internal/store, not
// config.yaml — they're managed through the CLI or the frontend API, not by
// editing and reloading this file.
package config
