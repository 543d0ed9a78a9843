package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"mcprouter/internal/cli"
	"mcprouter/internal/config"
	"mcprouter/internal/store"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// checkOutputFormat returns a cobra PersistentPreRunE that rejects an
// unsupported --output value before a command does any store work.
func checkOutputFormat(format *string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return cli.ValidateOutputFormat(*format)
	}
}

// loadRouterConfig loads the router configuration the same way mcprouter
// serve does, so admin commands and the running server agree on which
// store they're pointed at.
func loadRouterConfig(configPath string) (*config.RouterConfig, error) {
	var rc config.RouterConfig
	var err error
	if configPath != "" {
		rc, err = config.LoadConfigFromPath(configPath)
	} else {
		rc, err = config.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return &rc, nil
}

// openStoreFromConfig opens the same SQLite-backed store mcprouter serve
// uses, letting admin commands operate directly on shared durable state
// without a running server or a separate admin API.
func openStoreFromConfig(configPath string) (*store.Store, error) {
	rc, err := loadRouterConfig(configPath)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(rc.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", rc.Database.Path, err)
	}
	return st, nil
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printYAML(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return err
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slugify turns a human-readable name into the namespace slug used in
// exposed tool names (<slug>.<tool>) and resource URIs (mcpr://<slug>/...).
func slugify(name string) string {
	s := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// generateBearerToken returns a new opaque bearer credential. The token's
// own ID is the secret value a client presents — there is no separate
// hash, matching internal/auth.Validator, which looks tokens up by ID.
func generateBearerToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return "mcpr_" + base64.RawURLEncoding.EncodeToString(buf), nil
}
