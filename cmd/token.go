package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"mcprouter/internal/cli"
	"mcprouter/internal/store"

	"github.com/spf13/cobra"
)

var (
	tokenConfigPath string
	tokenOutput     string
)

var tokenCmd = &cobra.Command{
	Use:               "token",
	Short:             "Manage client bearer tokens",
	PersistentPreRunE: checkOutputFormat(&tokenOutput),
}

var tokenCreateCmd = &cobra.Command{
	Use:   "create CLIENT_ID",
	Short: "Issue a new bearer token for a client",
	Long: `Issues a new opaque bearer token scoped to the given servers and prints it
once. mcprouter stores only the token's identity, not a separate secret — the
printed value is the credential; it cannot be recovered later, only revoked
and reissued.`,
	Args: cobra.ExactArgs(1),
	RunE: runTokenCreate,
}

var tokenListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List issued tokens",
	Args:    cobra.NoArgs,
	RunE:    runTokenList,
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke ID",
	Short: "Revoke a token immediately",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenRevoke,
}

var (
	tokenName    string
	tokenServers []string
	tokenScopes  []string
	tokenTTL     time.Duration
	tokenFilter  string
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.PersistentFlags().StringVar(&tokenConfigPath, "config-path", "", "Custom configuration directory path")
	tokenCmd.PersistentFlags().StringVarP(&tokenOutput, "output", "o", "table", "Output format (table, json, yaml)")

	tokenCreateCmd.Flags().StringVar(&tokenName, "name", "", "Human-readable label for this token")
	tokenCreateCmd.Flags().StringArrayVar(&tokenServers, "server", nil, "Server ID this token may call (repeatable; omit for no server access)")
	tokenCreateCmd.Flags().StringArrayVar(&tokenScopes, "scope", nil, "Scope granted to this token (repeatable)")
	tokenCreateCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Expire the token after this duration (0 = never expires)")

	tokenListCmd.Flags().StringVar(&tokenFilter, "client-id", "", "Only list tokens for this client")

	tokenCmd.AddCommand(tokenCreateCmd, tokenListCmd, tokenRevokeCmd)
}

func runTokenCreate(cmd *cobra.Command, args []string) error {
	clientID := args[0]

	secret, err := generateBearerToken()
	if err != nil {
		return err
	}

	access := make(map[string]bool, len(tokenServers))
	for _, serverID := range tokenServers {
		access[serverID] = true
	}

	var expiresAt *time.Time
	if tokenTTL > 0 {
		t := time.Now().Add(tokenTTL)
		expiresAt = &t
	}

	st, err := openStoreFromConfig(tokenConfigPath)
	if err != nil {
		return err
	}
	defer st.Close()

	tok := &store.Token{
		ID:           secret,
		ClientID:     clientID,
		Name:         tokenName,
		ExpiresAt:    expiresAt,
		Scopes:       tokenScopes,
		ServerAccess: access,
	}
	if err := st.CreateToken(cmd.Context(), tok); err != nil {
		return fmt.Errorf("create token: %w", err)
	}

	fmt.Println(cli.FormatSuccess("token created — store it now, it will not be shown again:"))
	fmt.Println(secret)
	return nil
}

func runTokenList(cmd *cobra.Command, args []string) error {
	st, err := openStoreFromConfig(tokenConfigPath)
	if err != nil {
		return err
	}
	defer st.Close()

	tokens, err := st.ListTokens(cmd.Context(), tokenFilter)
	if err != nil {
		return fmt.Errorf("list tokens: %w", err)
	}

	switch cli.OutputFormat(tokenOutput) {
	case cli.OutputFormatJSON:
		return printJSON(tokens)
	case cli.OutputFormatYAML:
		return printYAML(tokens)
	default:
		w := cli.NewPlainTableWriter(os.Stdout)
		w.SetHeaders([]string{"id", "client-id", "name", "scopes", "revoked", "expires-at"})
		for _, t := range tokens {
			expires := "never"
			if t.ExpiresAt != nil {
				expires = t.ExpiresAt.Format(time.RFC3339)
			}
			w.AppendRow([]string{maskToken(t.ID), t.ClientID, t.Name, strings.Join(t.Scopes, ","), fmt.Sprintf("%v", t.Revoked), expires})
		}
		w.Render()
		return nil
	}
}

func runTokenRevoke(cmd *cobra.Command, args []string) error {
	st, err := openStoreFromConfig(tokenConfigPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.RevokeToken(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	fmt.Println(cli.FormatSuccess("token revoked: " + maskToken(args[0])))
	return nil
}

// maskToken avoids echoing a live bearer credential back to a terminal or
// log once it has already been issued.
func maskToken(id string) string {
	if len(id) <= 12 {
		return strings.Repeat("*", len(id))
	}
	return id[:8] + "…" + id[len(id)-4:]
}
