package cmd

import (
	"fmt"
	"os"
	"strings"

	"mcprouter/internal/cli"
	"mcprouter/internal/store"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	serverConfigPath string
	serverOutput     string
)

var serverCmd = &cobra.Command{
	Use:               "server",
	Short:             "Manage downstream MCP server registrations",
	PersistentPreRunE: checkOutputFormat(&serverOutput),
}

var serverListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered downstream servers",
	Args:    cobra.NoArgs,
	RunE:    runServerList,
}

var serverCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Register a downstream MCP server",
	Args:  cobra.ExactArgs(1),
	RunE:  runServerCreate,
}

var serverDeleteCmd = &cobra.Command{
	Use:     "delete ID",
	Aliases: []string{"rm"},
	Short:   "Remove a downstream server registration",
	Args:    cobra.ExactArgs(1),
	RunE:    runServerDelete,
}

var (
	serverTransport  string
	serverCommand    string
	serverArgs       []string
	serverEnv        []string
	serverURL        string
	serverSlug       string
	serverToolPrefix string
	serverAutoStart  bool
	serverTimeout    int
)

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.PersistentFlags().StringVar(&serverConfigPath, "config-path", "", "Custom configuration directory path")
	serverCmd.PersistentFlags().StringVarP(&serverOutput, "output", "o", "table", "Output format (table, json, yaml)")

	serverCreateCmd.Flags().StringVar(&serverTransport, "transport", "stdio", "Transport: stdio, sse, or http")
	serverCreateCmd.Flags().StringVar(&serverCommand, "command", "", "Command to run (stdio transport)")
	serverCreateCmd.Flags().StringArrayVar(&serverArgs, "arg", nil, "Command argument (repeatable)")
	serverCreateCmd.Flags().StringArrayVar(&serverEnv, "env", nil, "Environment variable KEY=VALUE (repeatable)")
	serverCreateCmd.Flags().StringVar(&serverURL, "url", "", "Server URL (sse/http transport)")
	serverCreateCmd.Flags().StringVar(&serverSlug, "slug", "", "Namespace slug exposed to clients (defaults to a slugified name)")
	serverCreateCmd.Flags().StringVar(&serverToolPrefix, "tool-prefix", "", "Override the slug used in exposed tool/resource names")
	serverCreateCmd.Flags().BoolVar(&serverAutoStart, "auto-start", true, "Start this server automatically when mcprouter serve starts")
	serverCreateCmd.Flags().IntVar(&serverTimeout, "timeout", 30, "Per-call timeout in seconds")

	serverCmd.AddCommand(serverListCmd, serverCreateCmd, serverDeleteCmd)
}

func runServerList(cmd *cobra.Command, args []string) error {
	st, err := openStoreFromConfig(serverConfigPath)
	if err != nil {
		return err
	}
	defer st.Close()

	servers, err := st.ListServers(cmd.Context())
	if err != nil {
		return fmt.Errorf("list servers: %w", err)
	}

	switch cli.OutputFormat(serverOutput) {
	case cli.OutputFormatJSON:
		return printJSON(servers)
	case cli.OutputFormatYAML:
		return printYAML(servers)
	default:
		w := cli.NewPlainTableWriter(os.Stdout)
		w.SetHeaders([]string{"id", "name", "slug", "transport", "status", "auto-start"})
		for _, s := range servers {
			w.AppendRow([]string{s.ID, s.Name, s.Slug, string(s.Transport), string(s.Status), fmt.Sprintf("%v", s.AutoStart)})
		}
		w.Render()
		return nil
	}
}

func runServerCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	slug := serverSlug
	if slug == "" {
		slug = slugify(name)
	}
	toolPrefix := serverToolPrefix
	if toolPrefix == "" {
		toolPrefix = slug
	}

	transport := store.Transport(serverTransport)
	switch transport {
	case store.TransportStdio:
		if serverCommand == "" {
			return fmt.Errorf("--command is required for stdio transport")
		}
	case store.TransportSSE, store.TransportHTTP:
		if serverURL == "" {
			return fmt.Errorf("--url is required for %s transport", transport)
		}
	default:
		return fmt.Errorf("unknown transport %q (want stdio, sse, or http)", serverTransport)
	}

	env := make(map[string]string, len(serverEnv))
	for _, kv := range serverEnv {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --env value %q (want KEY=VALUE)", kv)
		}
		env[k] = v
	}

	st, err := openStoreFromConfig(serverConfigPath)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := &store.Server{
		ID:             uuid.NewString(),
		Name:           name,
		Slug:           slug,
		Transport:      transport,
		Command:        serverCommand,
		Args:           serverArgs,
		Env:            env,
		URL:            serverURL,
		TimeoutSeconds: serverTimeout,
		ToolPrefix:     toolPrefix,
		AutoStart:      serverAutoStart,
	}
	if err := st.CreateServer(cmd.Context(), srv); err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("registered server %s (id=%s, slug=%s)", srv.Name, srv.ID, srv.Slug)))
	return nil
}

func runServerDelete(cmd *cobra.Command, args []string) error {
	st, err := openStoreFromConfig(serverConfigPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteServer(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("delete server: %w", err)
	}
	fmt.Println(cli.FormatSuccess("server removed: " + args[0]))
	return nil
}
