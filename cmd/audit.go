package cmd

import (
	"fmt"
	"os"
	"time"

	"mcprouter/internal/cli"

	"github.com/spf13/cobra"
)

var (
	auditConfigPath string
	auditOutput     string
	auditLimit      int
)

var auditCmd = &cobra.Command{
	Use:               "audit",
	Short:             "Inspect the append-only audit log",
	PersistentPreRunE: checkOutputFormat(&auditOutput),
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show the most recent audit events",
	Args:  cobra.NoArgs,
	RunE:  runAuditTail,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.PersistentFlags().StringVar(&auditConfigPath, "config-path", "", "Custom configuration directory path")
	auditCmd.PersistentFlags().StringVarP(&auditOutput, "output", "o", "table", "Output format (table, json, yaml)")

	auditTailCmd.Flags().IntVarP(&auditLimit, "limit", "n", 50, "Number of events to show, most recent first")

	auditCmd.AddCommand(auditTailCmd)
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	st, err := openStoreFromConfig(auditConfigPath)
	if err != nil {
		return err
	}
	defer st.Close()

	events, err := st.ListAuditEvents(cmd.Context(), auditLimit)
	if err != nil {
		return fmt.Errorf("list audit events: %w", err)
	}

	switch cli.OutputFormat(auditOutput) {
	case cli.OutputFormatJSON:
		return printJSON(events)
	case cli.OutputFormatYAML:
		return printYAML(events)
	default:
		w := cli.NewPlainTableWriter(os.Stdout)
		w.SetHeaders([]string{"timestamp", "type", "client-id", "server-id", "tool", "success", "duration-ms"})
		for _, e := range events {
			w.AppendRow([]string{
				e.Timestamp.Format(time.RFC3339), string(e.Type), e.ClientID, e.ServerID, e.ToolName,
				fmt.Sprintf("%v", e.Success), fmt.Sprintf("%d", e.DurationMs),
			})
		}
		w.Render()
		return nil
	}
}
