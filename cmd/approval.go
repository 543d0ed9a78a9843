package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"mcprouter/internal/cli"
	"mcprouter/internal/store"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

var (
	approvalConfigPath string
	approvalOutput     string
)

var approvalCmd = &cobra.Command{
	Use:               "approval",
	Short:             "Manage require_approval tool-call requests",
	PersistentPreRunE: checkOutputFormat(&approvalOutput),
}

var approvalListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List approval requests",
	Args:    cobra.NoArgs,
	RunE:    runApprovalList,
}

var approvalRespondCmd = &cobra.Command{
	Use:   "respond ID",
	Short: "Approve or reject a pending approval request",
	Long: `Resolves a pending approval directly in the store. mcprouter serve polls the
store for external resolutions, so this works from a separate terminal
against the same store file without talking to the running router's
process directly.`,
	Args: cobra.ExactArgs(1),
	RunE: runApprovalRespond,
}

var approvalWaitCmd = &cobra.Command{
	Use:   "wait ID",
	Short: "Block until a pending approval is resolved",
	Args:  cobra.ExactArgs(1),
	RunE:  runApprovalWait,
}

var (
	approvalStatusFilter string
	approvalApprove      bool
	approvalReject       bool
	approvalRespondedBy  string
	approvalNote         string
	approvalWaitTimeout  time.Duration
)

func init() {
	rootCmd.AddCommand(approvalCmd)
	approvalCmd.PersistentFlags().StringVar(&approvalConfigPath, "config-path", "", "Custom configuration directory path")
	approvalCmd.PersistentFlags().StringVarP(&approvalOutput, "output", "o", "table", "Output format (table, json, yaml)")

	approvalListCmd.Flags().StringVar(&approvalStatusFilter, "status", "", "Filter by status: pending, approved, rejected, expired (default: all)")

	approvalRespondCmd.Flags().BoolVar(&approvalApprove, "approve", false, "Approve the request")
	approvalRespondCmd.Flags().BoolVar(&approvalReject, "reject", false, "Reject the request")
	approvalRespondCmd.Flags().StringVar(&approvalRespondedBy, "by", "", "Identity of the responder recorded on the approval")
	approvalRespondCmd.Flags().StringVar(&approvalNote, "note", "", "Optional note recorded with the decision")

	approvalWaitCmd.Flags().DurationVar(&approvalWaitTimeout, "timeout", 5*time.Minute, "Give up waiting after this duration")

	approvalCmd.AddCommand(approvalListCmd, approvalRespondCmd, approvalWaitCmd)
}

func runApprovalList(cmd *cobra.Command, args []string) error {
	st, err := openStoreFromConfig(approvalConfigPath)
	if err != nil {
		return err
	}
	defer st.Close()

	approvals, err := st.ListApprovals(cmd.Context(), store.ApprovalStatus(approvalStatusFilter))
	if err != nil {
		return fmt.Errorf("list approvals: %w", err)
	}

	switch cli.OutputFormat(approvalOutput) {
	case cli.OutputFormatJSON:
		return printJSON(approvals)
	case cli.OutputFormatYAML:
		return printYAML(approvals)
	default:
		w := cli.NewPlainTableWriter(os.Stdout)
		w.SetHeaders([]string{"id", "client-id", "server-id", "tool", "status", "requested-at"})
		for _, a := range approvals {
			w.AppendRow([]string{
				a.ID, a.ClientID, a.ServerID, a.ToolName, string(a.Status), a.RequestedAt.Format(time.RFC3339),
			})
		}
		w.Render()
		return nil
	}
}

func runApprovalRespond(cmd *cobra.Command, args []string) error {
	id := args[0]
	if approvalApprove == approvalReject {
		return fmt.Errorf("specify exactly one of --approve or --reject")
	}

	status := store.ApprovalRejected
	if approvalApprove {
		status = store.ApprovalApproved
	}

	st, err := openStoreFromConfig(approvalConfigPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.ResolveApproval(cmd.Context(), id, status, approvalRespondedBy, approvalNote, time.Now()); err != nil {
		return fmt.Errorf("resolve approval: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("approval %s marked %s", id, status)))
	return nil
}

func runApprovalWait(cmd *cobra.Command, args []string) error {
	id := args[0]

	st, err := openStoreFromConfig(approvalConfigPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), approvalWaitTimeout)
	defer cancel()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" waiting for approval %s to be resolved...", id)
	s.Start()
	defer s.Stop()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		a, err := st.GetApproval(ctx, id)
		if err != nil {
			return fmt.Errorf("get approval: %w", err)
		}
		if a.Status != store.ApprovalPending {
			s.Stop()
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("approval %s resolved: %s", id, a.Status)))
			return nil
		}

		select {
		case <-ctx.Done():
			s.Stop()
			return fmt.Errorf("timed out waiting for approval %s to be resolved", id)
		case <-ticker.C:
		}
	}
}
