package cmd

import (
	"fmt"
	"os"

	"mcprouter/internal/cli"
	"mcprouter/internal/store"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	policyConfigPath string
	policyOutput     string
)

var policyCmd = &cobra.Command{
	Use:               "policy",
	Short:             "Manage access-control policy rules",
	PersistentPreRunE: checkOutputFormat(&policyOutput),
}

var policyListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List policy rules",
	Args:    cobra.NoArgs,
	RunE:    runPolicyList,
}

var policyCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Add a policy rule",
	Long: `Adds a policy rule evaluated against tool/resource/server access. Pattern is a
glob matched against the resource's original (pre-namespacing) name; scope-id
is required unless scope is global.`,
	Args: cobra.ExactArgs(1),
	RunE: runPolicyCreate,
}

var policyDeleteCmd = &cobra.Command{
	Use:     "delete ID",
	Aliases: []string{"rm"},
	Short:   "Remove a policy rule",
	Args:    cobra.ExactArgs(1),
	RunE:    runPolicyDelete,
}

var (
	policyScope        string
	policyScopeID      string
	policyResourceType string
	policyPattern      string
	policyAction       string
	policyPriority     int
	policyDisabled     bool
)

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.PersistentFlags().StringVar(&policyConfigPath, "config-path", "", "Custom configuration directory path")
	policyCmd.PersistentFlags().StringVarP(&policyOutput, "output", "o", "table", "Output format (table, json, yaml)")

	policyCreateCmd.Flags().StringVar(&policyScope, "scope", "global", "Scope: global, workspace, server, or client")
	policyCreateCmd.Flags().StringVar(&policyScopeID, "scope-id", "", "ID the scope applies to (required unless --scope=global)")
	policyCreateCmd.Flags().StringVar(&policyResourceType, "resource-type", "tool", "Resource type: tool, resource, or server")
	policyCreateCmd.Flags().StringVar(&policyPattern, "pattern", "*", "Glob pattern matched against the original resource name")
	policyCreateCmd.Flags().StringVar(&policyAction, "action", "allow", "Action: allow, deny, or require_approval")
	policyCreateCmd.Flags().IntVar(&policyPriority, "priority", 0, "Higher priority rules are evaluated first")
	policyCreateCmd.Flags().BoolVar(&policyDisabled, "disabled", false, "Create the rule disabled")

	policyCmd.AddCommand(policyListCmd, policyCreateCmd, policyDeleteCmd)
}

func runPolicyList(cmd *cobra.Command, args []string) error {
	st, err := openStoreFromConfig(policyConfigPath)
	if err != nil {
		return err
	}
	defer st.Close()

	policies, err := st.ListPolicies(cmd.Context())
	if err != nil {
		return fmt.Errorf("list policies: %w", err)
	}

	switch cli.OutputFormat(policyOutput) {
	case cli.OutputFormatJSON:
		return printJSON(policies)
	case cli.OutputFormatYAML:
		return printYAML(policies)
	default:
		w := cli.NewPlainTableWriter(os.Stdout)
		w.SetHeaders([]string{"id", "name", "scope", "resource-type", "pattern", "action", "priority", "enabled"})
		for _, p := range policies {
			w.AppendRow([]string{
				p.ID, p.Name, string(p.Scope), string(p.ResourceType), p.Pattern,
				string(p.Action), fmt.Sprintf("%d", p.Priority), fmt.Sprintf("%v", p.Enabled),
			})
		}
		w.Render()
		return nil
	}
}

func runPolicyCreate(cmd *cobra.Command, args []string) error {
	scope := store.PolicyScope(policyScope)
	if scope != store.ScopeGlobal && policyScopeID == "" {
		return fmt.Errorf("--scope-id is required for scope %q", policyScope)
	}

	st, err := openStoreFromConfig(policyConfigPath)
	if err != nil {
		return err
	}
	defer st.Close()

	p := &store.Policy{
		ID:           uuid.NewString(),
		Name:         args[0],
		Scope:        scope,
		ScopeID:      policyScopeID,
		ResourceType: store.ResourceType(policyResourceType),
		Pattern:      policyPattern,
		Action:       store.PolicyAction(policyAction),
		Priority:     policyPriority,
		Enabled:      !policyDisabled,
	}
	if err := st.CreatePolicy(cmd.Context(), p); err != nil {
		return fmt.Errorf("create policy: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("policy %s created (id=%s)", p.Name, p.ID)))
	return nil
}

func runPolicyDelete(cmd *cobra.Command, args []string) error {
	st, err := openStoreFromConfig(policyConfigPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeletePolicy(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("delete policy: %w", err)
	}
	fmt.Println(cli.FormatSuccess("policy removed: " + args[0]))
	return nil
}
