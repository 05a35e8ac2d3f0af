package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	approvalStatus string
	approvalLimit  int
	approvalOffset int
	decideReason   string
)

var approvalsCmd = &cobra.Command{
	Use:     "approvals",
	Aliases: []string{"approval"},
	Short:   "Manage human approvals",
}

var approvalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List approvals",
	Long: `List approvals by status.

Examples:
  pdpctl approvals list
  pdpctl approvals list --status all -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := newClient().ListApprovals(cmd.Context(), approvalStatus, approvalLimit, approvalOffset)
		if err != nil {
			return err
		}
		if done, err := printJSON(list); done {
			return err
		}
		if len(list.Approvals) == 0 {
			fmt.Fprintln(out, dimFmt("No approvals."))
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tEXECUTION\tSERVICE\tTOOL\tCALLER\tCREATED")
		for _, a := range list.Approvals {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				a.ApprovalID, statusColor(string(a.Status)), statusColor(string(a.ExecutionStatus)),
				a.ServiceName, a.ToolName, a.CallerIdentity, a.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		w.Flush()
		fmt.Fprintln(out, dimFmt(fmt.Sprintf("%d of %d", len(list.Approvals), list.Total)))
		return nil
	},
}

var approvalsApproveCmd = &cobra.Command{
	Use:   "approve <approval-id>",
	Short: "Approve a pending call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := newClient().Approve(cmd.Context(), args[0], decideReason)
		if err != nil {
			return err
		}
		if done, err := printJSON(rec); done {
			return err
		}
		fmt.Fprintf(out, "%s %s by %s\n", rec.ApprovalID, statusColor(string(rec.Status)), rec.DecidedBy)
		return nil
	},
}

var approvalsDenyCmd = &cobra.Command{
	Use:   "deny <approval-id>",
	Short: "Deny a pending call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := newClient().Deny(cmd.Context(), args[0], decideReason)
		if err != nil {
			return err
		}
		if done, err := printJSON(rec); done {
			return err
		}
		fmt.Fprintf(out, "%s %s by %s\n", rec.ApprovalID, statusColor(string(rec.Status)), rec.DecidedBy)
		return nil
	},
}

var approvalsResultCmd = &cobra.Command{
	Use:   "result <approval-id>",
	Short: "Show the replay result of an approved call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newClient().ExecutionResult(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if done, err := printJSON(res); done {
			return err
		}
		fmt.Fprintf(out, "Execution: %s\n", statusColor(string(res.ExecutionStatus)))
		if res.ExecutedAt != nil {
			fmt.Fprintf(out, "Executed:  %s\n", res.ExecutedAt.Format("2006-01-02 15:04:05"))
		}
		if res.Error != "" {
			fmt.Fprintf(out, "Error:     %s\n", errFmt(res.Error))
		}
		if len(res.Result) > 0 {
			fmt.Fprintf(out, "Result:    %s\n", string(res.Result))
		}
		return nil
	},
}

var approvalsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove resolved approvals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := newClient().ClearResolved(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %d resolved approvals\n", okFmt("Cleared"), n)
		return nil
	},
}

func init() {
	approvalsListCmd.Flags().StringVar(&approvalStatus, "status", "pending", "Status filter: pending, queued, all")
	approvalsListCmd.Flags().IntVar(&approvalLimit, "limit", 50, "Page size")
	approvalsListCmd.Flags().IntVar(&approvalOffset, "offset", 0, "Page offset")
	approvalsApproveCmd.Flags().StringVar(&decideReason, "reason", "", "Reason recorded with the decision")
	approvalsDenyCmd.Flags().StringVar(&decideReason, "reason", "", "Reason recorded with the decision")

	approvalsCmd.AddCommand(approvalsListCmd, approvalsApproveCmd, approvalsDenyCmd, approvalsResultCmd, approvalsClearCmd)
	rootCmd.AddCommand(approvalsCmd)
}
