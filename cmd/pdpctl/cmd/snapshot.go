package cmd

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Show the current policy snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := newClient().Snapshot(cmd.Context())
		if err != nil {
			return err
		}
		if done, err := printJSON(snap); done {
			return err
		}
		fmt.Fprintf(out, "Revision: %s\n", snap.Revision)
		fmt.Fprintf(out, "Built:    %s\n\n", snap.BuiltAt.Format("2006-01-02 15:04:05"))

		names := make([]string, 0, len(snap.Catalog))
		for name := range snap.Catalog {
			names = append(names, name)
		}
		sort.Strings(names)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SERVICE\tENABLED\tSUSPENDED\tTOOLS")
		for _, name := range names {
			e := snap.Catalog[name]
			fmt.Fprintf(w, "%s\t%t\t%t\t%d\n", name, e.Enabled, e.Suspended, len(e.Tools))
		}
		w.Flush()

		fmt.Fprintf(out, "\nAccess rules: %d\n", len(snap.AccessRules))
		if len(snap.Revocations) > 0 {
			fmt.Fprintf(out, "Revoked:      %s\n", errFmt(strings.Join(snap.Revocations, ", ")))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}
