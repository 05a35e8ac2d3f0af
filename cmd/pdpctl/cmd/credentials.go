package cmd

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/credential"
)

var (
	injectReq      credential.InjectRequest
	injectMetadata []string
	clearCacheName string
)

var credentialsCmd = &cobra.Command{
	Use:     "credentials",
	Aliases: []string{"creds"},
	Short:   "Inspect the credential broker",
}

var credentialsTestCmd = &cobra.Command{
	Use:   "test <service>",
	Short: "Resolve a credential without revealing values",
	Long: `Run selection, lookup and mapping for a service. Values are redacted.

Examples:
  pdpctl credentials test github --tenant work --identity alice
  pdpctl credentials test calendar --meta calendar=shared`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := injectReq
		req.Service = args[0]
		meta, err := parseMetadata(injectMetadata)
		if err != nil {
			return err
		}
		req.Metadata = meta

		inj, err := newClient().TestInjection(cmd.Context(), req)
		if err != nil {
			return err
		}
		if done, err := printJSON(inj); done {
			return err
		}
		fmt.Fprintf(out, "Credential: %s\n", inj.Credential)
		fmt.Fprintf(out, "Kind:       %s\n", inj.Kind)
		fmt.Fprintf(out, "Expires:    %s\n", inj.ExpiresAt.Format("2006-01-02 15:04:05"))
		keys := make([]string, 0, len(inj.Values))
		for k := range inj.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TARGET\tVALUE")
		for _, k := range keys {
			fmt.Fprintf(w, "%s\t%s\n", k, dimFmt(inj.Values[k]))
		}
		return w.Flush()
	},
}

var credentialsClearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Drop cached credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := newClient().ClearCredentialCache(cmd.Context(), clearCacheName)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %d cached credentials\n", okFmt("Cleared"), n)
		return nil
	},
}

func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid metadata %q, want key=value", p)
		}
		meta[k] = v
	}
	return meta, nil
}

func init() {
	credentialsTestCmd.Flags().StringVar(&injectReq.Operation, "operation", "", "Operation name")
	credentialsTestCmd.Flags().StringVar(&injectReq.Tenant, "tenant", "", "Tenant")
	credentialsTestCmd.Flags().StringVar(&injectReq.Identity, "identity", "", "Caller identity")
	credentialsTestCmd.Flags().StringVar(&injectReq.Credential, "credential", "", "Skip selection and use this credential")
	credentialsTestCmd.Flags().StringArrayVar(&injectMetadata, "meta", nil, "Request metadata as key=value (repeatable)")
	credentialsClearCacheCmd.Flags().StringVar(&clearCacheName, "name", "", "Only clear this credential")

	credentialsCmd.AddCommand(credentialsTestCmd, credentialsClearCacheCmd)
	rootCmd.AddCommand(credentialsCmd)
}
