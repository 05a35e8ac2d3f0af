// Package cmd implements the pdpctl CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time
	Version = "0.1.0"

	serverURL    string
	token        string
	outputFormat string

	out io.Writer = os.Stdout
)

var (
	okFmt   = color.New(color.FgGreen).SprintFunc()
	warnFmt = color.New(color.FgYellow).SprintFunc()
	errFmt  = color.New(color.FgRed, color.Bold).SprintFunc()
	dimFmt  = color.New(color.Faint).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "pdpctl",
	Short: "Operator CLI for the tool-call policy decision point",
	Long: `pdpctl talks to the PDP management API.

It lists and decides pending approvals, inspects execution results,
tests credential injection and shows the current policy snapshot.`,
	Version:      Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", envOr("PDPCTL_SERVER", "http://localhost:8080"), "PDP base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("PDPCTL_TOKEN"), "Bearer token")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func newClient() *Client {
	return NewClient(serverURL, token)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// printJSON writes data when --output json is set and reports whether it did.
func printJSON(data any) (bool, error) {
	if outputFormat != "json" {
		return false, nil
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return true, encoder.Encode(data)
}

func statusColor(status string) string {
	switch status {
	case "approved", "completed":
		return okFmt(status)
	case "pending", "queued", "in_flight":
		return warnFmt(status)
	case "denied", "failed":
		return errFmt(status)
	default:
		return fmt.Sprint(status)
	}
}
