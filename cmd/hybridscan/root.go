package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for hybridscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hybridscan",
		Short: "Website performance, network and security auditing",
		Long: `hybridscan audits websites and keeps the latest result of every probe.

Each submitted URL becomes a job. Jobs run one at a time and execute three
probes: Lighthouse performance audits (mobile and desktop), ping and
traceroute, and an OWASP ZAP spider plus active scan. Results are stored
per target in a local SQLite database.

Run 'hybridscan serve' for the HTTP API, or 'hybridscan scan' to audit
URLs from the command line.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .hybridscan.yaml in current directory or XDG config directory)")
	cmd.PersistentFlags().String("db-dir", "",
		"Directory of the SQLite database (default: XDG data directory)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewJobsCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
