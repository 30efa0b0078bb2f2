package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/prototypedave/hybridTool/internal/config"
	"github.com/prototypedave/hybridTool/internal/log"
	"github.com/prototypedave/hybridTool/internal/report"
)

// loadConfig builds the configuration from defaults, the config file and
// the flags the user actually set. Unset flags never override the file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.Verbose, err = getVerboseFlag(cmd); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("job-timeout") != nil && flags.Changed("job-timeout") {
		if cfg.JobTimeout, err = flags.GetDuration("job-timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("json") != nil {
		if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("markdown") != nil {
		if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("output") != nil {
		if cfg.ReportFile, err = flags.GetString("output"); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) (bool, error) {
	if f := cmd.Flags().Lookup("verbose"); f != nil {
		return cmd.Flags().GetBool("verbose")
	}
	return cmd.Root().PersistentFlags().GetBool("verbose")
}

// setupLogger creates the secure structured logger for the process.
func setupLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	if cfg.JSONLogs {
		return log.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return log.NewSecureLogger(w, cfg.Verbose)
}

// newReportWriter returns the writer selected by the report flags.
// The returned close function must be called once writing is done.
func newReportWriter(cfg *config.Config, stdout io.Writer) (report.Writer, func() error, error) {
	output := stdout
	closeFn := func() error { return nil }

	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		// Reports may reveal weaknesses of the target, so only the owner can read them.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create output file: %w", err)
		}
		output = f
		closeFn = f.Close
	}

	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion())), closeFn, nil
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output), closeFn, nil
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose)), closeFn, nil
	}
}

// addReportFlags registers the output format flags shared by scan and report.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
}
