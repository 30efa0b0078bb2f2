package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/prototypedave/hybridTool/internal/database"
	"github.com/prototypedave/hybridTool/internal/model"
	"github.com/prototypedave/hybridTool/internal/report"
)

// NewReportCmd creates the report subcommand.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <url> [url...]",
		Short: "Print the stored report of one or more targets",
		Long: `Print the latest stored results of one or more targets without scanning.

The report combines the latest performance, ping, traceroute and security
results with the most recent job of the target. Kinds whose last attempt
failed are listed with their error.`,
		Example: `  hybridscan report https://example.com
  hybridscan report --json https://example.com https://example.org`,
		Args: cobra.MinimumNArgs(1),
		RunE: runReport,
	}
	addReportFlags(cmd)
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg, os.Stderr)

	targets := make([]model.Target, len(args))
	for i, arg := range args {
		if targets[i], err = model.NewTarget(arg); err != nil {
			return err
		}
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	w, closeFn, err := newReportWriter(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var missing []string
	for _, target := range targets {
		summary, err := report.Load(ctx, db, target.String(), time.Now())
		if errors.Is(err, model.ErrNotFound) {
			logger.Warn("no stored results", "target", target.String())
			missing = append(missing, target.String())
			continue
		}
		if err != nil {
			_ = closeFn()
			return err
		}
		if jobs, err := db.ListJobsForTarget(ctx, target.String(), 1); err == nil && len(jobs) > 0 {
			summary.Job = jobs[0]
		}
		if _, err := w.Write(summary); err != nil {
			_ = closeFn()
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	if err := closeFn(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	if len(missing) == len(targets) {
		return fmt.Errorf("%w: no stored results for %v", model.ErrNotFound, missing)
	}
	return nil
}
