package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/prototypedave/hybridTool/internal/database"
	"github.com/prototypedave/hybridTool/internal/model"
)

// NewJobsCmd creates the jobs subcommand.
func NewJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs [url]",
		Short: "List scanned targets or the job history of a target",
		Long: `List scanned targets or the job history of a target.

Without arguments, every target ever submitted is listed together with a
count of jobs per status. With a URL, the most recent jobs of that target
are listed, newest first.`,
		Example: `  # Targets and job counts
  hybridscan jobs

  # Last 5 jobs of a target
  hybridscan jobs --limit 5 https://example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runJobs,
	}
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of jobs to list")
	return cmd
}

func runJobs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	logger := setupLogger(cfg, os.Stderr)

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return listTargets(cmd.Context(), out, db)
	}
	target, err := model.NewTarget(args[0])
	if err != nil {
		return err
	}
	return listJobHistory(cmd.Context(), out, db, target.String(), limit)
}

func listTargets(ctx context.Context, out io.Writer, db *database.DB) error {
	targets, err := db.ListTargets(ctx)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Fprintln(out, "No targets have been scanned yet.")
		return nil
	}

	counts, err := db.CountJobs(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Scanned targets (%d):\n\n", len(targets))
	for _, target := range targets {
		fmt.Fprintf(out, "  • %s\n", target)
	}
	fmt.Fprintf(out, "\nJobs: %s\n", formatStatusCounts(counts))
	return nil
}

func listJobHistory(ctx context.Context, out io.Writer, db *database.DB, target string, limit int) error {
	jobs, err := db.ListJobsForTarget(ctx, target, limit)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintf(out, "No job history found for %s\n", target)
		return nil
	}

	fmt.Fprintf(out, "Job history for %s (%d jobs):\n\n", target, len(jobs))
	fmt.Fprintf(out, "  %-42s  %-20s  %-10s  %s\n", "ID", "Submitted", "Status", "Duration")
	fmt.Fprintf(out, "  %s\n", strings.Repeat("-", 90))
	for _, job := range jobs {
		fmt.Fprintf(out, "  %-42s  %-20s  %-10s  %s\n",
			job.ID,
			job.SubmittedAt.Local().Format("2006-01-02 15:04:05"),
			job.Status,
			formatJobDuration(job),
		)
		if job.Error != "" {
			fmt.Fprintf(out, "  %-42s  %s\n", "", truncate(job.Error, 70))
		}
	}
	return nil
}

// formatStatusCounts renders counts in lifecycle order, skipping zeros.
func formatStatusCounts(counts map[model.JobStatus]int) string {
	order := []model.JobStatus{model.JobPending, model.JobRunning, model.JobDone, model.JobFailed}
	parts := make([]string, 0, len(order))
	for _, status := range order {
		if n := counts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", status, n))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func formatJobDuration(job *model.Job) string {
	if job.StartedAt == nil || job.FinishedAt == nil {
		return "-"
	}
	return job.FinishedAt.Sub(*job.StartedAt).Round(time.Second).String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
