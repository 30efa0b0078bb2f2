package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/prototypedave/hybridTool/internal/config"
	"github.com/prototypedave/hybridTool/internal/model"
	"github.com/prototypedave/hybridTool/internal/queue"
	"github.com/prototypedave/hybridTool/internal/report"
	"github.com/prototypedave/hybridTool/internal/scan"
)

// NewScanCmd creates the scan subcommand.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <url> [url...]",
		Short: "Audit one or more websites and print the report",
		Long: `Audit one or more websites and print the report.

Every URL is submitted as a job and the jobs run one after another in this
process. Only these jobs are run; other pending jobs in the database are
left to the server. When a server already holds the worker lease on the
same database, it runs the jobs and this command waits for them. When all
jobs have finished, the stored report of each target is printed.

Exit status is non-zero when a URL is invalid or a job failed.`,
		Example: `  # Full audit
  hybridscan scan https://example.com

  # Only the network probe, as JSON
  hybridscan scan --probe network --json https://example.com

  # Mobile performance audit written to a Markdown file
  hybridscan scan --probe performance --form-factor mobile -m -o out/report.md https://example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: runScan,
	}

	cmd.Flags().StringSlice("probe", nil,
		"Probes to run: performance, network, security (default: all)")
	cmd.Flags().StringSlice("form-factor", nil,
		"Lighthouse form factors: mobile, desktop (default: both)")
	cmd.Flags().Duration("job-timeout", config.DefaultJobTimeout, "Deadline of a single job")
	addReportFlags(cmd)

	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := optionsFromFlags(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger, queue.WithoutBacklog())
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	subs := make([]scan.Submission, len(args))
	for i, arg := range args {
		subs[i] = scan.Submission{URL: arg, Options: opts}
	}
	accepted, err := a.coordinator.SubmitBatch(ctx, subs)
	if err != nil {
		return err
	}

	if err := a.queue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start job queue: %w", err)
	}

	ids := make([]string, len(accepted))
	for i, acc := range accepted {
		ids[i] = acc.ID
		logger.Info("scan submitted", "url", acc.URL, "job", acc.ID, "created", acc.Created)
		if err := enqueueExisting(ctx, a, acc.ID); err != nil {
			return err
		}
	}
	if a.queue.Stats().Standby {
		logger.Info("another process holds the worker lease, waiting for it to run the jobs")
	}
	if err := a.queue.Wait(ctx, ids...); err != nil {
		if ctx.Err() != nil {
			logger.Warn("scan interrupted by signal")
		}
		return err
	}

	return outputReports(ctx, cmd, cfg, a, ids)
}

// enqueueExisting queues a job that was already stored for the target
// before this scan, so it runs here even without a server. New jobs are
// queued by the coordinator and ignored as duplicates.
func enqueueExisting(ctx context.Context, a *app, id string) error {
	job, err := a.db.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status == model.JobPending {
		a.queue.Enqueue(job)
	}
	return nil
}

// outputReports prints the stored report of every job's target and
// returns an error when any of the jobs failed.
func outputReports(ctx context.Context, cmd *cobra.Command, cfg *config.Config, a *app, ids []string) error {
	w, closeFn, err := newReportWriter(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	var failed []error
	for _, id := range ids {
		job, err := a.db.GetJob(ctx, id)
		if err != nil {
			_ = closeFn()
			return err
		}
		if job.Status == model.JobFailed {
			failed = append(failed, fmt.Errorf("job %s for %s failed: %s", job.ID, job.Target, job.Error))
		}

		summary, err := report.Load(ctx, a.db, job.Target, time.Now())
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			_ = closeFn()
			return err
		}
		summary.Job = job
		if _, err := w.Write(summary); err != nil {
			_ = closeFn()
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	if err := closeFn(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	if cfg.ReportFile != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Report saved to: %s\n", cfg.ReportFile)
	}
	return errors.Join(failed...)
}

// optionsFromFlags builds and validates the job options of the scan flags.
func optionsFromFlags(cmd *cobra.Command) (model.Options, error) {
	probes, err := cmd.Flags().GetStringSlice("probe")
	if err != nil {
		return model.Options{}, err
	}
	formFactors, err := cmd.Flags().GetStringSlice("form-factor")
	if err != nil {
		return model.Options{}, err
	}

	var opts model.Options
	for _, p := range probes {
		opts.Probes = append(opts.Probes, model.ProbeKind(p))
	}
	for _, f := range formFactors {
		opts.FormFactors = append(opts.FormFactors, model.FormFactor(f))
	}
	return opts.Normalize()
}
