package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/prototypedave/hybridTool/internal/api"
	"github.com/prototypedave/hybridTool/internal/config"
	"github.com/prototypedave/hybridTool/internal/queue"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the job worker and the rescan scheduler",
		Long: `Run the HTTP API, the job worker and the rescan scheduler.

Jobs left pending or running by a previous process are picked up again on
start. On SIGINT or SIGTERM the API stops accepting requests, the running
job is cancelled and put back to pending, and the browser is closed.

The PORT environment variable replaces the port of the default listen
address, as expected by most container platforms.`,
		Example: `  # Listen on the default address
  hybridscan serve

  # Listen on a specific address and rescan every 6 hours
  hybridscan serve --listen 127.0.0.1:9000 --rescan-interval 6h`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddress, "HTTP listen address")
	cmd.Flags().Duration("rescan-interval", config.DefaultRescanInterval,
		"Interval between rescans of known targets (0 disables the scheduler)")
	cmd.Flags().Duration("job-timeout", config.DefaultJobTimeout, "Deadline of a single job")
	cmd.Flags().Bool("json-logs", false, "Write logs as JSON")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}
	logger := setupLogger(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	srv, err := a.newServer()
	if err != nil {
		return err
	}
	addr := api.ResolveAddress(cfg.ListenAddress, config.DefaultListenAddress, os.Getenv("PORT"))

	logger.Info("starting hybridscan",
		"version", getVersion(),
		"address", addr,
		"database", a.db.Path(),
		"rescan_interval", cfg.RescanInterval,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.queue.Start(gctx); err != nil && !errors.Is(err, queue.ErrStopped) {
			return fmt.Errorf("failed to start job queue: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		a.scheduler.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return srv.ListenAndServe(gctx, addr)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("hybridscan stopped")
	return nil
}

// applyServeFlags overlays the serve flags the user set onto cfg.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error
	if flags.Changed("listen") {
		if cfg.ListenAddress, err = flags.GetString("listen"); err != nil {
			return err
		}
	}
	if flags.Changed("rescan-interval") {
		if cfg.RescanInterval, err = flags.GetDuration("rescan-interval"); err != nil {
			return err
		}
		if cfg.RescanInterval < 0 {
			return config.ErrInvalidRescanInterval
		}
	}
	if flags.Changed("json-logs") {
		if cfg.JSONLogs, err = flags.GetBool("json-logs"); err != nil {
			return err
		}
	}
	return nil
}
