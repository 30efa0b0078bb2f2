package scheduler

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/prototypedave/hybridTool/internal/model"
)

// Submitter requests a scan of a URL.
type Submitter interface {
	Submit(ctx context.Context, rawURL string, opts model.Options) (string, error)
}

// TargetLister lists every target that was ever submitted.
type TargetLister interface {
	ListTargets(ctx context.Context) ([]string, error)
}

// Scheduler resubmits the configured targets and every stored target on
// a fixed interval. Submission deduplicates per target, so a rescan of a
// target that is still being scanned is a no-op.
type Scheduler struct {
	submitter Submitter
	lister    TargetLister
	targets   []string
	interval  time.Duration
	logger    *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTargets adds URLs that are always rescanned.
func WithTargets(targets ...string) Option {
	return func(s *Scheduler) {
		s.targets = append(s.targets, targets...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// New creates a Scheduler. An interval of zero or less disables it.
func New(submitter Submitter, lister TargetLister, interval time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		submitter: submitter,
		lister:    lister,
		interval:  interval,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether Run does anything.
func (s *Scheduler) Enabled() bool {
	return s.interval > 0
}

// Run resubmits targets every interval until ctx ends.
// The first round runs one interval after Run is called.
func (s *Scheduler) Run(ctx context.Context) {
	if !s.Enabled() {
		s.logger.Debug("rescan scheduler disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("rescan scheduler started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.Warn("rescan round incomplete", "submitted", n, "error", err)
				continue
			}
			s.logger.Info("rescan round finished", "submitted", n)
		}
	}
}

// RunOnce submits every known target once and returns how many
// submissions succeeded. A failing target does not stop the round.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	targets := slices.Clone(s.targets)

	stored, listErr := s.lister.ListTargets(ctx)
	if listErr != nil {
		s.logger.Error("failed to list stored targets", "error", listErr)
	}
	targets = append(targets, stored...)

	seen := make(map[string]bool, len(targets))
	submitted := 0
	for _, raw := range targets {
		if ctx.Err() != nil {
			return submitted, ctx.Err()
		}
		key := raw
		if t, err := model.NewTarget(raw); err == nil {
			key = t.String()
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		id, err := s.submitter.Submit(ctx, raw, model.Options{})
		if err != nil {
			s.logger.Warn("failed to resubmit target", "target", raw, "error", err)
			continue
		}
		s.logger.Debug("target resubmitted", "target", raw, "job", id)
		submitted++
	}
	return submitted, listErr
}
