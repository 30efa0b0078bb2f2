package performance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prototypedave/hybridTool/internal/model"
	"github.com/prototypedave/hybridTool/internal/probe"
)

// Session is the part of the shared browser session an audit needs.
type Session interface {
	Port() int
	Reset(ctx context.Context) error
}

// Probe runs the performance sub-audits of a job.
type Probe struct {
	auditor Auditor
	policy  probe.RetryPolicy
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Probe.
type Option func(*Probe)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Probe) {
		p.logger = logger
	}
}

// WithClock overrides the time source used for CapturedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Probe) {
		p.now = now
	}
}

// NewProbe creates a performance probe.
func NewProbe(auditor Auditor, policy probe.RetryPolicy, opts ...Option) *Probe {
	p := &Probe{
		auditor: auditor,
		policy:  policy,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run audits target once per form factor, in order. A form factor that
// fails after its retries does not stop the next one; the result is then
// partial. When every form factor fails Run returns a *model.ProbeError.
func (p *Probe) Run(ctx context.Context, target model.Target, formFactors []model.FormFactor, sess Session) (*model.PerformanceResult, error) {
	if len(formFactors) == 0 {
		formFactors = model.AllFormFactors()
	}

	result := &model.PerformanceResult{
		Target:  target.String(),
		Reports: make([]model.FormFactorReport, 0, len(formFactors)),
	}

	var errs []error
	for _, ff := range formFactors {
		report, err := p.audit(ctx, target, ff, sess)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ff, err))
			p.logger.Warn("performance audit failed",
				"target", target.String(),
				"form_factor", ff,
				"attempts", report.Attempts,
				"error", err,
			)
		} else {
			p.logger.Info("performance audit completed",
				"target", target.String(),
				"form_factor", ff,
				"score", report.Metrics.TotalPerformance,
				"diagnostics", len(report.Diagnostics),
			)
		}
		result.Reports = append(result.Reports, report)
	}
	result.CapturedAt = p.now()

	switch {
	case len(errs) == 0:
		result.Status = model.ProbeStatusOK
	case len(errs) < len(formFactors):
		result.Status = model.ProbeStatusPartial
	default:
		return nil, model.NewProbeError(model.ProbePerformance, errors.Join(errs...))
	}
	return result, nil
}

func (p *Probe) audit(ctx context.Context, target model.Target, ff model.FormFactor, sess Session) (model.FormFactorReport, error) {
	report := model.FormFactorReport{FormFactor: ff}

	attempts, err := p.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			p.logger.Debug("retrying performance audit", "form_factor", ff, "attempt", attempt)
		}
		if err := sess.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset session: %w", err)
		}
		lhr, err := p.auditor.Audit(ctx, target, ff, sess.Port())
		if err != nil {
			return err
		}
		raw, err := lhr.RawMetrics()
		if err != nil {
			return err
		}
		metrics, err := Score(ff, raw)
		if err != nil {
			return fmt.Errorf("%w: %w", probe.ErrPermanent, err)
		}
		report.Metrics = metrics
		report.Diagnostics = ExtractDiagnostics(lhr)
		return nil
	})
	report.Attempts = attempts
	if err != nil {
		report.Metrics = nil
		report.Diagnostics = nil
		report.Error = err.Error()
	}
	return report, err
}
