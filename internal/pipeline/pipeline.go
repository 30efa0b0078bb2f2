package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/prototypedave/hybridTool/internal/model"
	"github.com/prototypedave/hybridTool/internal/session"
)

// persistTimeout bounds the writes made after the steps finished. They run
// detached from the job context so a job that hit its deadline still
// records what it measured.
const persistTimeout = 30 * time.Second

// Run is the state shared by the steps of one job.
type Run struct {
	Job    *model.Job
	Target model.Target
	// Session is nil when the shared session could not be acquired;
	// SessionErr then holds the reason.
	Session    session.Handle
	SessionErr error
}

// Output is one result kind produced by a step. At most one of Payload
// and Err is set; an output with neither reports a successful run that
// leaves the stored payload unchanged.
type Output struct {
	// Kind selects the result table.
	Kind model.ResultKind
	// Payload is the new result, written with Sink.Save.
	Payload any
	// Err is the failure recorded with Sink.RecordFailure.
	Err error
}

// Step is one probe of a job.
type Step interface {
	// Kind returns the probe kind, matched against the job options.
	Kind() model.ProbeKind
	// Name returns the step's name for logging purposes.
	Name() string
	// Do runs the probe. Outputs are persisted even when err is non-nil.
	Do(ctx context.Context, run *Run) ([]Output, error)
}

// SessionUser is implemented by steps that need the shared session.
type SessionUser interface {
	NeedsSession() bool
}

// Sink stores step outputs.
type Sink interface {
	Save(ctx context.Context, kind model.ResultKind, target, jobID string, payload any) error
	RecordFailure(ctx context.Context, kind model.ResultKind, target, jobID string, cause error) error
	// ClearFailure drops a recorded failure and keeps the payload.
	ClearFailure(ctx context.Context, kind model.ResultKind, target string) error
}

// Sessions hands out the shared browser session.
type Sessions interface {
	Acquire(ctx context.Context) (session.Handle, error)
	Release(ctx context.Context, h session.Handle)
}

// Pipeline runs the steps of a job.
type Pipeline struct {
	// steps run concurrently, filtered by the job options.
	steps []Step
	// sink stores the outputs once every step has returned.
	sink Sink
	// sessions is nil when no step needs the browser.
	sessions Sessions
	logger   *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithSessions sets the session provider. Without one, steps that need a
// session fail with model.ErrSessionUnavailable.
func WithSessions(s Sessions) Option {
	return func(p *Pipeline) {
		p.sessions = s
	}
}

// New creates a Pipeline that persists through sink.
func New(sink Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
		sink:  sink,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddSteps appends steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

// Execute runs the steps the job asks for and persists their outputs.
// It returns nil when every step succeeded or was partial, otherwise the
// step and persistence errors joined with errors.Join.
func (p *Pipeline) Execute(ctx context.Context, job *model.Job) error {
	target, err := model.NewTarget(job.Target)
	if err != nil {
		return err
	}

	steps := p.selectSteps(job.Options)
	if len(steps) == 0 {
		return nil
	}

	run := &Run{Job: job, Target: target}
	if needsSession(steps) {
		p.acquire(ctx, run)
		if run.Session != nil {
			defer p.sessions.Release(context.WithoutCancel(ctx), run.Session)
		}
	}

	outputs := make([][]Output, len(steps))
	stepErrs := make([]error, len(steps))

	var g errgroup.Group
	for i, step := range steps {
		g.Go(func() error {
			p.logger.Info("executing step", "step", step.Name(), "job", job.ID, "target", job.Target)
			outputs[i], stepErrs[i] = step.Do(ctx, run)
			if stepErrs[i] != nil {
				p.logger.Error("step failed", "step", step.Name(), "job", job.ID, "error", stepErrs[i])
			} else {
				p.logger.Debug("step completed", "step", step.Name(), "job", job.ID)
			}
			// Failures are reported through stepErrs so siblings keep running.
			return nil
		})
	}
	_ = g.Wait()

	persistErrs := p.persist(ctx, run, outputs)
	return errors.Join(append(stepErrs, persistErrs...)...)
}

func (p *Pipeline) selectSteps(opts model.Options) []Step {
	selected := make([]Step, 0, len(p.steps))
	for _, step := range p.steps {
		if opts.Wants(step.Kind()) {
			selected = append(selected, step)
		}
	}
	return selected
}

func needsSession(steps []Step) bool {
	for _, step := range steps {
		if u, ok := step.(SessionUser); ok && u.NeedsSession() {
			return true
		}
	}
	return false
}

// acquire never retries; a launch failure only fails the steps that need
// the session.
func (p *Pipeline) acquire(ctx context.Context, run *Run) {
	if p.sessions == nil {
		run.SessionErr = fmt.Errorf("%w: no session provider", model.ErrSessionUnavailable)
		return
	}
	h, err := p.sessions.Acquire(ctx)
	if err != nil {
		run.SessionErr = err
		p.logger.Warn("shared session unavailable", "job", run.Job.ID, "error", err)
		return
	}
	run.Session = h
}

func (p *Pipeline) persist(ctx context.Context, run *Run, outputs [][]Output) []error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	var errs []error
	target, jobID := run.Target.String(), run.Job.ID
	for _, outs := range outputs {
		for _, out := range outs {
			var err error
			switch {
			case out.Err != nil:
				err = p.sink.RecordFailure(ctx, out.Kind, target, jobID, out.Err)
			case out.Payload != nil:
				err = p.sink.Save(ctx, out.Kind, target, jobID, out.Payload)
			default:
				err = p.sink.ClearFailure(ctx, out.Kind, target)
			}
			if err != nil {
				p.logger.Error("failed to persist result", "kind", out.Kind, "job", jobID, "error", err)
				errs = append(errs, err)
				continue
			}
			p.logger.Debug("persisted output", "job", jobID, "output", out.String())
		}
	}
	return errs
}
