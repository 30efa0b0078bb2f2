package scan

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prototypedave/hybridTool/internal/model"
)

// JobIDPrefix prefixes every generated job id.
const JobIDPrefix = "job_"

// Store creates jobs atomically per target.
type Store interface {
	CreateIfAbsent(ctx context.Context, job *model.Job) (*model.Job, bool, error)
}

// Enqueuer accepts jobs for execution.
type Enqueuer interface {
	Enqueue(job *model.Job) bool
}

// Submission is one requested scan.
type Submission struct {
	URL     string        `json:"url"`
	Options model.Options `json:"options,omitempty"`
}

// Accepted describes the job that serves a submission.
type Accepted struct {
	URL     string `json:"url"`
	ID      string `json:"id"`
	Created bool   `json:"-"`
}

// Coordinator validates submissions, deduplicates them per target
// and hands new jobs to the queue.
type Coordinator struct {
	// store creates jobs atomically per target; it is the source of
	// truth for deduplication across processes.
	store Store
	// queue receives only jobs this coordinator created.
	queue  Enqueuer
	logger *slog.Logger
	now    func() time.Time
	// newID returns a fresh job id.
	newID func() string

	// mu orders submissions made by this process.
	mu sync.Mutex
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithClock overrides the submission timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// WithIDGenerator overrides job id generation.
func WithIDGenerator(newID func() string) Option {
	return func(c *Coordinator) {
		c.newID = newID
	}
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(store Store, queue Enqueuer, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		queue:  queue,
		logger: slog.Default(),
		now:    time.Now,
		newID:  func() string { return JobIDPrefix + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit requests a scan of rawURL and returns the id of the job that
// serves it. If the target already has a pending or running job, that
// job's id is returned and nothing new is queued.
func (c *Coordinator) Submit(ctx context.Context, rawURL string, opts model.Options) (string, error) {
	acc, err := c.SubmitBatch(ctx, []Submission{{URL: rawURL, Options: opts}})
	if err != nil {
		return "", err
	}
	return acc[0].ID, nil
}

// SubmitBatch validates every submission before creating any job, so
// one invalid entry rejects the whole batch.
func (c *Coordinator) SubmitBatch(ctx context.Context, subs []Submission) ([]Accepted, error) {
	type prepared struct {
		raw    string
		target model.Target
		opts   model.Options
	}

	batch := make([]prepared, 0, len(subs))
	for i, s := range subs {
		target, err := model.NewTarget(s.URL)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		opts, err := s.Options.Normalize()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		batch = append(batch, prepared{raw: s.URL, target: target, opts: opts})
	}

	out := make([]Accepted, 0, len(batch))
	for _, p := range batch {
		acc, err := c.submit(ctx, p.target, p.opts)
		if err != nil {
			return out, err
		}
		acc.URL = p.raw
		out = append(out, acc)
	}
	return out, nil
}

func (c *Coordinator) submit(ctx context.Context, target model.Target, opts model.Options) (Accepted, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	job := model.NewJob(c.newID(), target, opts, c.now())
	stored, created, err := c.store.CreateIfAbsent(ctx, job)
	if err != nil {
		return Accepted{}, fmt.Errorf("failed to store job for %s: %w", target, err)
	}

	if !created {
		c.logger.Debug("target already has an active job", "target", target.String(), "job", stored.ID)
		return Accepted{ID: stored.ID}, nil
	}

	c.queue.Enqueue(stored)
	c.logger.Info("job submitted", "target", target.String(), "job", stored.ID)
	return Accepted{ID: stored.ID, Created: true}, nil
}
