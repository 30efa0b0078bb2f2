package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prototypedave/hybridTool/internal/model"
)

// DefaultJobTimeout is the deadline given to a single job.
const DefaultJobTimeout = 15 * time.Minute

// DefaultLeaseTTL is how long the worker lease stays valid without renewal.
// A process that dies holding the lease blocks other workers for at most
// this long.
const DefaultLeaseTTL = 30 * time.Second

// DefaultPollInterval is how often the queue renews its lease, adopts jobs
// stored by other processes and rechecks the jobs Wait is blocked on.
const DefaultPollInterval = 2 * time.Second

// ErrStopped is returned by Start after Stop.
var ErrStopped = errors.New("queue stopped")

// Store is the durable job record the queue keeps in sync.
type Store interface {
	ListActiveJobs(ctx context.Context) ([]*model.Job, error)
	UpdateJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
}

// Leaser is implemented by stores that several processes share. When the
// store is a Leaser, a queue runs and recovers jobs only while it holds
// the worker lease, so at most one process executes jobs at a time.
type Leaser interface {
	AcquireWorkerLease(ctx context.Context, owner string, now time.Time, ttl time.Duration) (bool, error)
	ReleaseWorkerLease(ctx context.Context, owner string) error
}

// Executor runs one job.
type Executor interface {
	Execute(ctx context.Context, job *model.Job) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, job *model.Job) error

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, job *model.Job) error {
	return f(ctx, job)
}

// Stats is a snapshot of the queue.
type Stats struct {
	Queued    int    `json:"queued"`
	Running   string `json:"running,omitempty"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	// Standby is set while another process holds the worker lease.
	Standby bool `json:"standby,omitempty"`
}

// Queue is a FIFO of jobs drained by a single worker.
type Queue struct {
	// store receives every status change before the worker moves on.
	store Store
	// leaser is store when it can be shared between processes, else nil
	// and the queue assumes it is the only writer.
	leaser   Leaser
	executor Executor
	// timeout bounds one Execute call.
	timeout time.Duration
	// owner names this queue in the worker lease.
	owner    string
	leaseTTL time.Duration
	poll     time.Duration
	// backlog makes the queue adopt pending jobs it finds in the store,
	// not only the ones handed to Enqueue.
	backlog bool
	logger  *slog.Logger
	now     func() time.Time

	// mu guards the fields below.
	mu      sync.Mutex
	pending []*model.Job
	// queued holds the ids in pending.
	queued map[string]bool
	// running is the id of the executing job, or empty.
	running string
	// holding reports whether this queue may run jobs.
	holding   bool
	processed int
	failed    int
	// changed is closed and replaced after every processed job.
	changed chan struct{}
	stopped bool

	wake      chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// Option configures a Queue.
type Option func(*Queue)

// WithJobTimeout sets the per-job deadline.
func WithJobTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

// WithClock overrides the time source for job timestamps and the lease.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

// WithOwner sets the name this queue holds the worker lease under.
// It defaults to a random id.
func WithOwner(owner string) Option {
	return func(q *Queue) {
		if owner != "" {
			q.owner = owner
		}
	}
}

// WithLeaseTTL sets how long the worker lease lasts between renewals.
func WithLeaseTTL(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.leaseTTL = d
		}
	}
}

// WithPollInterval sets how often the store is checked for lease and
// job changes made by other processes.
func WithPollInterval(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.poll = d
		}
	}
}

// WithoutBacklog restricts the queue to jobs handed to Enqueue. Pending
// jobs other processes stored are left for their own workers.
func WithoutBacklog() Option {
	return func(q *Queue) {
		q.backlog = false
	}
}

// New creates a stopped queue.
func New(store Store, executor Executor, opts ...Option) *Queue {
	q := &Queue{
		store:    store,
		executor: executor,
		timeout:  DefaultJobTimeout,
		owner:    uuid.NewString(),
		leaseTTL: DefaultLeaseTTL,
		poll:     DefaultPollInterval,
		backlog:  true,
		logger:   slog.Default(),
		now:      time.Now,
		queued:   make(map[string]bool),
		changed:  make(chan struct{}),
		wake:     make(chan struct{}, 1),
	}
	if l, ok := store.(Leaser); ok {
		q.leaser = l
	} else {
		q.holding = true
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends job unless it is already queued or running.
// It never blocks and reports whether the job was added.
func (q *Queue) Enqueue(job *model.Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.queued[job.ID] || q.running == job.ID {
		return false
	}
	q.pending = append(q.pending, job)
	q.queued[job.ID] = true
	q.signal()
	return true
}

// signal wakes the worker without blocking.
func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Start reconciles with the store and starts the worker. Jobs left
// running by a previous process are reset to pending and run again.
// The worker stops when ctx ends or Stop is called.
//
// When the store is shared, recovery and execution wait until this
// queue holds the worker lease. A queue that finds the lease taken
// stays in standby and retries every poll interval.
func (q *Queue) Start(ctx context.Context) error {
	err := ErrStopped
	q.startOnce.Do(func() {
		q.mu.Lock()
		stopped := q.stopped
		q.mu.Unlock()
		if stopped {
			return
		}

		if q.leaser == nil {
			err = q.reconcile(ctx)
		} else {
			err = q.renewLease(ctx)
		}
		if err != nil {
			return
		}

		wctx, cancel := context.WithCancel(ctx)
		q.mu.Lock()
		q.cancel = cancel
		q.mu.Unlock()
		q.wg.Add(1)
		go q.work(wctx)
		if q.leaser != nil {
			q.wg.Add(1)
			go q.keepLease(wctx)
		}

		st := q.Stats()
		if st.Standby {
			q.logger.Info("job queue waiting for the worker lease held by another process", "owner", q.owner)
		}
		q.logger.Info("job queue started", "queued", st.Queued, "job_timeout", q.timeout)
	})
	return err
}

// reconcile resets jobs left running by a dead worker to pending and,
// with a backlog, queues every pending job in the store.
func (q *Queue) reconcile(ctx context.Context) error {
	jobs, err := q.store.ListActiveJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active jobs: %w", err)
	}
	for _, job := range jobs {
		if job.Status == model.JobRunning {
			if q.isRunning(job.ID) {
				continue
			}
			q.logger.Warn("requeueing interrupted job", "job", job.ID, "target", job.Target)
			job.Requeue()
			if err := q.store.UpdateJob(ctx, job); err != nil {
				return fmt.Errorf("failed to requeue job %s: %w", job.ID, err)
			}
		}
		if q.backlog {
			q.Enqueue(job)
		}
	}
	return nil
}

// adopt queues pending jobs other processes stored after reconcile.
func (q *Queue) adopt(ctx context.Context) error {
	jobs, err := q.store.ListActiveJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active jobs: %w", err)
	}
	for _, job := range jobs {
		if job.Status == model.JobPending {
			q.Enqueue(job)
		}
	}
	return nil
}

// renewLease acquires or extends the worker lease. Gaining the lease
// triggers a reconcile, since any job still marked running belongs to
// a worker whose lease ran out.
func (q *Queue) renewLease(ctx context.Context) error {
	ok, err := q.leaser.AcquireWorkerLease(ctx, q.owner, q.now(), q.leaseTTL)
	if err != nil {
		return err
	}

	q.mu.Lock()
	held := q.holding
	q.mu.Unlock()

	switch {
	case ok && !held:
		if err := q.reconcile(ctx); err != nil {
			return err
		}
		q.mu.Lock()
		q.holding = true
		q.signal()
		q.mu.Unlock()
		q.logger.Info("acquired worker lease", "owner", q.owner)
	case !ok && held:
		q.mu.Lock()
		q.holding = false
		q.mu.Unlock()
		q.logger.Warn("worker lease taken by another process", "owner", q.owner)
	}
	return nil
}

// keepLease renews the lease while the worker runs and, with a backlog,
// adopts jobs submitted by other processes.
func (q *Queue) keepLease(ctx context.Context) {
	defer q.wg.Done()

	every := min(q.poll, q.leaseTTL/3)
	if every <= 0 {
		every = q.poll
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := q.renewLease(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			q.logger.Error("failed to renew worker lease", "owner", q.owner, "error", err)
			continue
		}
		if !q.backlog || q.Stats().Standby {
			continue
		}
		if err := q.adopt(ctx); err != nil && ctx.Err() == nil {
			q.logger.Error("failed to adopt stored jobs", "error", err)
		}
	}
}

// Stop cancels the running job and waits for the worker to exit.
// The interrupted job is returned to pending in the store and the
// worker lease is released.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.stopped = true
		cancel := q.cancel
		q.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		q.wg.Wait()
		if cancel != nil && q.leaser != nil {
			if err := q.leaser.ReleaseWorkerLease(context.Background(), q.owner); err != nil {
				q.logger.Error("failed to release worker lease", "owner", q.owner, "error", err)
			}
		}
		q.logger.Info("job queue stopped")
	})
}

// Stats returns a snapshot of the queue.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Queued:    len(q.pending),
		Running:   q.running,
		Processed: q.processed,
		Failed:    q.failed,
		Standby:   !q.holding,
	}
}

// Wait blocks until every job in ids is terminal in the store, or ctx ends.
// Jobs run by another process are noticed within one poll interval.
func (q *Queue) Wait(ctx context.Context, ids ...string) error {
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()

	for {
		q.mu.Lock()
		changed := q.changed
		q.mu.Unlock()

		done, err := q.allTerminal(ctx, ids)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		case <-ticker.C:
		}
	}
}

func (q *Queue) allTerminal(ctx context.Context, ids []string) (bool, error) {
	for _, id := range ids {
		job, err := q.store.GetJob(ctx, id)
		if err != nil {
			return false, err
		}
		if !job.Status.IsTerminal() {
			return false, nil
		}
	}
	return true, nil
}

func (q *Queue) isRunning(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running == id
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}
		job := q.next()
		if job == nil {
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
			}
			continue
		}
		q.process(ctx, job)
	}
}

// next pops the oldest job, or returns nil when the queue is empty or
// another process holds the worker lease.
func (q *Queue) next() *model.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 || !q.holding {
		return nil
	}
	job := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	delete(q.queued, job.ID)
	q.running = job.ID
	return job
}

func (q *Queue) process(ctx context.Context, job *model.Job) {
	// Status writes must land even while the queue is shutting down.
	storeCtx := context.WithoutCancel(ctx)

	// The queued copy may be stale: another worker can have run the job
	// since it was enqueued.
	current, err := q.store.GetJob(storeCtx, job.ID)
	if err != nil || current.Status != model.JobPending {
		if err != nil {
			q.logger.Error("failed to load queued job", "job", job.ID, "error", err)
		} else {
			q.logger.Debug("skipping job no longer pending", "job", job.ID, "status", current.Status)
		}
		q.finish()
		return
	}
	job = current

	job.Start(q.now())
	if err := q.store.UpdateJob(storeCtx, job); err != nil {
		q.logger.Error("failed to mark job running", "job", job.ID, "error", err)
	}
	q.logger.Info("job started", "job", job.ID, "target", job.Target)

	err = q.execute(ctx, job)

	q.mu.Lock()
	interrupted := ctx.Err() != nil && err != nil
	switch {
	case interrupted:
		job.Requeue()
	case err != nil:
		job.Fail(q.now(), err)
		q.failed++
		q.processed++
	default:
		job.Complete(q.now())
		q.processed++
	}
	q.mu.Unlock()

	if uerr := q.store.UpdateJob(storeCtx, job); uerr != nil {
		q.logger.Error("failed to record job status", "job", job.ID, "status", job.Status, "error", uerr)
	}

	switch {
	case interrupted:
		q.logger.Warn("job interrupted, left pending", "job", job.ID)
	case err != nil:
		q.logger.Error("job failed", "job", job.ID, "target", job.Target, "error", err)
	default:
		q.logger.Info("job completed", "job", job.ID, "target", job.Target)
	}

	q.finish()
}

// finish clears the running job and wakes every Wait.
func (q *Queue) finish() {
	q.mu.Lock()
	q.running = ""
	close(q.changed)
	q.changed = make(chan struct{})
	q.mu.Unlock()
}

func (q *Queue) execute(ctx context.Context, job *model.Job) (err error) {
	jctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.ID, r)
		}
	}()

	err = q.executor.Execute(jctx, job)
	if err != nil && errors.Is(jctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("job timed out after %s: %w", q.timeout, err)
	}
	return err
}
