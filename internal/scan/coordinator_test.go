package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prototypedave/hybridTool/internal/database"
	"github.com/prototypedave/hybridTool/internal/log"
	"github.com/prototypedave/hybridTool/internal/model"
)

type fakeQueue struct {
	mu   sync.Mutex
	jobs []*model.Job
}

func (q *fakeQueue) Enqueue(job *model.Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return true
}

func (q *fakeQueue) ids() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.jobs))
	for _, j := range q.jobs {
		out = append(out, j.ID)
	}
	return out
}

type failingStore struct {
	callCount int
}

func (s *failingStore) CreateIfAbsent(context.Context, *model.Job) (*model.Job, bool, error) {
	s.callCount++
	return nil, false, model.ErrPersistence
}

func setupCoordinator(t *testing.T) (*Coordinator, *database.DB, *fakeQueue) {
	t.Helper()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	var mu sync.Mutex
	n := 0
	q := &fakeQueue{}
	c := NewCoordinator(db, q,
		WithLogger(log.Discard()),
		WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("job_%d", n)
		}),
	)
	return c, db, q
}

// TestCoordinatorSubmit tests single submissions.
func TestCoordinatorSubmit(t *testing.T) {
	t.Parallel()

	t.Run("creates and enqueues a pending job", func(t *testing.T) {
		t.Parallel()

		c, db, q := setupCoordinator(t)
		id, err := c.Submit(context.Background(), "https://Example.com", model.Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "job_1" {
			t.Errorf("expected job_1, got %s", id)
		}

		job, err := db.GetJob(context.Background(), id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if job.Status != model.JobPending {
			t.Errorf("expected pending, got %s", job.Status)
		}
		if job.Target != "https://example.com/" {
			t.Errorf("expected normalized target, got %s", job.Target)
		}
		if len(job.Options.Probes) != 3 || len(job.Options.FormFactors) != 2 {
			t.Errorf("expected normalized options, got %+v", job.Options)
		}
		if got := q.ids(); len(got) != 1 || got[0] != id {
			t.Errorf("expected [%s] enqueued, got %v", id, got)
		}
	})

	t.Run("returns the active job for a duplicate target", func(t *testing.T) {
		t.Parallel()

		c, _, q := setupCoordinator(t)
		first, err := c.Submit(context.Background(), "https://example.com", model.Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := c.Submit(context.Background(), "https://EXAMPLE.com/#top", model.Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first != second {
			t.Errorf("expected %s, got %s", first, second)
		}
		if got := q.ids(); len(got) != 1 {
			t.Errorf("expected one enqueued job, got %v", got)
		}
	})

	t.Run("creates a new job once the previous one finished", func(t *testing.T) {
		t.Parallel()

		c, db, q := setupCoordinator(t)
		first, err := c.Submit(context.Background(), "https://example.com", model.Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		job, _ := db.GetJob(context.Background(), first)
		job.Complete(time.Now())
		if err := db.UpdateJob(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		second, err := c.Submit(context.Background(), "https://example.com", model.Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first == second {
			t.Error("expected a new job id")
		}
		if got := q.ids(); len(got) != 2 {
			t.Errorf("expected two enqueued jobs, got %v", got)
		}
	})

	t.Run("rejects invalid targets", func(t *testing.T) {
		t.Parallel()

		c, _, q := setupCoordinator(t)
		for _, raw := range []string{"", "ftp://example.com", "not a url", "https://"} {
			if _, err := c.Submit(context.Background(), raw, model.Options{}); !errors.Is(err, model.ErrInvalidTarget) {
				t.Errorf("%q: expected ErrInvalidTarget, got %v", raw, err)
			}
		}
		if got := q.ids(); len(got) != 0 {
			t.Errorf("expected nothing enqueued, got %v", got)
		}
	})

	t.Run("rejects unknown options", func(t *testing.T) {
		t.Parallel()

		c, _, _ := setupCoordinator(t)
		opts := model.Options{Probes: []model.ProbeKind{"fuzzing"}}
		if _, err := c.Submit(context.Background(), "https://example.com", opts); !errors.Is(err, model.ErrInvalidOptions) {
			t.Errorf("expected ErrInvalidOptions, got %v", err)
		}
	})

	t.Run("store failure is returned", func(t *testing.T) {
		t.Parallel()

		store := &failingStore{}
		q := &fakeQueue{}
		c := NewCoordinator(store, q, WithLogger(log.Discard()))
		if _, err := c.Submit(context.Background(), "https://example.com", model.Options{}); !errors.Is(err, model.ErrPersistence) {
			t.Errorf("expected ErrPersistence, got %v", err)
		}
		if store.callCount != 1 {
			t.Errorf("expected 1 store call, got %d", store.callCount)
		}
		if len(q.ids()) != 0 {
			t.Error("expected nothing enqueued")
		}
	})

	t.Run("default ids are prefixed", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })

		c := NewCoordinator(db, &fakeQueue{}, WithLogger(log.Discard()))
		id, err := c.Submit(context.Background(), "https://example.com", model.Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(id, JobIDPrefix) || len(id) != len(JobIDPrefix)+36 {
			t.Errorf("unexpected id %q", id)
		}
	})
}

// TestCoordinatorSubmitConcurrent tests dedup under concurrent submissions.
func TestCoordinatorSubmitConcurrent(t *testing.T) {
	t.Parallel()

	c, _, q := setupCoordinator(t)

	var wg sync.WaitGroup
	ids := make([]string, 20)
	errs := make([]error, 20)
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i], errs[i] = c.Submit(context.Background(), "https://example.com", model.Options{})
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("submission %d: unexpected error: %v", i, err)
		}
		if ids[i] != ids[0] {
			t.Errorf("expected every submission to get %s, got %s", ids[0], ids[i])
		}
	}
	if got := q.ids(); len(got) != 1 {
		t.Errorf("expected one enqueued job, got %v", got)
	}
}

// TestCoordinatorSubmitBatch tests batch validation and ordering.
func TestCoordinatorSubmitBatch(t *testing.T) {
	t.Parallel()

	t.Run("enqueues in request order", func(t *testing.T) {
		t.Parallel()

		c, _, q := setupCoordinator(t)
		acc, err := c.SubmitBatch(context.Background(), []Submission{
			{URL: "https://a.example.com"},
			{URL: "https://b.example.com"},
			{URL: "https://a.example.com"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(acc) != 3 {
			t.Fatalf("expected 3 results, got %d", len(acc))
		}
		if acc[0].ID != "job_1" || acc[1].ID != "job_2" || acc[2].ID != "job_1" {
			t.Errorf("unexpected ids: %+v", acc)
		}
		if !acc[0].Created || acc[2].Created {
			t.Errorf("unexpected created flags: %+v", acc)
		}
		if acc[1].URL != "https://b.example.com" {
			t.Errorf("expected request url echoed, got %s", acc[1].URL)
		}
		if got := q.ids(); len(got) != 2 || got[0] != "job_1" || got[1] != "job_2" {
			t.Errorf("expected [job_1 job_2], got %v", got)
		}
	})

	t.Run("one invalid entry rejects the batch", func(t *testing.T) {
		t.Parallel()

		c, db, q := setupCoordinator(t)
		_, err := c.SubmitBatch(context.Background(), []Submission{
			{URL: "https://a.example.com"},
			{URL: "mailto:someone@example.com"},
		})
		if !errors.Is(err, model.ErrInvalidTarget) {
			t.Fatalf("expected ErrInvalidTarget, got %v", err)
		}
		if len(q.ids()) != 0 {
			t.Error("expected nothing enqueued")
		}
		targets, err := db.ListTargets(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(targets) != 0 {
			t.Errorf("expected no jobs stored, got %v", targets)
		}
	})
}
