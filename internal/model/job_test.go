package model

import (
	"errors"
	"testing"
	"time"
)

func TestJobStatusIsTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status JobStatus
		want   bool
	}{
		{JobPending, false},
		{JobRunning, false},
		{JobDone, true},
		{JobFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.status, tt.want, got)
		}
	}
}

func TestJobLifecycle(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	job := NewJob("job_1", MustNewTarget("https://example.com"), Options{}, now)

	if job.Status != JobPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}
	if job.Target != "https://example.com/" {
		t.Errorf("expected normalized target, got %q", job.Target)
	}

	job.Start(now.Add(time.Second))
	if job.Status != JobRunning || job.StartedAt == nil {
		t.Fatalf("expected running with start time, got %s %v", job.Status, job.StartedAt)
	}

	job.Fail(now.Add(2*time.Second), errors.New("boom"))
	if job.Status != JobFailed || job.Error != "boom" || job.FinishedAt == nil {
		t.Errorf("unexpected failed job: %+v", job)
	}

	job.Requeue()
	if job.Status != JobPending || job.StartedAt != nil || job.FinishedAt != nil {
		t.Errorf("unexpected requeued job: %+v", job)
	}

	job.Start(now.Add(3 * time.Second))
	job.Complete(now.Add(4 * time.Second))
	if job.Status != JobDone || job.Error != "" {
		t.Errorf("unexpected completed job: %+v", job)
	}
}

func TestOptionsNormalize(t *testing.T) {
	t.Parallel()

	t.Run("empty options request everything", func(t *testing.T) {
		t.Parallel()

		got, err := Options{}.Normalize()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got.Probes) != 3 || len(got.FormFactors) != 2 {
			t.Errorf("expected all probes and form factors, got %+v", got)
		}
	})

	t.Run("subset keeps canonical order", func(t *testing.T) {
		t.Parallel()

		got, err := Options{Probes: []ProbeKind{ProbeSecurity, ProbePerformance}}.Normalize()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got.Probes) != 2 || got.Probes[0] != ProbePerformance || got.Probes[1] != ProbeSecurity {
			t.Errorf("unexpected probes: %v", got.Probes)
		}
		if got.Wants(ProbeNetwork) {
			t.Error("expected network probe not to be wanted")
		}
	})

	t.Run("unknown probe is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := Options{Probes: []ProbeKind{"dns"}}.Normalize()
		if !errors.Is(err, ErrInvalidOptions) {
			t.Errorf("expected ErrInvalidOptions, got %v", err)
		}
	})

	t.Run("unknown form factor is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := Options{FormFactors: []FormFactor{"tablet"}}.Normalize()
		if !errors.Is(err, ErrInvalidOptions) {
			t.Errorf("expected ErrInvalidOptions, got %v", err)
		}
	})
}
