package pipeline

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/prototypedave/hybridTool/internal/log"
	"github.com/prototypedave/hybridTool/internal/model"
)

func newJob(t *testing.T, opts model.Options) *model.Job {
	t.Helper()

	normalized, err := opts.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	target := model.MustNewTarget("https://example.com")
	return model.NewJob("job_test", target, normalized, time.Now())
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	p := New(newFakeSink(), WithLogger(log.Discard()))
	if p.StepCount() != 0 {
		t.Errorf("expected 0 steps, got %d", p.StepCount())
	}

	p.AddSteps(DefaultSteps(&fakePerformance{}, okNetwork(), &fakeSecurity{}, log.Discard())...)
	if !slices.Equal(p.StepNames(), []string{"performance", "network", "security"}) {
		t.Errorf("unexpected step names: %v", p.StepNames())
	}
}

// TestPipelineExecute tests job execution and persistence.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("all probes succeed", func(t *testing.T) {
		t.Parallel()

		sink := newFakeSink()
		sessions := &fakeSessions{}
		p := New(sink, WithLogger(log.Discard()), WithSessions(sessions))
		p.AddSteps(DefaultSteps(&fakePerformance{}, okNetwork(), &fakeSecurity{changed: true}, log.Discard())...)

		if err := p.Execute(context.Background(), newJob(t, model.Options{})); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, kind := range model.AllResultKinds() {
			if _, ok := sink.saved[kind]; !ok {
				t.Errorf("expected %s to be saved", kind)
			}
		}
		if len(sink.failures) != 0 {
			t.Errorf("expected no failures, got %v", sink.failures)
		}
		if sessions.acquireCount != 1 || sessions.releaseCount != 1 {
			t.Errorf("expected one acquire and release, got %d/%d", sessions.acquireCount, sessions.releaseCount)
		}
	})

	t.Run("session unavailable fails only performance", func(t *testing.T) {
		t.Parallel()

		sink := newFakeSink()
		sessions := &fakeSessions{err: model.ErrSessionUnavailable}
		perf := &fakePerformance{}
		p := New(sink, WithLogger(log.Discard()), WithSessions(sessions))
		p.AddSteps(DefaultSteps(perf, okNetwork(), &fakeSecurity{changed: true}, log.Discard())...)

		err := p.Execute(context.Background(), newJob(t, model.Options{}))
		if !model.IsProbeFailure(err, model.ProbePerformance) {
			t.Fatalf("expected performance failure, got %v", err)
		}
		if !errors.Is(err, model.ErrSessionUnavailable) {
			t.Errorf("expected ErrSessionUnavailable, got %v", err)
		}
		if perf.callCount != 0 {
			t.Error("expected performance probe not to run")
		}
		if _, ok := sink.failures[model.ResultPerformance]; !ok {
			t.Error("expected performance failure to be recorded")
		}
		if _, ok := sink.saved[model.ResultPing]; !ok {
			t.Error("expected ping to be saved despite the failure")
		}
		if _, ok := sink.saved[model.ResultSecurity]; !ok {
			t.Error("expected security to be saved despite the failure")
		}
		if sessions.releaseCount != 0 {
			t.Error("expected no release without a session")
		}
	})

	t.Run("failures are joined", func(t *testing.T) {
		t.Parallel()

		sink := newFakeSink()
		network := &fakeNetwork{err: model.NewProbeError(model.ProbeNetwork, errProbe)}
		security := &fakeSecurity{err: model.NewProbeError(model.ProbeSecurity, errProbe)}
		p := New(sink, WithLogger(log.Discard()), WithSessions(&fakeSessions{}))
		p.AddSteps(DefaultSteps(&fakePerformance{}, network, security, log.Discard())...)

		err := p.Execute(context.Background(), newJob(t, model.Options{}))
		if !model.IsProbeFailure(err, model.ProbeNetwork) || !model.IsProbeFailure(err, model.ProbeSecurity) {
			t.Errorf("expected network and security failures, got %v", err)
		}
		if model.IsProbeFailure(err, model.ProbePerformance) {
			t.Error("did not expect a performance failure")
		}
		if _, ok := sink.saved[model.ResultPerformance]; !ok {
			t.Error("expected performance to be saved")
		}
		for _, kind := range []model.ResultKind{model.ResultPing, model.ResultTraceroute, model.ResultSecurity} {
			if _, ok := sink.failures[kind]; !ok {
				t.Errorf("expected %s failure to be recorded", kind)
			}
		}
	})

	t.Run("only requested probes run", func(t *testing.T) {
		t.Parallel()

		sink := newFakeSink()
		sessions := &fakeSessions{}
		perf := &fakePerformance{}
		security := &fakeSecurity{changed: true}
		p := New(sink, WithLogger(log.Discard()), WithSessions(sessions))
		p.AddSteps(DefaultSteps(perf, okNetwork(), security, log.Discard())...)

		job := newJob(t, model.Options{Probes: []model.ProbeKind{model.ProbeNetwork}})
		if err := p.Execute(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if perf.callCount != 0 || security.callCount != 0 {
			t.Error("expected unrequested probes to be skipped")
		}
		if sessions.acquireCount != 0 {
			t.Error("expected no session for a network-only job")
		}
		if len(sink.saved) != 2 {
			t.Errorf("expected ping and traceroute only, got %d kinds", len(sink.saved))
		}
	})

	t.Run("unchanged alerts clear a recorded failure", func(t *testing.T) {
		t.Parallel()

		sink := newFakeSink()
		sink.failures[model.ResultSecurity] = errProbe
		p := New(sink, WithLogger(log.Discard()))
		p.AddSteps(NewSecurityStep(&fakeSecurity{changed: false}, log.Discard()))

		job := newJob(t, model.Options{Probes: []model.ProbeKind{model.ProbeSecurity}})
		if err := p.Execute(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := sink.saved[model.ResultSecurity]; ok {
			t.Error("expected unchanged alerts not to be saved")
		}
		if _, ok := sink.failures[model.ResultSecurity]; ok {
			t.Error("expected the recorded failure to be cleared")
		}
		if sink.cleared[model.ResultSecurity] != 1 {
			t.Errorf("expected 1 clear, got %d", sink.cleared[model.ResultSecurity])
		}
	})

	t.Run("persistence errors fail the job", func(t *testing.T) {
		t.Parallel()

		sink := newFakeSink()
		sink.err = model.ErrPersistence
		p := New(sink, WithLogger(log.Discard()))
		p.AddSteps(NewNetworkStep(okNetwork()))

		err := p.Execute(context.Background(), newJob(t, model.Options{}))
		if !errors.Is(err, model.ErrPersistence) {
			t.Errorf("expected ErrPersistence, got %v", err)
		}
	})

	t.Run("invalid stored target", func(t *testing.T) {
		t.Parallel()

		p := New(newFakeSink(), WithLogger(log.Discard()))
		job := &model.Job{ID: "job_bad", Target: "ftp://example.com"}
		if err := p.Execute(context.Background(), job); !errors.Is(err, model.ErrInvalidTarget) {
			t.Errorf("expected ErrInvalidTarget, got %v", err)
		}
	})

	t.Run("no session provider", func(t *testing.T) {
		t.Parallel()

		sink := newFakeSink()
		p := New(sink, WithLogger(log.Discard()))
		p.AddSteps(NewPerformanceStep(&fakePerformance{}))

		err := p.Execute(context.Background(), newJob(t, model.Options{}))
		if !errors.Is(err, model.ErrSessionUnavailable) {
			t.Errorf("expected ErrSessionUnavailable, got %v", err)
		}
	})
}
