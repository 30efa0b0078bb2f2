package performance

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/prototypedave/hybridTool/internal/log"
	"github.com/prototypedave/hybridTool/internal/model"
	"github.com/prototypedave/hybridTool/internal/probe"
	"github.com/prototypedave/hybridTool/internal/probe/toolexec"
)

type fakeRunner struct {
	result    *toolexec.Result
	err       error
	callCount int
	name      string
	args      []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (*toolexec.Result, error) {
	f.callCount++
	f.name = name
	f.args = args
	return f.result, f.err
}

func TestParseReport(t *testing.T) {
	t.Parallel()

	t.Run("valid report", func(t *testing.T) {
		t.Parallel()

		r, err := ParseReport([]byte(sampleReport))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		raw, err := r.RawMetrics()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := RawMetrics{FCP: 1800, SI: 3000, LCP: 2500, TBT: 150, CLS: 0.02}
		if raw != want {
			t.Errorf("expected %+v, got %+v", want, raw)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()

		if _, err := ParseReport([]byte("not json")); !errors.Is(err, model.ErrExternalTool) {
			t.Errorf("expected ErrExternalTool, got %v", err)
		}
	})

	t.Run("runtime error", func(t *testing.T) {
		t.Parallel()

		data := `{"runtimeError": {"code": "NO_FCP", "message": "The page did not paint any content."}}`
		_, err := ParseReport([]byte(data))
		if err == nil || !strings.Contains(err.Error(), "NO_FCP") {
			t.Errorf("expected NO_FCP error, got %v", err)
		}
	})

	t.Run("missing audit", func(t *testing.T) {
		t.Parallel()

		r, err := ParseReport([]byte(`{"audits": {"speed-index": {"numericValue": 1}}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := r.RawMetrics(); !errors.Is(err, ErrMissingAudit) {
			t.Errorf("expected ErrMissingAudit, got %v", err)
		}
	})
}

func TestArgs(t *testing.T) {
	t.Parallel()

	target := model.MustNewTarget("https://example.com")

	mobile := Args(target, model.FormFactorMobile, 9222)
	if mobile[0] != "https://example.com/" || !slices.Contains(mobile, "--port=9222") {
		t.Errorf("unexpected mobile args: %v", mobile)
	}
	if !slices.Contains(mobile, "--form-factor=mobile") || slices.Contains(mobile, "--preset=desktop") {
		t.Errorf("expected mobile form factor, got %v", mobile)
	}

	desktop := Args(target, model.FormFactorDesktop, 9222)
	if !slices.Contains(desktop, "--preset=desktop") {
		t.Errorf("expected desktop preset, got %v", desktop)
	}
	if !slices.Contains(desktop, "--only-categories=performance") {
		t.Errorf("expected performance category only, got %v", desktop)
	}
}

func TestLighthouseAuditorAudit(t *testing.T) {
	t.Parallel()

	target := model.MustNewTarget("https://example.com")

	t.Run("decodes stdout", func(t *testing.T) {
		t.Parallel()

		runner := &fakeRunner{result: &toolexec.Result{Stdout: []byte(sampleReport)}}
		a, err := NewLighthouseAuditor(runner, "npx lighthouse", WithAuditorLogger(log.Discard()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		r, err := a.Audit(context.Background(), target, model.FormFactorMobile, 9333)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(r.Audits) == 0 {
			t.Error("expected audits")
		}
		if runner.name != "npx" || runner.args[0] != "lighthouse" || runner.args[1] != target.String() {
			t.Errorf("unexpected command: %s %v", runner.name, runner.args)
		}
	})

	t.Run("missing binary is permanent", func(t *testing.T) {
		t.Parallel()

		runner := &fakeRunner{err: model.ErrExternalTool}
		a, err := NewLighthouseAuditor(runner, "lighthouse", WithAuditorLogger(log.Discard()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = a.Audit(context.Background(), target, model.FormFactorDesktop, 9222)
		if !errors.Is(err, probe.ErrPermanent) {
			t.Errorf("expected ErrPermanent, got %v", err)
		}
	})

	t.Run("non-zero exit is retryable", func(t *testing.T) {
		t.Parallel()

		runner := &fakeRunner{result: &toolexec.Result{ExitCode: 1}, err: toolexec.ErrNonZeroExit}
		a, err := NewLighthouseAuditor(runner, "lighthouse", WithAuditorLogger(log.Discard()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = a.Audit(context.Background(), target, model.FormFactorDesktop, 9222)
		if !errors.Is(err, toolexec.ErrNonZeroExit) || errors.Is(err, probe.ErrPermanent) {
			t.Errorf("expected retryable non-zero exit, got %v", err)
		}
	})

	t.Run("invalid command", func(t *testing.T) {
		t.Parallel()

		if _, err := NewLighthouseAuditor(&fakeRunner{}, ""); err == nil {
			t.Error("expected error for empty command")
		}
	})
}
