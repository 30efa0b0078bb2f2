package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prototypedave/hybridTool/internal/model"
	"github.com/prototypedave/hybridTool/internal/probe/performance"
)

// PerformanceProber audits a target on the shared session.
type PerformanceProber interface {
	Run(ctx context.Context, target model.Target, formFactors []model.FormFactor, sess performance.Session) (*model.PerformanceResult, error)
}

// NetworkProber pings and traces a target.
type NetworkProber interface {
	Run(ctx context.Context, target model.Target) (*model.NetworkResult, error)
}

// SecurityProber scans a target with ZAP.
type SecurityProber interface {
	Run(ctx context.Context, target model.Target) (*model.SecurityResult, error)
}

// PerformanceStep runs Lighthouse for the job's form factors.
type PerformanceStep struct {
	prober PerformanceProber
}

// NewPerformanceStep creates a performance step.
func NewPerformanceStep(prober PerformanceProber) *PerformanceStep {
	return &PerformanceStep{prober: prober}
}

// Kind returns model.ProbePerformance.
func (s *PerformanceStep) Kind() model.ProbeKind { return model.ProbePerformance }

// Name returns the step name.
func (s *PerformanceStep) Name() string { return "performance" }

// NeedsSession returns true; audits attach to the shared browser.
func (s *PerformanceStep) NeedsSession() bool { return true }

// Do runs the audits, or fails at once when there is no session.
func (s *PerformanceStep) Do(ctx context.Context, run *Run) ([]Output, error) {
	if run.Session == nil {
		cause := run.SessionErr
		if cause == nil {
			cause = model.ErrSessionUnavailable
		}
		err := model.NewProbeError(model.ProbePerformance, cause)
		return []Output{{Kind: model.ResultPerformance, Err: err}}, err
	}

	res, err := s.prober.Run(ctx, run.Target, run.Job.Options.FormFactors, run.Session)
	if err != nil {
		return []Output{{Kind: model.ResultPerformance, Err: err}}, err
	}
	return []Output{{Kind: model.ResultPerformance, Payload: res}}, nil
}

// NetworkStep runs ping and traceroute. Each measurement is stored under
// its own result kind.
type NetworkStep struct {
	prober NetworkProber
}

// NewNetworkStep creates a network step.
func NewNetworkStep(prober NetworkProber) *NetworkStep {
	return &NetworkStep{prober: prober}
}

// Kind returns model.ProbeNetwork.
func (s *NetworkStep) Kind() model.ProbeKind { return model.ProbeNetwork }

// Name returns the step name.
func (s *NetworkStep) Name() string { return "network" }

// Do runs the probe and splits its result into ping and traceroute outputs.
func (s *NetworkStep) Do(ctx context.Context, run *Run) ([]Output, error) {
	res, err := s.prober.Run(ctx, run.Target)
	if err != nil {
		return []Output{
			{Kind: model.ResultPing, Err: err},
			{Kind: model.ResultTraceroute, Err: err},
		}, err
	}

	outs := make([]Output, 0, 2)
	if res.Ping != nil {
		outs = append(outs, Output{Kind: model.ResultPing, Payload: res.Ping})
	} else {
		outs = append(outs, Output{Kind: model.ResultPing, Err: errors.New(res.PingError)})
	}
	if res.Traceroute != nil {
		outs = append(outs, Output{Kind: model.ResultTraceroute, Payload: res.Traceroute})
	} else {
		outs = append(outs, Output{Kind: model.ResultTraceroute, Err: errors.New(res.TracerouteError)})
	}
	return outs, nil
}

// SecurityStep runs the ZAP scan. An alert set equal to the stored one is
// not written again; only a failure left by an earlier run is cleared.
type SecurityStep struct {
	prober SecurityProber
	logger *slog.Logger
}

// NewSecurityStep creates a security step.
func NewSecurityStep(prober SecurityProber, logger *slog.Logger) *SecurityStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &SecurityStep{prober: prober, logger: logger}
}

// Kind returns model.ProbeSecurity.
func (s *SecurityStep) Kind() model.ProbeKind { return model.ProbeSecurity }

// Name returns the step name.
func (s *SecurityStep) Name() string { return "security" }

// Do runs the scan.
func (s *SecurityStep) Do(ctx context.Context, run *Run) ([]Output, error) {
	res, err := s.prober.Run(ctx, run.Target)
	if err != nil {
		return []Output{{Kind: model.ResultSecurity, Err: err}}, err
	}
	if !res.Changed {
		s.logger.Info("alert set unchanged, keeping stored result",
			"target", run.Target.String(),
			"digest", res.Digest,
		)
		return []Output{{Kind: model.ResultSecurity}}, nil
	}
	return []Output{{Kind: model.ResultSecurity, Payload: res}}, nil
}

// DefaultSteps returns the three probe steps in execution order.
func DefaultSteps(perf PerformanceProber, network NetworkProber, security SecurityProber, logger *slog.Logger) []Step {
	return []Step{
		NewPerformanceStep(perf),
		NewNetworkStep(network),
		NewSecurityStep(security, logger),
	}
}

// compile-time checks
var (
	_ Step        = (*PerformanceStep)(nil)
	_ SessionUser = (*PerformanceStep)(nil)
	_ Step        = (*NetworkStep)(nil)
	_ Step        = (*SecurityStep)(nil)
)

// String describes an output for logs.
func (o Output) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s: failed: %v", o.Kind, o.Err)
	}
	if o.Payload == nil {
		return fmt.Sprintf("%s: unchanged", o.Kind)
	}
	return fmt.Sprintf("%s: ok", o.Kind)
}
