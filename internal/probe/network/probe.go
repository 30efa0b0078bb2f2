package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/prototypedave/hybridTool/internal/model"
)

// Pinger measures round trip times to a host.
type Pinger interface {
	Ping(ctx context.Context, host string) (*model.PingMetrics, error)
}

// Tracer lists the hops to a host.
type Tracer interface {
	Trace(ctx context.Context, host string) (*model.TracerouteResult, error)
}

// Probe runs ping and traceroute concurrently.
type Probe struct {
	pinger Pinger
	tracer Tracer
	logger *slog.Logger
}

// NewProbe creates a network probe.
func NewProbe(pinger Pinger, tracer Tracer, logger *slog.Logger) *Probe {
	if logger == nil {
		logger = slog.Default()
	}
	return &Probe{pinger: pinger, tracer: tracer, logger: logger}
}

// Run measures the target host. The result is partial when exactly one
// measurement failed; when both fail Run returns a *model.ProbeError.
func (p *Probe) Run(ctx context.Context, target model.Target) (*model.NetworkResult, error) {
	host := target.Host()
	result := &model.NetworkResult{}

	var pingErr, traceErr error
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		result.Ping, pingErr = p.pinger.Ping(gctx, host)
		if pingErr != nil {
			result.Ping = nil
			result.PingError = pingErr.Error()
			p.logger.Warn("ping failed", "host", host, "error", pingErr)
		}
		return nil
	})
	g.Go(func() error {
		result.Traceroute, traceErr = p.tracer.Trace(gctx, host)
		if traceErr != nil {
			result.Traceroute = nil
			result.TracerouteError = traceErr.Error()
			p.logger.Warn("traceroute failed", "host", host, "error", traceErr)
		}
		return nil
	})
	_ = g.Wait()

	switch {
	case pingErr == nil && traceErr == nil:
		result.Status = model.ProbeStatusOK
	case pingErr == nil || traceErr == nil:
		result.Status = model.ProbeStatusPartial
	default:
		return nil, model.NewProbeError(model.ProbeNetwork, errors.Join(
			fmt.Errorf("ping: %w", pingErr),
			fmt.Errorf("traceroute: %w", traceErr),
		))
	}
	return result, nil
}
