package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prototypedave/hybridTool/internal/api"
	"github.com/prototypedave/hybridTool/internal/config"
	"github.com/prototypedave/hybridTool/internal/database"
	"github.com/prototypedave/hybridTool/internal/geo"
	"github.com/prototypedave/hybridTool/internal/pipeline"
	"github.com/prototypedave/hybridTool/internal/probe"
	"github.com/prototypedave/hybridTool/internal/probe/network"
	"github.com/prototypedave/hybridTool/internal/probe/performance"
	"github.com/prototypedave/hybridTool/internal/probe/security"
	"github.com/prototypedave/hybridTool/internal/probe/toolexec"
	"github.com/prototypedave/hybridTool/internal/queue"
	"github.com/prototypedave/hybridTool/internal/scan"
	"github.com/prototypedave/hybridTool/internal/scheduler"
	"github.com/prototypedave/hybridTool/internal/session"
	"github.com/prototypedave/hybridTool/internal/tlsinfo"
)

// app holds the wired components of one hybridscan process.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	db          *database.DB
	sessions    *session.Manager
	queue       *queue.Queue
	coordinator *scan.Coordinator
	scheduler   *scheduler.Scheduler
}

// newApp opens the database and builds the probe pipeline, the job queue
// and the scan coordinator from cfg. qopts are appended to the queue
// options.
func newApp(cfg *config.Config, logger *slog.Logger, qopts ...queue.Option) (*app, error) {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, db: db}
	p, err := a.buildPipeline()
	if err != nil {
		_ = a.close()
		return nil, err
	}

	a.queue = queue.New(db, queue.ExecutorFunc(p.Execute), append([]queue.Option{
		queue.WithJobTimeout(cfg.JobTimeout),
		queue.WithLogger(logger),
	}, qopts...)...)
	a.coordinator = scan.NewCoordinator(db, a.queue, scan.WithLogger(logger))
	a.scheduler = scheduler.New(a.coordinator, db, cfg.RescanInterval,
		scheduler.WithTargets(cfg.Targets...),
		scheduler.WithLogger(logger),
	)
	return a, nil
}

func (a *app) buildPipeline() (*pipeline.Pipeline, error) {
	cfg, logger := a.cfg, a.logger
	runner := toolexec.NewExecRunner()

	auditor, err := performance.NewLighthouseAuditor(runner, cfg.LighthouseCommand,
		performance.WithAuditTimeout(cfg.AuditTimeout),
		performance.WithAuditorLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid lighthouse command: %w", err)
	}
	perf := performance.NewProbe(auditor, probe.PolicyFromConfig(cfg), performance.WithLogger(logger))

	pinger, err := network.NewCommandPinger(runner, cfg.PingCommand,
		network.WithPingCount(cfg.PingCount),
		network.WithPingTimeout(cfg.PingTimeout),
		network.WithPingLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid ping command: %w", err)
	}
	tracer, err := network.NewCommandTracer(runner, cfg.TracerouteCommand,
		network.WithTraceTimeout(cfg.TracerouteTimeout),
		network.WithTraceLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid traceroute command: %w", err)
	}
	netProbe := network.NewProbe(pinger, tracer, logger)

	zap, err := security.NewClient(cfg.ZAPAddress, cfg.ZAPAPIKey,
		security.WithRetryMax(cfg.ZAPRetryMax),
		security.WithClientLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid ZAP configuration: %w", err)
	}
	secProbe := security.NewProbe(zap, a.db,
		security.WithLogger(logger),
		security.WithPollInterval(cfg.ZAPPollInterval),
	)

	a.sessions = session.NewManager(
		session.NewChromeDriver(cfg.DebugPort,
			session.WithExecPath(cfg.ChromePath),
			session.WithHeadful(cfg.Headful),
			session.WithChromeLogger(logger),
		),
		session.WithLogger(logger),
	)

	p := pipeline.New(a.db, pipeline.WithLogger(logger), pipeline.WithSessions(a.sessions))
	p.AddSteps(pipeline.DefaultSteps(perf, netProbe, secProbe, logger)...)
	logger.Debug("pipeline ready", "steps", p.StepNames())
	return p, nil
}

// newServer builds the HTTP API on top of the app.
func (a *app) newServer() (*api.Server, error) {
	locator, err := geo.NewIPInfoClient(a.cfg.IPInfoURL, a.cfg.IPInfoToken,
		geo.WithRate(a.cfg.GeoRate),
		geo.WithLogger(a.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid geolocation configuration: %w", err)
	}
	return api.New(a.coordinator, a.db,
		api.WithLogger(a.logger),
		api.WithLocator(locator),
		api.WithInspector(tlsinfo.NewInspector()),
		api.WithQueueStats(a.queue),
		api.WithSessionStats(a.sessions),
	), nil
}

// close stops the queue and releases the browser and the database.
func (a *app) close() error {
	if a.queue != nil {
		a.queue.Stop()
	}
	var errs []error
	if a.sessions != nil {
		if err := a.sessions.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser session: %w", err))
		}
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}
	return errors.Join(errs...)
}
