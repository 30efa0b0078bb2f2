package security

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Phase is the state of a ZAP scan.
type Phase string

// Scan phases, in order. PhaseFailed can follow any non-terminal phase.
const (
	PhaseQueued         Phase = "queued"
	PhaseCrawling       Phase = "crawling"
	PhaseActiveScanning Phase = "active-scanning"
	PhaseDone           Phase = "done"
	PhaseFailed         Phase = "failed"
)

// DefaultPollInterval is the wait between two status polls.
const DefaultPollInterval = 5 * time.Second

// API is the subset of the ZAP API a scan drives.
type API interface {
	StartSpider(ctx context.Context, target string) (string, error)
	SpiderStatus(ctx context.Context, scanID string) (int, error)
	StartActiveScan(ctx context.Context, target string) (string, error)
	ActiveScanStatus(ctx context.Context, scanID string) (int, error)
	Alerts(ctx context.Context, baseURL string) ([]ZAPAlert, error)
}

// Clock schedules polls. Tests replace it to avoid sleeping.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Scan drives one target through spider, active scan and alert retrieval.
type Scan struct {
	api      API
	clock    Clock
	interval time.Duration
	target   string
	logger   *slog.Logger

	mu      sync.Mutex
	phase   Phase
	history []Phase
}

// NewScan creates a queued scan for target.
func NewScan(api API, target string, clock Clock, interval time.Duration, logger *slog.Logger) *Scan {
	if clock == nil {
		clock = realClock{}
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scan{
		api:      api,
		clock:    clock,
		interval: interval,
		target:   target,
		logger:   logger,
		phase:    PhaseQueued,
		history:  []Phase{PhaseQueued},
	}
}

// Phase returns the current phase.
func (s *Scan) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// History returns every phase the scan went through.
func (s *Scan) History() []Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Phase(nil), s.history...)
}

func (s *Scan) transition(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.history = append(s.history, p)
	s.mu.Unlock()
	s.logger.Debug("security scan phase", "target", s.target, "phase", p)
}

// Run executes the scan and returns the raw alerts for the target.
func (s *Scan) Run(ctx context.Context) ([]ZAPAlert, error) {
	if p := s.Phase(); p != PhaseQueued {
		return nil, fmt.Errorf("scan already %s", p)
	}

	alerts, err := s.run(ctx)
	if err != nil {
		s.transition(PhaseFailed)
		return nil, err
	}
	s.transition(PhaseDone)
	return alerts, nil
}

func (s *Scan) run(ctx context.Context) ([]ZAPAlert, error) {
	s.transition(PhaseCrawling)
	spiderID, err := s.api.StartSpider(ctx, s.target)
	if err != nil {
		return nil, fmt.Errorf("failed to start spider: %w", err)
	}
	if err := s.poll(ctx, spiderID, s.api.SpiderStatus); err != nil {
		return nil, fmt.Errorf("spider: %w", err)
	}

	s.transition(PhaseActiveScanning)
	scanID, err := s.api.StartActiveScan(ctx, s.target)
	if err != nil {
		return nil, fmt.Errorf("failed to start active scan: %w", err)
	}
	if err := s.poll(ctx, scanID, s.api.ActiveScanStatus); err != nil {
		return nil, fmt.Errorf("active scan: %w", err)
	}

	alerts, err := s.api.Alerts(ctx, s.target)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch alerts: %w", err)
	}
	return alerts, nil
}

// poll waits until status reports 100.
func (s *Scan) poll(ctx context.Context, id string, status func(context.Context, string) (int, error)) error {
	for {
		progress, err := status(ctx, id)
		if err != nil {
			return err
		}
		if progress >= 100 {
			return nil
		}
		s.logger.Debug("security scan progress", "target", s.target, "phase", s.Phase(), "progress", progress)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(s.interval):
		}
	}
}
