package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prototypedave/hybridTool/internal/model"
)

// DefaultProbeTimeout bounds the liveness probe run by Acquire and Release.
const DefaultProbeTimeout = 5 * time.Second

// Handle is a live browser session.
type Handle interface {
	// Endpoint returns the DevTools address in "host:port" form.
	Endpoint() string
	// Port returns the DevTools port.
	Port() int
	// Alive reports whether the browser still answers protocol commands.
	Alive(ctx context.Context) bool
	// Reset returns the page to a blank state before an audit.
	Reset(ctx context.Context) error
	// Close terminates the browser. It is safe to call more than once.
	Close() error
}

// Driver launches browser sessions.
type Driver interface {
	Launch(ctx context.Context) (Handle, error)
}

// Manager hands out the shared session.
// Exclusive use of the handle is guaranteed by the single queue worker,
// not by the manager; the mutex only serializes creation and teardown.
type Manager struct {
	// mu guards handle and the counters.
	mu     sync.Mutex
	driver Driver
	// handle is the live session, or nil before the first Acquire and
	// after a failed liveness check.
	handle Handle
	// closed is set by Close; Acquire fails afterwards.
	closed bool
	// launches counts browser starts, including relaunches.
	launches int
	// inUse counts acquisitions not yet released.
	inUse int
	// probeTimeout bounds the liveness check of a reused handle.
	probeTimeout time.Duration
	logger       *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithProbeTimeout sets the liveness probe timeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.probeTimeout = d
	}
}

// NewManager creates a Manager that launches sessions with driver.
// No browser is started until the first Acquire.
func NewManager(driver Driver, opts ...Option) *Manager {
	m := &Manager{
		driver:       driver,
		probeTimeout: DefaultProbeTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire returns the live session, launching one if there is none or the
// current one fails its liveness probe.
func (m *Manager) Acquire(ctx context.Context) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("%w: %w", model.ErrSessionUnavailable, ErrClosed)
	}

	if m.handle != nil {
		if m.alive(ctx, m.handle) {
			m.inUse++
			return m.handle, nil
		}
		m.logger.Warn("shared browser session is not responding, relaunching",
			"endpoint", m.handle.Endpoint(),
			"launches", m.launches,
		)
		m.dropLocked()
	}

	h, err := m.driver.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrSessionUnavailable, err)
	}
	m.handle = h
	m.launches++
	m.inUse++
	m.logger.Info("shared browser session started",
		"endpoint", h.Endpoint(),
		"launches", m.launches,
	)
	return h, nil
}

// Release gives the handle back after a job. A handle that no longer
// answers is torn down now rather than on the next Acquire.
func (m *Manager) Release(ctx context.Context, h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inUse > 0 {
		m.inUse--
	}
	if h == nil || h != m.handle || m.closed {
		return
	}
	if !m.alive(ctx, h) {
		m.logger.Warn("shared browser session died during use", "endpoint", h.Endpoint())
		m.dropLocked()
	}
}

// Close terminates the session. Later Acquire calls fail with ErrClosed.
// It is safe to call Close multiple times.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	if m.handle == nil {
		return nil
	}
	err := m.handle.Close()
	m.handle = nil
	if err != nil {
		return fmt.Errorf("failed to close browser session: %w", err)
	}
	return nil
}

// Stats describes the manager for health reporting.
type Stats struct {
	Live     bool `json:"live"`
	Launches int  `json:"launches"`
	InUse    int  `json:"inUse"`
}

// Stats returns a snapshot without probing the browser.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Live: m.handle != nil, Launches: m.launches, InUse: m.inUse}
}

func (m *Manager) alive(ctx context.Context, h Handle) bool {
	pctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()
	return h.Alive(pctx)
}

func (m *Manager) dropLocked() {
	if err := m.handle.Close(); err != nil {
		m.logger.Debug("failed to close dead browser session", "error", err)
	}
	m.handle = nil
}
