package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/prototypedave/hybridTool/internal/geo"
	"github.com/prototypedave/hybridTool/internal/model"
	"github.com/prototypedave/hybridTool/internal/queue"
	"github.com/prototypedave/hybridTool/internal/scan"
	"github.com/prototypedave/hybridTool/internal/session"
)

const (
	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout = 10 * time.Second

	// maxBodyBytes caps the size of a submission request.
	maxBodyBytes = 1 << 20

	readHeaderTimeout = 10 * time.Second
)

// Submitter turns submissions into jobs.
type Submitter interface {
	SubmitBatch(ctx context.Context, subs []scan.Submission) ([]scan.Accepted, error)
}

// Store reads jobs and stored results.
type Store interface {
	Latest(ctx context.Context, kind model.ResultKind, target string) (*model.Record, error)
	GetJob(ctx context.Context, id string) (*model.Job, error)
	DeleteJob(ctx context.Context, id string) error
	CountJobs(ctx context.Context) (map[model.JobStatus]int, error)
}

// CertInspector describes a target's TLS certificate.
type CertInspector interface {
	Inspect(ctx context.Context, target model.Target) (*model.CertificateInfo, error)
}

// QueueStats reports the job queue state.
type QueueStats interface {
	Stats() queue.Stats
}

// SessionStats reports the shared browser session state.
type SessionStats interface {
	Stats() session.Stats
}

// Server is the HTTP API.
type Server struct {
	submitter Submitter
	store     Store
	locator   geo.Locator
	inspector CertInspector
	queue     QueueStats
	sessions  SessionStats
	memory    func() (*mem.VirtualMemoryStat, error)
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithLocator enables GET /coord.
func WithLocator(loc geo.Locator) Option {
	return func(s *Server) {
		s.locator = loc
	}
}

// WithInspector enables GET /ssl.
func WithInspector(inspector CertInspector) Option {
	return func(s *Server) {
		s.inspector = inspector
	}
}

// WithQueueStats adds queue state to GET /healthz.
func WithQueueStats(q QueueStats) Option {
	return func(s *Server) {
		s.queue = q
	}
}

// WithSessionStats adds browser session state to GET /healthz.
func WithSessionStats(sessions SessionStats) Option {
	return func(s *Server) {
		s.sessions = sessions
	}
}

// WithMemoryStats overrides the host memory source of GET /healthz.
func WithMemoryStats(fn func() (*mem.VirtualMemoryStat, error)) Option {
	return func(s *Server) {
		s.memory = fn
	}
}

// New creates a Server.
func New(submitter Submitter, store Store, opts ...Option) *Server {
	s := &Server{
		submitter: submitter,
		store:     store,
		memory:    mem.VirtualMemory,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the API router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)

	r.Post("/report", s.handleSubmit)
	r.Get("/report/{target}", s.handleLatest(model.ResultPerformance))
	r.Delete("/report/{id}", s.handleDeleteJob)
	r.Get("/ping/{target}", s.handleLatest(model.ResultPing))
	r.Get("/trace/{target}", s.handleLatest(model.ResultTraceroute))
	r.Get("/security/{target}", s.handleLatest(model.ResultSecurity))
	r.Get("/coord/{target}", s.handleCoordinates)
	r.Get("/ssl/{target}", s.handleCertificate)

	r.Get("/jobs/{id}", s.handleGetJob)
	return r
}

// ListenAndServe serves the API on addr until ctx ends, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves the API on ln until ctx ends.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("http api listening", "address", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http api")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http api shutdown: %w", err)
	}
	return nil
}

// ResolveAddress returns the listen address. A PORT value, as set by
// most container platforms, replaces the port of the default address.
func ResolveAddress(configured, defaultAddress, port string) string {
	if port == "" || configured != defaultAddress {
		return configured
	}
	host, _, err := net.SplitHostPort(configured)
	if err != nil {
		return configured
	}
	return net.JoinHostPort(host, port)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
