package network

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/prototypedave/hybridTool/internal/model"
	"github.com/prototypedave/hybridTool/internal/probe/toolexec"
)

// DefaultTracerouteTimeout bounds a whole traceroute run.
const DefaultTracerouteTimeout = 2 * time.Minute


// hopPattern captures hop number, address and the first latency of a line
// such as " 3  core1.example.net (203.0.113.9)  11.482 ms  11.390 ms".
var hopPattern = regexp.MustCompile(`(\d+)\s+.*\(([\d.]+)\).*?([\d.]+) ms`)

// DefaultTracerouteCommand returns the traceroute template for the current OS.
func DefaultTracerouteCommand() string {
	if runtime.GOOS == "windows" {
		return "tracert {host}"
	}
	return "traceroute {host}"
}

// ParseTraceroute extracts hops from traceroute output.
// Lines that do not match the hop pattern (headers, "* * *") are skipped.
func ParseTraceroute(output string) []model.Hop {
	hops := make([]model.Hop, 0)
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		m := hopPattern.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		latency, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			continue
		}
		hops = append(hops, model.Hop{HopNumber: n, IPAddress: m[2], Latency: latency})
	}
	return hops
}

// CommandTracer runs the system traceroute.
type CommandTracer struct {
	runner  toolexec.Runner
	command toolexec.Template
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// TracerOption configures a CommandTracer.
type TracerOption func(*CommandTracer)

// WithTraceTimeout bounds a traceroute run.
func WithTraceTimeout(d time.Duration) TracerOption {
	return func(t *CommandTracer) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithTraceLogger sets the logger.
func WithTraceLogger(logger *slog.Logger) TracerOption {
	return func(t *CommandTracer) {
		t.logger = logger
	}
}

// WithTraceClock overrides the time source used for CapturedAt.
func WithTraceClock(now func() time.Time) TracerOption {
	return func(t *CommandTracer) {
		t.now = now
	}
}

// NewCommandTracer creates a tracer. An empty command selects DefaultTracerouteCommand.
func NewCommandTracer(runner toolexec.Runner, command string, opts ...TracerOption) (*CommandTracer, error) {
	if command == "" {
		command = DefaultTracerouteCommand()
	}
	tmpl, err := toolexec.ParseTemplate(command)
	if err != nil {
		return nil, err
	}
	t := &CommandTracer{
		runner:  runner,
		command: tmpl,
		timeout: DefaultTracerouteTimeout,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Trace runs traceroute against host and parses its hops.
// A non-zero exit is tolerated when the output still contains hops. A clean
// exit whose output matches no hop line yields an empty hop list.
func (t *CommandTracer) Trace(ctx context.Context, host string) (*model.TracerouteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	name, args := t.command.Expand(map[string]string{
		"host":      host,
		"timeout_s": strconv.Itoa(int(t.timeout.Seconds())),
	})

	res, err := t.runner.Run(ctx, name, args...)
	if err != nil && (!errors.Is(err, toolexec.ErrNonZeroExit) || res == nil) {
		return nil, err
	}

	hops := ParseTraceroute(string(res.Stdout))
	if len(hops) == 0 {
		if err != nil {
			return nil, err
		}
		hops = []model.Hop{}
	}
	t.logger.Debug("traceroute completed", "host", host, "hops", len(hops))

	return &model.TracerouteResult{
		Host:       host,
		Hops:       hops,
		CapturedAt: t.now(),
	}, nil
}
