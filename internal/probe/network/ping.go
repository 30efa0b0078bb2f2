package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"runtime"
	"strconv"
	"time"

	"github.com/prototypedave/hybridTool/internal/model"
	"github.com/prototypedave/hybridTool/internal/probe/toolexec"
)

// Ping defaults.
const (
	DefaultPingCount   = 6
	DefaultPingTimeout = time.Second
)

// rttPattern matches "time=12.3 ms" (Linux, macOS) and "time<1ms" (Windows).
var rttPattern = regexp.MustCompile(`time[=<]([\d.]+)\s*ms`)

// DefaultPingCommand returns the single-echo ping template for the current OS.
func DefaultPingCommand() string {
	switch runtime.GOOS {
	case "windows":
		return "ping -n 1 -w {timeout_ms} {host}"
	case "darwin":
		return "ping -n -c 1 -W {timeout_ms} {host}"
	default:
		return "ping -n -c 1 -W {timeout_s} {host}"
	}
}

// ParsePingRTT extracts the round trip time in milliseconds from the
// output of a single echo.
func ParsePingRTT(output string) (float64, bool) {
	m := rttPattern.FindStringSubmatch(output)
	if m == nil {
		return 0, false
	}
	rtt, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return rtt, true
}

// Summarize builds ping metrics from the round trip times of the
// successful attempts, in the order they completed.
func Summarize(host string, rtts []float64, attempts int) *model.PingMetrics {
	m := &model.PingMetrics{
		Host:       host,
		Attempts:   attempts,
		PacketLoss: "100.00",
	}
	if len(rtts) == 0 || attempts == 0 {
		return m
	}

	minRTT, maxRTT, sum := math.Inf(1), math.Inf(-1), 0.0
	for _, rtt := range rtts {
		minRTT = math.Min(minRTT, rtt)
		maxRTT = math.Max(maxRTT, rtt)
		sum += rtt
	}
	last := rtts[len(rtts)-1]
	avg := sum / float64(len(rtts))
	lost := float64(attempts-len(rtts)) / float64(attempts) * 100

	m.Alive = true
	m.Time = &last
	m.Min = &minRTT
	m.Max = &maxRTT
	m.Avg = &avg
	m.PacketLoss = fmt.Sprintf("%.2f", lost)
	return m
}

// CommandPinger sends echo requests one process at a time.
type CommandPinger struct {
	runner  toolexec.Runner
	command toolexec.Template
	count   int
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// PingerOption configures a CommandPinger.
type PingerOption func(*CommandPinger)

// WithPingCount sets the number of echo attempts.
func WithPingCount(n int) PingerOption {
	return func(p *CommandPinger) {
		if n > 0 {
			p.count = n
		}
	}
}

// WithPingTimeout sets the timeout of a single echo.
func WithPingTimeout(d time.Duration) PingerOption {
	return func(p *CommandPinger) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithPingLogger sets the logger.
func WithPingLogger(logger *slog.Logger) PingerOption {
	return func(p *CommandPinger) {
		p.logger = logger
	}
}

// WithPingClock overrides the time source used for CapturedAt.
func WithPingClock(now func() time.Time) PingerOption {
	return func(p *CommandPinger) {
		p.now = now
	}
}

// NewCommandPinger creates a pinger. An empty command selects DefaultPingCommand.
func NewCommandPinger(runner toolexec.Runner, command string, opts ...PingerOption) (*CommandPinger, error) {
	if command == "" {
		command = DefaultPingCommand()
	}
	tmpl, err := toolexec.ParseTemplate(command)
	if err != nil {
		return nil, err
	}
	p := &CommandPinger{
		runner:  runner,
		command: tmpl,
		count:   DefaultPingCount,
		timeout: DefaultPingTimeout,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Ping runs the configured number of single-echo attempts against host.
// Lost echoes are not errors; Ping only fails when the tool cannot be
// started or ctx ends.
func (p *CommandPinger) Ping(ctx context.Context, host string) (*model.PingMetrics, error) {
	name, args := p.command.Expand(map[string]string{
		"host":       host,
		"timeout_s":  strconv.Itoa(max(1, int(math.Ceil(p.timeout.Seconds())))),
		"timeout_ms": strconv.FormatInt(p.timeout.Milliseconds(), 10),
	})

	rtts := make([]float64, 0, p.count)
	for attempt := 1; attempt <= p.count; attempt++ {
		rtt, ok, err := p.once(ctx, name, args)
		if err != nil {
			return nil, err
		}
		if ok {
			rtts = append(rtts, rtt)
		}
		p.logger.Debug("ping attempt", "host", host, "attempt", attempt, "ok", ok, "rtt_ms", rtt)
	}

	m := Summarize(host, rtts, p.count)
	m.CapturedAt = p.now()
	return m, nil
}

func (p *CommandPinger) once(ctx context.Context, name string, args []string) (float64, bool, error) {
	// The tool enforces the echo timeout itself; the context only catches hangs.
	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout+time.Second)
	defer cancel()

	res, err := p.runner.Run(attemptCtx, name, args...)
	if ctx.Err() != nil {
		return 0, false, ctx.Err()
	}
	if err != nil && !errors.Is(err, toolexec.ErrNonZeroExit) && attemptCtx.Err() == nil {
		return 0, false, err
	}
	if res == nil {
		return 0, false, nil
	}
	rtt, ok := ParsePingRTT(string(res.Stdout))
	return rtt, ok, nil
}
