package performance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/prototypedave/hybridTool/internal/model"
	"github.com/prototypedave/hybridTool/internal/probe"
	"github.com/prototypedave/hybridTool/internal/probe/toolexec"
)

// Lighthouse audit ids of the scored metrics.
const (
	AuditFCP = "first-contentful-paint"
	AuditLCP = "largest-contentful-paint"
	AuditTBT = "total-blocking-time"
	AuditCLS = "cumulative-layout-shift"
	AuditSI  = "speed-index"
)

// ErrMissingAudit is returned when a scored audit is absent from a report.
var ErrMissingAudit = errors.New("lighthouse report is missing an audit")

// Report is the subset of the Lighthouse result (LHR) this tool reads.
type Report struct {
	RequestedURL string           `json:"requestedUrl"`
	FinalURL     string           `json:"finalUrl"`
	Audits       map[string]Audit `json:"audits"`
	RuntimeError *RuntimeError    `json:"runtimeError,omitempty"`
}

// RuntimeError is set by Lighthouse when the page could not be audited.
type RuntimeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Audit is one Lighthouse audit result.
type Audit struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	DisplayValue  string             `json:"displayValue"`
	NumericValue  *float64           `json:"numericValue"`
	GuidanceLevel int                `json:"guidanceLevel"`
	MetricSavings map[string]float64 `json:"metricSavings"`
	Details       *Details           `json:"details"`
}

// Details holds the table of an audit.
type Details struct {
	Type                string           `json:"type"`
	OverallSavingsMs    float64          `json:"overallSavingsMs"`
	OverallSavingsBytes float64          `json:"overallSavingsBytes"`
	Headings            []Heading        `json:"headings"`
	Items               []map[string]any `json:"items"`
}

// Heading is a column of an audit table. Older reports use Text instead of Label.
type Heading struct {
	Key       string `json:"key"`
	ValueType string `json:"valueType"`
	Label     string `json:"label"`
	Text      string `json:"text"`
}

// ParseReport decodes a Lighthouse JSON report.
func ParseReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: invalid lighthouse report: %w", model.ErrExternalTool, err)
	}
	if r.RuntimeError != nil && r.RuntimeError.Code != "" && r.RuntimeError.Code != "NO_ERROR" {
		return nil, fmt.Errorf("%w: lighthouse runtime error %s: %s",
			model.ErrExternalTool, r.RuntimeError.Code, r.RuntimeError.Message)
	}
	return &r, nil
}

// RawMetrics extracts the numeric values of the scored audits.
func (r *Report) RawMetrics() (RawMetrics, error) {
	var raw RawMetrics
	for id, dst := range map[string]*float64{
		AuditFCP: &raw.FCP,
		AuditSI:  &raw.SI,
		AuditLCP: &raw.LCP,
		AuditTBT: &raw.TBT,
		AuditCLS: &raw.CLS,
	} {
		a, ok := r.Audits[id]
		if !ok || a.NumericValue == nil {
			return RawMetrics{}, fmt.Errorf("%w: %s", ErrMissingAudit, id)
		}
		*dst = *a.NumericValue
	}
	return raw, nil
}

// Auditor runs one Lighthouse audit against a browser listening on port.
type Auditor interface {
	Audit(ctx context.Context, target model.Target, ff model.FormFactor, port int) (*Report, error)
}

// LighthouseAuditor runs the lighthouse CLI.
type LighthouseAuditor struct {
	runner  toolexec.Runner
	command toolexec.Template
	timeout time.Duration
	logger  *slog.Logger
}

// AuditorOption configures a LighthouseAuditor.
type AuditorOption func(*LighthouseAuditor)

// WithAuditTimeout bounds a single lighthouse run.
func WithAuditTimeout(d time.Duration) AuditorOption {
	return func(a *LighthouseAuditor) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithAuditorLogger sets the logger.
func WithAuditorLogger(logger *slog.Logger) AuditorOption {
	return func(a *LighthouseAuditor) {
		a.logger = logger
	}
}

// NewLighthouseAuditor creates an auditor. command is the lighthouse
// executable, optionally with extra arguments.
func NewLighthouseAuditor(runner toolexec.Runner, command string, opts ...AuditorOption) (*LighthouseAuditor, error) {
	tmpl, err := toolexec.ParseTemplate(command)
	if err != nil {
		return nil, err
	}
	a := &LighthouseAuditor{
		runner:  runner,
		command: tmpl,
		timeout: 3 * time.Minute,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Args returns the lighthouse arguments for one audit.
func Args(target model.Target, ff model.FormFactor, port int) []string {
	args := []string{
		target.String(),
		"--port=" + strconv.Itoa(port),
		"--output=json",
		"--output-path=stdout",
		"--quiet",
		"--only-categories=performance",
	}
	if ff == model.FormFactorDesktop {
		return append(args, "--preset=desktop")
	}
	return append(args, "--form-factor=mobile")
}

// Audit runs lighthouse and decodes its report.
func (a *LighthouseAuditor) Audit(ctx context.Context, target model.Target, ff model.FormFactor, port int) (*Report, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	name, extra := a.command.Expand(map[string]string{
		"url":  target.String(),
		"port": strconv.Itoa(port),
	})
	args := append(extra, Args(target, ff, port)...)

	a.logger.Debug("running lighthouse", "target", target.String(), "form_factor", ff, "port", port)

	res, err := a.runner.Run(ctx, name, args...)
	if err != nil {
		if res != nil && len(res.Stderr) > 0 {
			a.logger.Debug("lighthouse stderr", "output", string(res.Stderr))
		}
		if errors.Is(err, toolexec.ErrNonZeroExit) || ctx.Err() != nil {
			return nil, err
		}
		// The binary is missing or not executable; retrying will not help.
		return nil, fmt.Errorf("%w: %w", probe.ErrPermanent, err)
	}
	return ParseReport(res.Stdout)
}
