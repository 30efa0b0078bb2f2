package model

import "time"

// MetricScore is one scored Lighthouse metric.
// Value is the 0..100 score, Time is the raw measurement
// (milliseconds, or unitless for CLS).
type MetricScore struct {
	Value float64 `json:"value"`
	Time  float64 `json:"time"`
}

// PerformanceMetrics is the scored metric set for one form factor.
type PerformanceMetrics struct {
	FCP              MetricScore `json:"fcp"`
	SI               MetricScore `json:"si"`
	LCP              MetricScore `json:"lcp"`
	TBT              MetricScore `json:"tbt"`
	CLS              MetricScore `json:"cls"`
	TotalPerformance float64     `json:"totalPerformance"`
}

// DiagnosticHeading describes one column of a diagnostic's item table.
type DiagnosticHeading struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	ValueType string `json:"valueType,omitempty"`
}

// Diagnostic is a normalized Lighthouse "opportunity" audit.
type Diagnostic struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Info        string              `json:"info"`
	Link        string              `json:"link"`
	Metrics     []string            `json:"metrics"`
	Level       int                 `json:"level"`
	Savings     string              `json:"savings"`
	Headings    []DiagnosticHeading `json:"headings"`
	Items       []map[string]any    `json:"items"`
}

// FormFactorReport is the outcome of one sub-audit.
type FormFactorReport struct {
	FormFactor  FormFactor          `json:"formFactor"`
	Metrics     *PerformanceMetrics `json:"metrics,omitempty"`
	Diagnostics []Diagnostic        `json:"diagnostics,omitempty"`
	Attempts    int                 `json:"attempts"`
	Error       string              `json:"error,omitempty"`
}

// PerformanceResult is the payload stored under ResultPerformance.
type PerformanceResult struct {
	Target     string             `json:"target"`
	Status     ProbeStatus        `json:"status"`
	Reports    []FormFactorReport `json:"reports"`
	CapturedAt time.Time          `json:"capturedAt"`
}

// Report returns the sub-audit for the form factor, or nil.
func (r *PerformanceResult) Report(ff FormFactor) *FormFactorReport {
	for i := range r.Reports {
		if r.Reports[i].FormFactor == ff {
			return &r.Reports[i]
		}
	}
	return nil
}
