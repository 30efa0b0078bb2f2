package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/prototypedave/hybridTool/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no stored result are shown.
	showEmpty bool

	// verbose adds traceroute hops, opportunity details and alert solutions.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writePerformance(&sb, summary)
	w.writeNetwork(&sb, summary)
	w.writeSecurity(&sb, summary)
	w.writeFailures(&sb, summary)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                         HYBRIDSCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Target:     %s\n", s.Target)
	fmt.Fprintf(sb, "Generated:  %s\n", s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	if s.Job != nil {
		fmt.Fprintf(sb, "Job:        %s (%s)\n", s.Job.ID, s.Job.Status)
		if s.Job.Error != "" {
			fmt.Fprintf(sb, "Job error:  %s\n", s.Job.Error)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writePerformance(sb *strings.Builder, s *Summary) {
	if s.Performance == nil && !w.showEmpty {
		return
	}
	section(sb, "PERFORMANCE")

	if s.Performance == nil {
		sb.WriteString("  No performance result stored\n\n")
		return
	}

	title := cases.Title(language.English)
	fmt.Fprintf(sb, "  Status:   %s\n", s.Performance.Status)
	fmt.Fprintf(sb, "  Captured: %s\n\n", s.Performance.CapturedAt.Format("2006-01-02 15:04:05 MST"))

	for _, r := range s.Performance.Reports {
		fmt.Fprintf(sb, "  [%s]", title.String(string(r.FormFactor)))
		if r.Metrics == nil {
			fmt.Fprintf(sb, " FAILED after %d attempt(s): %s\n\n", r.Attempts, r.Error)
			continue
		}
		fmt.Fprintf(sb, " score %s\n", formatScore(r.Metrics.TotalPerformance))
		for _, m := range metricRows(r.Metrics) {
			fmt.Fprintf(sb, "    %-4s %6s  %s\n", m.name, formatScore(m.score.Value), m.raw())
		}

		if len(r.Diagnostics) > 0 {
			fmt.Fprintf(sb, "    Opportunities: %d\n", len(r.Diagnostics))
			for _, d := range r.Diagnostics {
				line := "      * " + d.Title
				if d.Savings != "" {
					line += " (saves " + d.Savings + ")"
				}
				sb.WriteString(line + "\n")
				if w.verbose && d.Info != "" {
					fmt.Fprintf(sb, "        %s\n", d.Info)
				}
				if w.verbose && d.Link != "" {
					fmt.Fprintf(sb, "        %s\n", d.Link)
				}
			}
		}
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeNetwork(sb *strings.Builder, s *Summary) {
	if s.Ping == nil && s.Traceroute == nil && !w.showEmpty {
		return
	}
	section(sb, "NETWORK")

	if p := s.Ping; p != nil {
		state := "unreachable"
		if p.Alive {
			state = "alive"
		}
		fmt.Fprintf(sb, "  Ping %s: %s, packet loss %s%%\n", p.Host, state, p.PacketLoss)
		fmt.Fprintf(sb, "    min %s  avg %s  max %s\n", formatMillis(p.Min), formatMillis(p.Avg), formatMillis(p.Max))
	} else {
		sb.WriteString("  No ping result stored\n")
	}

	if tr := s.Traceroute; tr != nil {
		fmt.Fprintf(sb, "  Traceroute %s: %d hop(s)\n", tr.Host, len(tr.Hops))
		if w.verbose {
			for _, h := range tr.Hops {
				fmt.Fprintf(sb, "    %3d  %-15s  %.2f ms\n", h.HopNumber, h.IPAddress, h.Latency)
			}
		}
	} else {
		sb.WriteString("  No traceroute result stored\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSecurity(sb *strings.Builder, s *Summary) {
	if s.Security == nil && !w.showEmpty {
		return
	}
	section(sb, "SECURITY")

	if s.Security == nil {
		sb.WriteString("  No security result stored\n\n")
		return
	}

	counts := s.AlertCounts()
	for _, risk := range riskLevels {
		fmt.Fprintf(sb, "  %-14s %d\n", strings.ToUpper(risk)+":", counts[risk])
	}
	fmt.Fprintf(sb, "\n  TOTAL:         %d alert(s), %d new\n\n", len(s.Security.Alerts), len(s.Security.NewAlertRefs))

	for _, risk := range riskLevels {
		alerts := s.AlertsByRisk(risk)
		if len(alerts) == 0 {
			continue
		}
		fmt.Fprintf(sb, "[%s] %s\n", riskIndicator(risk), risk)
		for _, a := range alerts {
			line := "  * " + a.Name
			if a.CWEID > 0 {
				line += fmt.Sprintf(" (CWE-%d)", a.CWEID)
			}
			if s.IsNewAlert(a.AlertRef) {
				line += " [new]"
			}
			sb.WriteString(line + "\n")
			if w.verbose && a.Solution != "" {
				fmt.Fprintf(sb, "    Solution: %s\n", truncateString(a.Solution, 200))
			}
		}
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, s *Summary) {
	failed := s.FailedKinds()
	if len(failed) == 0 {
		return
	}
	section(sb, "LAST ATTEMPT FAILED")
	for _, kind := range failed {
		fmt.Fprintf(sb, "  %s: %s\n", kind, s.Failures[kind])
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by hybridscan\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}

func riskIndicator(risk string) string {
	switch risk {
	case "High":
		return "!!!"
	case "Medium":
		return "!!"
	case "Low":
		return "!"
	case "Informational":
		return "i"
	default:
		return "?"
	}
}

type metricRow struct {
	name  string
	score model.MetricScore
	unit  string
}

func (m metricRow) raw() string {
	if m.unit == "" {
		return fmt.Sprintf("%.3f", m.score.Time)
	}
	return fmt.Sprintf("%.0f %s", m.score.Time, m.unit)
}

func metricRows(pm *model.PerformanceMetrics) []metricRow {
	return []metricRow{
		{name: "FCP", score: pm.FCP, unit: "ms"},
		{name: "SI", score: pm.SI, unit: "ms"},
		{name: "LCP", score: pm.LCP, unit: "ms"},
		{name: "TBT", score: pm.TBT, unit: "ms"},
		{name: "CLS", score: pm.CLS},
	}
}
