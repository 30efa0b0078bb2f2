package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MarkdownWriter outputs summaries in Markdown format for sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writePerformance(md, summary)
	w.writeNetwork(md, summary)
	w.writeSecurity(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1("hybridscan Report")
	md.PlainText("")

	rows := [][]string{
		{"Target", "`" + s.Target + "`"},
		{"Generated", s.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
	}
	if s.Job != nil {
		rows = append(rows, []string{"Job", "`" + s.Job.ID + "` (" + string(s.Job.Status) + ")"})
	}
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")

	for _, kind := range s.FailedKinds() {
		md.Warningf("The last %s attempt failed: %s", kind, s.Failures[kind])
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writePerformance(md *markdown.Markdown, s *Summary) {
	md.H2("Performance")
	md.PlainText("")

	if s.Performance == nil {
		md.PlainText("No performance result stored.")
		md.PlainText("")
		return
	}

	title := cases.Title(language.English)
	header := []string{"Form factor", "Score", "FCP", "SI", "LCP", "TBT", "CLS"}
	var rows [][]string
	for _, r := range s.Performance.Reports {
		name := title.String(string(r.FormFactor))
		if r.Metrics == nil {
			rows = append(rows, []string{name, "failed", "-", "-", "-", "-", "-"})
			continue
		}
		row := []string{name, "**" + formatScore(r.Metrics.TotalPerformance) + "**"}
		for _, m := range metricRows(r.Metrics) {
			row = append(row, formatScore(m.score.Value)+" ("+m.raw()+")")
		}
		rows = append(rows, row)
	}
	md.Table(markdown.TableSet{Header: header, Rows: rows})
	md.PlainText("")

	for _, r := range s.Performance.Reports {
		if len(r.Diagnostics) == 0 {
			continue
		}
		md.H3(title.String(string(r.FormFactor)) + " opportunities")
		md.PlainText("")

		drows := make([][]string, 0, len(r.Diagnostics))
		for _, d := range r.Diagnostics {
			savings := d.Savings
			if savings == "" {
				savings = "-"
			}
			drows = append(drows, []string{d.Title, savings, strconv.Itoa(d.Level)})
		}
		md.Table(markdown.TableSet{Header: []string{"Opportunity", "Savings", "Level"}, Rows: drows})
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeNetwork(md *markdown.Markdown, s *Summary) {
	md.H2("Network")
	md.PlainText("")

	if p := s.Ping; p != nil {
		alive := "no"
		if p.Alive {
			alive = "yes"
		}
		md.Table(markdown.TableSet{
			Header: []string{"Host", "Alive", "Packet loss", "Min", "Avg", "Max"},
			Rows: [][]string{{
				p.Host, alive, p.PacketLoss + "%",
				formatMillis(p.Min), formatMillis(p.Avg), formatMillis(p.Max),
			}},
		})
		md.PlainText("")
	} else {
		md.PlainText("No ping result stored.")
		md.PlainText("")
	}

	if tr := s.Traceroute; tr != nil && len(tr.Hops) > 0 {
		rows := make([][]string, 0, len(tr.Hops))
		for _, h := range tr.Hops {
			rows = append(rows, []string{
				strconv.Itoa(h.HopNumber),
				h.IPAddress,
				strconv.FormatFloat(h.Latency, 'f', 2, 64) + " ms",
			})
		}
		md.H3("Traceroute")
		md.PlainText("")
		md.Table(markdown.TableSet{Header: []string{"Hop", "Address", "Latency"}, Rows: rows})
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeSecurity(md *markdown.Markdown, s *Summary) {
	md.H2("Security")
	md.PlainText("")

	if s.Security == nil {
		md.PlainText("No security result stored.")
		md.PlainText("")
		return
	}

	counts := s.AlertCounts()
	rows := make([][]string, 0, len(riskLevels)+1)
	for _, risk := range riskLevels {
		rows = append(rows, []string{risk, strconv.Itoa(counts[risk])})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(len(s.Security.Alerts)) + "**"})
	md.Table(markdown.TableSet{Header: []string{"Risk", "Alerts"}, Rows: rows})
	md.PlainText("")

	if len(s.Security.Alerts) > 0 {
		w.writePieChart(md, counts)
	}
	w.writeAlert(md, s, counts)

	for _, risk := range riskLevels {
		alerts := s.AlertsByRisk(risk)
		if len(alerts) == 0 {
			continue
		}
		md.H3(risk)
		md.PlainText("")

		arows := make([][]string, 0, len(alerts))
		for _, a := range alerts {
			name := a.Name
			if s.IsNewAlert(a.AlertRef) {
				name += " 🆕"
			}
			cwe := "-"
			if a.CWEID > 0 {
				cwe = "CWE-" + strconv.Itoa(a.CWEID)
			}
			arows = append(arows, []string{name, a.Confidence, cwe, truncateString(a.Solution, 60)})
		}
		md.Table(markdown.TableSet{Header: []string{"Alert", "Confidence", "CWE", "Solution"}, Rows: arows})
		md.PlainText("")

		for _, a := range alerts {
			if a.Description != "" {
				md.Details(a.Name, a.Description)
			}
		}
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[string]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Alert Risk Distribution"),
		piechart.WithShowData(true),
	)
	for _, risk := range riskLevels {
		if counts[risk] > 0 {
			chart.LabelAndIntValue(risk, uint64(counts[risk]))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *Summary, counts map[string]int) {
	newCount := len(s.Security.NewAlertRefs)
	switch {
	case counts["High"] > 0:
		md.Cautionf("%d high risk alert(s) require immediate attention.", counts["High"])
	case counts["Medium"] > 0:
		md.Warningf("%d medium risk alert(s) should be addressed.", counts["Medium"])
	case len(s.Security.Alerts) > 0:
		md.Note("Only low risk and informational alerts detected.")
	default:
		md.Tip("No alerts reported by the scanner.")
	}
	md.PlainText("")
	if newCount > 0 {
		md.Importantf("%d alert(s) appeared for the first time in the latest scan.", newCount)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by hybridscan*")
}
