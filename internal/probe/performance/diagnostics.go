package performance

import (
	"regexp"
	"slices"
	"sort"
	"strconv"

	"github.com/prototypedave/hybridTool/internal/model"
)

const detailsTypeOpportunity = "opportunity"

// markdownLinkPattern matches the first "[text](url)" in an audit description.
var markdownLinkPattern = regexp.MustCompile(`\[[^\]]*\]\((https?://[^)\s]+)\)`)

// ExtractDiagnostics normalizes the opportunity audits of r, sorted by
// guidance level ascending. Audits of equal level keep their id order.
func ExtractDiagnostics(r *Report) []model.Diagnostic {
	ids := make([]string, 0, len(r.Audits))
	for id := range r.Audits {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	diags := make([]model.Diagnostic, 0)
	for _, id := range ids {
		a := r.Audits[id]
		if a.Details == nil || a.Details.Type != detailsTypeOpportunity {
			continue
		}
		diags = append(diags, normalize(id, a))
	}

	slices.SortStableFunc(diags, func(x, y model.Diagnostic) int {
		return x.Level - y.Level
	})
	return diags
}

func normalize(id string, a Audit) model.Diagnostic {
	d := model.Diagnostic{
		ID:          id,
		Title:       a.Title,
		Description: a.Description,
		Info:        a.DisplayValue,
		Link:        extractLink(a.Description),
		Metrics:     metricKeys(a.MetricSavings),
		Level:       a.GuidanceLevel,
		Savings:     savings(a.Details),
		Headings:    make([]model.DiagnosticHeading, 0, len(a.Details.Headings)),
		Items:       a.Details.Items,
	}
	for _, h := range a.Details.Headings {
		label := h.Label
		if label == "" {
			label = h.Text
		}
		d.Headings = append(d.Headings, model.DiagnosticHeading{
			Key:       h.Key,
			Label:     label,
			ValueType: h.ValueType,
		})
	}
	if d.Items == nil {
		d.Items = []map[string]any{}
	}
	return d
}

func extractLink(description string) string {
	m := markdownLinkPattern.FindStringSubmatch(description)
	if m == nil {
		return ""
	}
	return m[1]
}

func metricKeys(savings map[string]float64) []string {
	keys := make([]string, 0, len(savings))
	for k := range savings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// savings prefers time over transfer size.
func savings(d *Details) string {
	switch {
	case d.OverallSavingsMs > 0:
		return strconv.FormatFloat(d.OverallSavingsMs, 'f', -1, 64) + " ms"
	case d.OverallSavingsBytes > 0:
		return strconv.FormatFloat(d.OverallSavingsBytes/1024, 'f', -1, 64) + " KiB"
	default:
		return ""
	}
}
