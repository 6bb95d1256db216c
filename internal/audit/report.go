package audit

import (
	"fmt"
	"sort"
	"strings"
)

// Render formats the report for humans: overall flagged percentage, counts
// by issue and source, and up to maxListed of the most significant pages.
func (r *Report) Render(maxListed int) string {
	var b strings.Builder

	flagged := len(r.Findings)
	pct := 0.0
	if r.TotalPages > 0 {
		pct = float64(flagged) / float64(r.TotalPages) * 100
	}
	fmt.Fprintf(&b, "Extraction quality audit: %d/%d pages flagged (%.1f%%)\n", flagged, r.TotalPages, pct)

	b.WriteString("\nBy issue:\n")
	for _, k := range sortedKeys(r.ByIssue) {
		fmt.Fprintf(&b, "  %-18s %d\n", k, r.ByIssue[k])
	}

	b.WriteString("\nBy source:\n")
	for _, k := range sortedKeys(r.BySource) {
		fmt.Fprintf(&b, "  %-18s %d\n", k, r.BySource[k])
	}

	worst := r.WorstPages(maxListed)
	if len(worst) > 0 {
		fmt.Fprintf(&b, "\nWorst pages (top %d):\n", len(worst))
		for _, f := range worst {
			fmt.Fprintf(&b, "  %s p.%d [%s] (%d chars)\n",
				f.SourceFile, f.PageNumber, strings.Join(f.Issues, ","), f.TextLength)
		}
	}

	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
