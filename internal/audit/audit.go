// Package audit scores ingested page text for extraction corruption and
// failure signatures and produces a findings report.
package audit

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/oversightworks/budgetdb/internal/model"
	"github.com/oversightworks/budgetdb/internal/store"
)

// Issue signatures. Each is evaluated independently per page.
const (
	IssueHighNonASCII    = "high_non_ascii"
	IssueWhitespaceHeavy = "whitespace_heavy"
	IssueVeryShortText   = "very_short_text"
	IssueEmptyTableData  = "empty_table_data"
)

const (
	nonASCIIRatioMax   = 0.15
	blankLineRatioMax  = 0.50
	veryShortTextChars = 10 // trimmed length at or under this is a failed extraction
)

// Finding flags one page with the signatures that fired on it.
type Finding struct {
	SourceFile     string   `json:"source_file"`
	PageNumber     int      `json:"page_number"`
	Issues         []string `json:"issues"`
	SourceCategory string   `json:"source_category"`
	TextLength     int      `json:"text_length"`
}

// Report is the result of one audit pass. Pages with zero fired signatures
// are not included in Findings.
type Report struct {
	TotalPages int            `json:"total_pages"`
	Findings   []Finding      `json:"findings"`
	ByIssue    map[string]int `json:"by_issue"`
	BySource   map[string]int `json:"by_source"`
}

// Auditor evaluates every page record in the store.
type Auditor struct {
	st *store.SQLite
}

// New creates an extraction quality auditor.
func New(st *store.SQLite) *Auditor {
	return &Auditor{st: st}
}

// Run evaluates all pages and assembles the report. Read-only; findings are
// recomputed on every run, never persisted.
func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		ByIssue:  make(map[string]int),
		BySource: make(map[string]int),
	}

	err := a.st.ForEachPage(ctx, func(p model.PageRecord) error {
		report.TotalPages++

		issues := evaluatePage(p)
		if len(issues) == 0 {
			return nil
		}

		f := Finding{
			SourceFile:     p.SourceFile,
			PageNumber:     p.PageNumber,
			Issues:         issues,
			SourceCategory: SourceCategory(p.SourceFile),
			TextLength:     len(strings.TrimSpace(p.Text)),
		}
		report.Findings = append(report.Findings, f)
		for _, issue := range issues {
			report.ByIssue[issue]++
		}
		report.BySource[f.SourceCategory]++
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("quality audit complete",
		zap.String("component", "audit"),
		zap.Int("total_pages", report.TotalPages),
		zap.Int("flagged", len(report.Findings)),
	)
	return report, nil
}

// evaluatePage returns the fired signatures in a fixed order.
func evaluatePage(p model.PageRecord) []string {
	var issues []string

	if nonASCIIRatio(p.Text) > nonASCIIRatioMax {
		issues = append(issues, IssueHighNonASCII)
	}
	if blankLineRatio(p.Text) > blankLineRatioMax {
		issues = append(issues, IssueWhitespaceHeavy)
	}
	if len([]rune(strings.TrimSpace(p.Text))) <= veryShortTextChars {
		issues = append(issues, IssueVeryShortText)
	}
	if p.HasTables && strings.TrimSpace(p.TableData) == "" {
		issues = append(issues, IssueEmptyTableData)
	}
	return issues
}

func nonASCIIRatio(text string) float64 {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0
	}
	n := 0
	for _, r := range runes {
		if r > 127 {
			n++
		}
	}
	return float64(n) / float64(len(runes))
}

func blankLineRatio(text string) float64 {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		return 0
	}
	blank := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blank++
		}
	}
	return float64(blank) / float64(len(lines))
}

// sourceCategories is checked in order; first path keyword match wins.
var sourceCategories = []struct {
	keyword  string
	category string
}{
	{"army", "army"},
	{"navy", "navy"},
	{"air force", "air force"},
	{"space force", "space force"},
	{"marine corps", "marine corps"},
	{"defense-wide", "defense-wide"},
	{"comptroller", "comptroller"},
}

// SourceCategory derives a coarse document source from its path.
func SourceCategory(path string) string {
	lower := strings.ToLower(path)
	for _, sc := range sourceCategories {
		if strings.Contains(lower, sc.keyword) {
			return sc.category
		}
	}
	return "other"
}

// WorstPages returns up to limit findings ordered by how many signatures
// fired (most first), then by source file and page for stability.
func (r *Report) WorstPages(limit int) []Finding {
	worst := make([]Finding, len(r.Findings))
	copy(worst, r.Findings)
	sort.SliceStable(worst, func(i, j int) bool {
		if len(worst[i].Issues) != len(worst[j].Issues) {
			return len(worst[i].Issues) > len(worst[j].Issues)
		}
		if worst[i].SourceFile != worst[j].SourceFile {
			return worst[i].SourceFile < worst[j].SourceFile
		}
		return worst[i].PageNumber < worst[j].PageNumber
	})
	if limit > 0 && len(worst) > limit {
		worst = worst[:limit]
	}
	return worst
}
