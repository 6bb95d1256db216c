package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Report bundles the findings of both checks for rendering. Findings are
// deterministic; RunID and GeneratedAt identify the run artifact.
type Report struct {
	RunID        string                `json:"run_id"`
	GeneratedAt  time.Time             `json:"generated_at"`
	CrossService []CrossServiceFinding `json:"cross_service"`
	CrossExhibit []CrossExhibitFinding `json:"cross_exhibit"`
}

// Run executes both checks and assembles a report.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	cs, err := e.CrossService(ctx)
	if err != nil {
		return nil, err
	}
	ce, err := e.CrossExhibit(ctx)
	if err != nil {
		return nil, err
	}
	return &Report{
		RunID:        uuid.New().String(),
		GeneratedAt:  time.Now().UTC(),
		CrossService: cs,
		CrossExhibit: ce,
	}, nil
}

// Render formats the report for humans. The findings portion depends only
// on the findings themselves.
func (r *Report) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Reconciliation report %s (%s)\n\n", r.RunID, r.GeneratedAt.Format(time.RFC3339))

	fmt.Fprintf(&b, "Cross-service check: %d findings, %d outside tolerance\n", len(r.CrossService), countServiceFailures(r.CrossService))
	for _, f := range r.CrossService {
		status := "OK"
		if !f.WithinTolerance {
			status = "FAIL"
		}
		if f.ComptrollerTotal == nil {
			// A missing counterpart is a notice, not a tolerance failure.
			fmt.Fprintf(&b, "  [NOTE] %s %s: services=%.1f comptroller=null (%s)\n",
				f.Exhibit, f.Field, f.ServiceSum, f.Note)
			continue
		}
		fmt.Fprintf(&b, "  [%s] %s %s: services=%.1f comptroller=%.1f delta=%.1f\n",
			status, f.Exhibit, f.Field, f.ServiceSum, *f.ComptrollerTotal, f.Delta)
	}

	fmt.Fprintf(&b, "\nCross-exhibit check: %d findings, %d outside tolerance\n", len(r.CrossExhibit), countExhibitFailures(r.CrossExhibit))
	for _, f := range r.CrossExhibit {
		status := "OK"
		if !f.WithinTolerance {
			status = "FAIL"
		}
		if f.DetailTotal == nil {
			fmt.Fprintf(&b, "  [NOTE] %s->%s %s %s: summary=%.1f detail=null (%s)\n",
				f.SummaryExhibit, f.DetailExhibit, f.Organization, f.Field, f.SummaryTotal, f.Note)
			continue
		}
		fmt.Fprintf(&b, "  [%s] %s->%s %s %s: summary=%.1f detail=%.1f delta=%.1f\n",
			status, f.SummaryExhibit, f.DetailExhibit, f.Organization, f.Field, f.SummaryTotal, *f.DetailTotal, f.Delta)
	}

	return b.String()
}

// Missing-counterpart findings are notices and do not count as tolerance
// failures.
func countServiceFailures(fs []CrossServiceFinding) int {
	n := 0
	for _, f := range fs {
		if f.ComptrollerTotal != nil && !f.WithinTolerance {
			n++
		}
	}
	return n
}

func countExhibitFailures(fs []CrossExhibitFinding) int {
	n := 0
	for _, f := range fs {
		if f.DetailTotal != nil && !f.WithinTolerance {
			n++
		}
	}
	return n
}
