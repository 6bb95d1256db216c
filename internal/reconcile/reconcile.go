// Package reconcile runs the two cross-source consistency checks over a
// loaded store: service-level sums against the department roll-up, and
// summary exhibits against their corresponding detail exhibits. Both checks
// are read-only and deterministic: two runs against an unchanged store
// produce identical findings.
package reconcile

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/oversightworks/budgetdb/internal/store"
)

// Config tunes the reconciliation checks.
type Config struct {
	// ToleranceThousands is the largest absolute delta, in thousands of
	// dollars, still considered a pass.
	ToleranceThousands float64
	// RollupOrg is the organization value of the department-level roll-up
	// rows (case-insensitive match).
	RollupOrg string
	// ExhibitPairs maps summary exhibits to the detail exhibits whose rows
	// should sum to them.
	ExhibitPairs []ExhibitPair
}

// ExhibitPair names a summary exhibit and the detail exhibit that should
// sum to it per organization.
type ExhibitPair struct {
	Summary string
	Detail  string
}

// DefaultConfig returns the standard check configuration.
func DefaultConfig() Config {
	return Config{
		ToleranceThousands: 100,
		RollupOrg:          "total",
		ExhibitPairs: []ExhibitPair{
			{Summary: "p-1", Detail: "p-40"},
			{Summary: "r-1", Detail: "r-2"},
			{Summary: "o-1", Detail: "o-1a"},
		},
	}
}

// CrossServiceFinding compares the sum of service-level totals against the
// department roll-up for one (exhibit, amount field) pair. A nil
// ComptrollerTotal means no roll-up row exists; the note explains.
type CrossServiceFinding struct {
	Exhibit          string   `json:"exhibit"`
	Field            string   `json:"field"`
	ServiceSum       float64  `json:"service_sum"`
	ComptrollerTotal *float64 `json:"comptroller_total"`
	Delta            float64  `json:"delta"`
	WithinTolerance  bool     `json:"within_tolerance"`
	Note             string   `json:"note,omitempty"`
}

// CrossExhibitFinding compares a summary exhibit's total against the sum of
// the corresponding detail exhibit's rows for one organization and amount
// field. A nil DetailTotal means the detail exhibit has no rows for the
// organization; the note contains "missing".
type CrossExhibitFinding struct {
	SummaryExhibit  string   `json:"summary_exhibit"`
	DetailExhibit   string   `json:"detail_exhibit"`
	Organization    string   `json:"organization"`
	Field           string   `json:"field"`
	SummaryTotal    float64  `json:"summary_total"`
	DetailTotal     *float64 `json:"detail_total"`
	Delta           float64  `json:"delta"`
	WithinTolerance bool     `json:"within_tolerance"`
	Note            string   `json:"note,omitempty"`
}

// Engine runs the consistency checks.
type Engine struct {
	st  *store.SQLite
	cfg Config
}

// New creates a reconciliation engine.
func New(st *store.SQLite, cfg Config) *Engine {
	if cfg.RollupOrg == "" {
		cfg.RollupOrg = DefaultConfig().RollupOrg
	}
	return &Engine{st: st, cfg: cfg}
}

// CrossService compares, per (exhibit, amount field), the sum across all
// organization-level rows against the department roll-up row.
func (e *Engine) CrossService(ctx context.Context) ([]CrossServiceFinding, error) {
	serviceSums, err := e.st.ServiceSums(ctx, e.cfg.RollupOrg)
	if err != nil {
		return nil, err
	}
	rollupSums, err := e.st.RollupSums(ctx, e.cfg.RollupOrg)
	if err != nil {
		return nil, err
	}

	rollup := make(map[[2]string]float64, len(rollupSums))
	for _, r := range rollupSums {
		rollup[[2]string{r.Exhibit, r.Field}] = r.Sum
	}

	findings := make([]CrossServiceFinding, 0, len(serviceSums))
	for _, s := range serviceSums {
		f := CrossServiceFinding{
			Exhibit:    s.Exhibit,
			Field:      s.Field,
			ServiceSum: s.Sum,
		}
		if total, ok := rollup[[2]string{s.Exhibit, s.Field}]; ok {
			t := total
			f.ComptrollerTotal = &t
			f.Delta = s.Sum - total
			f.WithinTolerance = math.Abs(f.Delta) <= e.cfg.ToleranceThousands
		} else {
			f.Note = "no department roll-up row for this exhibit and field"
		}
		findings = append(findings, f)
	}

	// ServiceSums is already ordered, but sort defensively so findings are
	// byte-identical across runs regardless of query plan.
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Exhibit != findings[j].Exhibit {
			return findings[i].Exhibit < findings[j].Exhibit
		}
		return findings[i].Field < findings[j].Field
	})

	zap.L().Info("cross-service check complete",
		zap.String("component", "reconcile"),
		zap.Int("findings", len(findings)),
	)
	return findings, nil
}

// CrossExhibit compares, for each configured summary/detail exhibit pair,
// per-organization per-field totals.
func (e *Engine) CrossExhibit(ctx context.Context) ([]CrossExhibitFinding, error) {
	var findings []CrossExhibitFinding

	for _, pair := range e.cfg.ExhibitPairs {
		summary, err := e.st.OrgFieldSums(ctx, pair.Summary, e.cfg.RollupOrg)
		if err != nil {
			return nil, err
		}
		if len(summary) == 0 {
			continue
		}
		detail, err := e.st.OrgFieldSums(ctx, pair.Detail, e.cfg.RollupOrg)
		if err != nil {
			return nil, err
		}

		detailByOrgField := make(map[[2]string]float64, len(detail))
		detailOrgs := make(map[string]bool)
		for _, d := range detail {
			detailByOrgField[[2]string{d.Organization, d.Field}] = d.Sum
			detailOrgs[d.Organization] = true
		}

		for _, s := range summary {
			f := CrossExhibitFinding{
				SummaryExhibit: pair.Summary,
				DetailExhibit:  pair.Detail,
				Organization:   s.Organization,
				Field:          s.Field,
				SummaryTotal:   s.Sum,
			}
			switch {
			case !detailOrgs[s.Organization]:
				f.Note = "detail exhibit rows missing for organization"
			default:
				total, ok := detailByOrgField[[2]string{s.Organization, s.Field}]
				if !ok {
					f.Note = "detail exhibit value missing for field"
					break
				}
				t := total
				f.DetailTotal = &t
				f.Delta = s.Sum - total
				f.WithinTolerance = math.Abs(f.Delta) <= e.cfg.ToleranceThousands
			}
			findings = append(findings, f)
		}
	}

	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.SummaryExhibit != b.SummaryExhibit {
			return a.SummaryExhibit < b.SummaryExhibit
		}
		if a.Organization != b.Organization {
			return a.Organization < b.Organization
		}
		return a.Field < b.Field
	})

	zap.L().Info("cross-exhibit check complete",
		zap.String("component", "reconcile"),
		zap.Int("findings", len(findings)),
	)
	return findings, nil
}
