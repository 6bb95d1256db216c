// Package backfill derives the normalized lookup tables (organizations,
// exhibit categories, appropriation titles) from loaded budget lines using
// deterministic, versioned classification rules.
package backfill

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/oversightworks/budgetdb/internal/model"
	"github.com/oversightworks/budgetdb/internal/store"
)

// Engine computes and inserts reference entities. Insert-if-absent: an
// existing code is never overwritten, so pre-seeded classifications survive
// and a second run inserts nothing.
type Engine struct {
	st    *store.SQLite
	rules Rules
}

// New creates a backfill engine with the given ruleset.
func New(st *store.SQLite, rules Rules) *Engine {
	return &Engine{st: st, rules: rules}
}

// Counts reports how many rows a run inserted (or, for a dry run, would
// insert) per variant.
type Counts struct {
	Organizations       int
	ExhibitCategories   int
	AppropriationTitles int
}

// Run derives reference entities from the distinct values in budget_lines.
// With dryRun the counts are computed without mutating the store.
func (e *Engine) Run(ctx context.Context, dryRun bool) (Counts, error) {
	log := zap.L().With(zap.String("component", "backfill"), zap.Bool("dry_run", dryRun))
	var counts Counts

	orgs, err := e.missingOrganizations(ctx)
	if err != nil {
		return counts, err
	}
	counts.Organizations = len(orgs)

	cats, err := e.missingExhibitCategories(ctx)
	if err != nil {
		return counts, err
	}
	counts.ExhibitCategories = len(cats)

	titles, err := e.missingAppropriationTitles(ctx)
	if err != nil {
		return counts, err
	}
	counts.AppropriationTitles = len(titles)

	if !dryRun {
		if err := e.st.InsertOrganizations(ctx, orgs); err != nil {
			return counts, err
		}
		if err := e.st.InsertExhibitCategories(ctx, cats); err != nil {
			return counts, err
		}
		if err := e.st.InsertAppropriationTitles(ctx, titles); err != nil {
			return counts, err
		}
	}

	log.Info("backfill complete",
		zap.Int("organizations", counts.Organizations),
		zap.Int("exhibit_categories", counts.ExhibitCategories),
		zap.Int("appropriation_titles", counts.AppropriationTitles),
	)
	return counts, nil
}

func (e *Engine) missingOrganizations(ctx context.Context) ([]model.Organization, error) {
	names, err := e.st.DistinctOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := e.st.ReferenceCodes(ctx, store.RefOrganizations)
	if err != nil {
		return nil, err
	}

	var orgs []model.Organization
	seen := make(map[string]struct{})
	for _, name := range names {
		code := normalizeCode(name)
		if code == "" {
			continue
		}
		if _, ok := existing[code]; ok {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		orgs = append(orgs, model.Organization{
			Code:           code,
			Title:          name,
			Classification: e.rules.ClassifyOrganization(name),
		})
	}
	return orgs, nil
}

func (e *Engine) missingExhibitCategories(ctx context.Context) ([]model.ExhibitCategory, error) {
	values, err := e.st.DistinctExhibits(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := e.st.ReferenceCodes(ctx, store.RefExhibitCategories)
	if err != nil {
		return nil, err
	}

	var cats []model.ExhibitCategory
	seen := make(map[string]struct{})
	for _, v := range values {
		code := strings.ToLower(strings.TrimSpace(v))
		if code == "" {
			continue
		}
		if _, ok := existing[code]; ok {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		cats = append(cats, model.ExhibitCategory{
			Code:           code,
			Title:          v,
			Classification: e.rules.ClassifyExhibit(code),
		})
	}
	return cats, nil
}

func (e *Engine) missingAppropriationTitles(ctx context.Context) ([]model.AppropriationTitle, error) {
	freqs, err := e.st.AccountTitleFrequencies(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := e.st.ReferenceCodes(ctx, store.RefAppropriationTitles)
	if err != nil {
		return nil, err
	}

	// Frequencies arrive ordered with each code's most common title first,
	// so the first nonempty title per code is the winner. Codes that never
	// carry a title fall back to the code itself.
	var order []string
	best := make(map[string]string)
	for _, f := range freqs {
		if _, ok := existing[f.Code]; ok {
			continue
		}
		if _, ok := best[f.Code]; !ok {
			order = append(order, f.Code)
			best[f.Code] = ""
		}
		if best[f.Code] == "" && f.Title != "" {
			best[f.Code] = f.Title
		}
	}

	var titles []model.AppropriationTitle
	for _, code := range order {
		title := best[code]
		if title == "" {
			title = code
		}
		titles = append(titles, model.AppropriationTitle{Code: code, Title: title})
	}
	return titles, nil
}

// normalizeCode lowercases a free-text value and collapses runs of
// non-alphanumerics to single underscores.
func normalizeCode(v string) string {
	var b strings.Builder
	lastUnder := true
	for _, r := range strings.ToLower(strings.TrimSpace(v)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnder = false
		default:
			if !lastUnder {
				b.WriteByte('_')
				lastUnder = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
