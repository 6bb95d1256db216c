package store

import (
	"context"

	"github.com/oversightworks/budgetdb/internal/model"
)

// DistinctOrganizations returns the distinct non-empty organization values
// present in budget_lines, in lexicographic order.
func (s *SQLite) DistinctOrganizations(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "organization")
}

// DistinctExhibits returns the distinct non-empty exhibit values present in
// budget_lines, in lexicographic order.
func (s *SQLite) DistinctExhibits(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "exhibit")
}

func (s *SQLite) distinct(ctx context.Context, column string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT "+column+" FROM budget_lines WHERE "+column+" <> '' ORDER BY "+column)
	if err != nil {
		return nil, wrapStore("distinct "+column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, wrapStore("scan "+column, err)
		}
		values = append(values, v)
	}
	return values, wrapErr(rows.Err(), "iterate "+column)
}

// AccountTitleCount is how often a (code, title) pairing occurs in the
// loaded lines.
type AccountTitleCount struct {
	Code  string
	Title string
	Count int
}

// AccountTitleFrequencies returns every distinct (account code, title)
// pairing with its occurrence count, ordered so that for each code the most
// common title comes first (ties broken by title text).
func (s *SQLite) AccountTitleFrequencies(ctx context.Context) ([]AccountTitleCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_code, account_title, COUNT(*) AS n
		FROM budget_lines
		WHERE account_code <> ''
		GROUP BY account_code, account_title
		ORDER BY account_code, n DESC, account_title`)
	if err != nil {
		return nil, wrapStore("account title frequencies", err)
	}
	defer rows.Close()

	var counts []AccountTitleCount
	for rows.Next() {
		var c AccountTitleCount
		if err := rows.Scan(&c.Code, &c.Title, &c.Count); err != nil {
			return nil, wrapStore("scan account title count", err)
		}
		counts = append(counts, c)
	}
	return counts, wrapErr(rows.Err(), "iterate account titles")
}

// Reference tables, keyed by variant.
const (
	RefOrganizations       = "organizations"
	RefExhibitCategories   = "exhibit_categories"
	RefAppropriationTitles = "appropriation_titles"
)

// ReferenceCodes returns the set of codes already present in the given
// reference table.
func (s *SQLite) ReferenceCodes(ctx context.Context, table string) (map[string]struct{}, error) {
	switch table {
	case RefOrganizations, RefExhibitCategories, RefAppropriationTitles:
	default:
		return nil, wrapStore("reference codes", errUnknownTable(table))
	}

	rows, err := s.db.QueryContext(ctx, "SELECT code FROM "+table)
	if err != nil {
		return nil, wrapStore("reference codes "+table, err)
	}
	defer rows.Close()

	codes := make(map[string]struct{})
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, wrapStore("scan reference code", err)
		}
		codes[code] = struct{}{}
	}
	return codes, wrapErr(rows.Err(), "iterate reference codes")
}

// InsertOrganizations inserts lookup rows in one transaction, skipping codes
// that already exist. Pre-seeded classifications are never overwritten.
func (s *SQLite) InsertOrganizations(ctx context.Context, orgs []model.Organization) error {
	if len(orgs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStore("begin insert organizations", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, o := range orgs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO organizations (code, title, classification) VALUES (?, ?, ?)`,
			o.Code, o.Title, o.Classification,
		); err != nil {
			return wrapStore("insert organization", err)
		}
	}
	return wrapErr(tx.Commit(), "commit insert organizations")
}

// InsertExhibitCategories inserts lookup rows in one transaction, skipping
// codes that already exist.
func (s *SQLite) InsertExhibitCategories(ctx context.Context, cats []model.ExhibitCategory) error {
	if len(cats) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStore("begin insert exhibit categories", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, c := range cats {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO exhibit_categories (code, title, classification) VALUES (?, ?, ?)`,
			c.Code, c.Title, c.Classification,
		); err != nil {
			return wrapStore("insert exhibit category", err)
		}
	}
	return wrapErr(tx.Commit(), "commit insert exhibit categories")
}

// InsertAppropriationTitles inserts lookup rows in one transaction, skipping
// codes that already exist.
func (s *SQLite) InsertAppropriationTitles(ctx context.Context, titles []model.AppropriationTitle) error {
	if len(titles) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStore("begin insert appropriation titles", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, t := range titles {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO appropriation_titles (code, title) VALUES (?, ?)`,
			t.Code, t.Title,
		); err != nil {
			return wrapStore("insert appropriation title", err)
		}
	}
	return wrapErr(tx.Commit(), "commit insert appropriation titles")
}

// CountReference returns the number of rows in a reference table.
func (s *SQLite) CountReference(ctx context.Context, table string) (int, error) {
	switch table {
	case RefOrganizations, RefExhibitCategories, RefAppropriationTitles:
	default:
		return 0, wrapStore("count reference", errUnknownTable(table))
	}
	return s.count(ctx, table)
}

// ExhibitFieldSum is the sum of one amount field across the rows of one
// exhibit category.
type ExhibitFieldSum struct {
	Exhibit string
	Field   string
	Sum     float64
}

// ServiceSums sums every amount field per exhibit category across all
// organization-level rows, excluding the department roll-up organization.
// Results are ordered by (exhibit, field) for deterministic findings.
func (s *SQLite) ServiceSums(ctx context.Context, rollupOrg string) ([]ExhibitFieldSum, error) {
	return s.exhibitFieldSums(ctx, `lower(bl.organization) <> lower(?)`, rollupOrg)
}

// RollupSums sums every amount field per exhibit category across the
// department roll-up rows only.
func (s *SQLite) RollupSums(ctx context.Context, rollupOrg string) ([]ExhibitFieldSum, error) {
	return s.exhibitFieldSums(ctx, `lower(bl.organization) = lower(?)`, rollupOrg)
}

func (s *SQLite) exhibitFieldSums(ctx context.Context, where string, arg any) ([]ExhibitFieldSum, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bl.exhibit, je.key, SUM(je.value)
		FROM budget_lines bl, json_each(bl.amounts) je
		WHERE `+where+`
		GROUP BY bl.exhibit, je.key
		ORDER BY bl.exhibit, je.key`, arg)
	if err != nil {
		return nil, wrapStore("exhibit field sums", err)
	}
	defer rows.Close()

	var sums []ExhibitFieldSum
	for rows.Next() {
		var e ExhibitFieldSum
		if err := rows.Scan(&e.Exhibit, &e.Field, &e.Sum); err != nil {
			return nil, wrapStore("scan exhibit field sum", err)
		}
		sums = append(sums, e)
	}
	return sums, wrapErr(rows.Err(), "iterate exhibit field sums")
}

// OrgFieldSum is the sum of one amount field across one organization's rows
// within a single exhibit category.
type OrgFieldSum struct {
	Organization string
	Field        string
	Sum          float64
}

// OrgFieldSums sums every amount field per organization within the given
// exhibit category, excluding the roll-up organization. Ordered by
// (organization, field).
func (s *SQLite) OrgFieldSums(ctx context.Context, exhibit, rollupOrg string) ([]OrgFieldSum, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bl.organization, je.key, SUM(je.value)
		FROM budget_lines bl, json_each(bl.amounts) je
		WHERE lower(bl.exhibit) = lower(?) AND lower(bl.organization) <> lower(?)
		GROUP BY bl.organization, je.key
		ORDER BY bl.organization, je.key`, exhibit, rollupOrg)
	if err != nil {
		return nil, wrapStore("org field sums", err)
	}
	defer rows.Close()

	var sums []OrgFieldSum
	for rows.Next() {
		var o OrgFieldSum
		if err := rows.Scan(&o.Organization, &o.Field, &o.Sum); err != nil {
			return nil, wrapStore("scan org field sum", err)
		}
		sums = append(sums, o)
	}
	return sums, wrapErr(rows.Err(), "iterate org field sums")
}

// ForEachPage streams every page record in (source_file, page_number) order.
func (s *SQLite) ForEachPage(ctx context.Context, fn func(model.PageRecord) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_file, page_number, text, has_tables, table_data
		FROM pages ORDER BY source_file, page_number`)
	if err != nil {
		return wrapStore("list pages", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.PageRecord
		var hasTables int
		if err := rows.Scan(&p.SourceFile, &p.PageNumber, &p.Text, &hasTables, &p.TableData); err != nil {
			return wrapStore("scan page", err)
		}
		p.HasTables = hasTables != 0
		if err := fn(p); err != nil {
			return err
		}
	}
	return wrapErr(rows.Err(), "iterate pages")
}

type unknownTableError string

func errUnknownTable(t string) error      { return unknownTableError(t) }
func (e unknownTableError) Error() string { return "unknown reference table: " + string(e) }

func wrapErr(err error, op string) error {
	if err == nil {
		return nil
	}
	return wrapStore(op, err)
}
