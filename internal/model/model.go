// Package model holds the record types shared across the pipeline and the
// error taxonomy the surfaces report in.
package model

// Organization classifications.
const (
	ClassMilitaryDepartment = "Military Department"
	ClassDefenseAgency      = "Defense Agency"
	ClassOther              = "Other"
)

// BudgetLine is one normalized budget justification line item. Amounts and
// Quantities are keyed by fiscal-year field name (e.g. "fy2025_request");
// amount values are in thousands of dollars.
type BudgetLine struct {
	SourceFile       string             `json:"source_file"`
	Exhibit          string             `json:"exhibit"`
	FiscalYear       int                `json:"fiscal_year"`
	Organization     string             `json:"organization"`
	AccountCode      string             `json:"account_code,omitempty"`
	AccountTitle     string             `json:"account_title,omitempty"`
	ActivityTitle    string             `json:"activity_title,omitempty"`
	SubActivityTitle string             `json:"sub_activity_title,omitempty"`
	LineItemCode     string             `json:"line_item_code,omitempty"`
	LineItemTitle    string             `json:"line_item_title,omitempty"`
	ElementCode      string             `json:"element_code,omitempty"`
	Amounts          map[string]float64 `json:"amounts,omitempty"`
	Quantities       map[string]int     `json:"quantities,omitempty"`
}

// Validate checks the fields every budget line must carry.
func (l BudgetLine) Validate() error {
	switch {
	case l.SourceFile == "":
		return &ValidationError{Field: "source_file", Reason: "must not be empty"}
	case l.Exhibit == "":
		return &ValidationError{Field: "exhibit", Reason: "must not be empty"}
	case l.FiscalYear <= 0:
		return &ValidationError{Field: "fiscal_year", Reason: "must be positive"}
	case l.Organization == "":
		return &ValidationError{Field: "organization", Reason: "must not be empty"}
	}
	return nil
}

// PageRecord is the extracted text of one document page. PageNumber is
// 1-based. TableData holds the serialized table payload when the extractor
// detected tables on the page.
type PageRecord struct {
	SourceFile string `json:"source_file"`
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
	HasTables  bool   `json:"has_tables,omitempty"`
	TableData  string `json:"table_data,omitempty"`
}

// Validate checks the fields every page record must carry.
func (p PageRecord) Validate() error {
	switch {
	case p.SourceFile == "":
		return &ValidationError{Field: "source_file", Reason: "must not be empty"}
	case p.PageNumber < 1:
		return &ValidationError{Field: "page_number", Reason: "must be at least 1"}
	}
	return nil
}

// Organization is a reference row derived from distinct budget line
// organizations.
type Organization struct {
	Code           string `json:"code"`
	Title          string `json:"title"`
	Classification string `json:"classification"`
}

// ExhibitCategory is a reference row derived from distinct exhibit codes.
type ExhibitCategory struct {
	Code           string `json:"code"`
	Title          string `json:"title"`
	Classification string `json:"classification"`
}

// AppropriationTitle is a reference row mapping an appropriation account
// code to its most common title.
type AppropriationTitle struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}
