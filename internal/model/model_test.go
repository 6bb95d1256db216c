package model

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validLine() BudgetLine {
	return BudgetLine{
		SourceFile:   "p1.xlsx",
		Exhibit:      "p-1",
		FiscalYear:   2025,
		Organization: "Army",
	}
}

func TestBudgetLineValidate(t *testing.T) {
	require.NoError(t, validLine().Validate())

	tests := []struct {
		name   string
		mutate func(*BudgetLine)
		field  string
	}{
		{"missing source file", func(l *BudgetLine) { l.SourceFile = "" }, "source_file"},
		{"missing exhibit", func(l *BudgetLine) { l.Exhibit = "" }, "exhibit"},
		{"zero fiscal year", func(l *BudgetLine) { l.FiscalYear = 0 }, "fiscal_year"},
		{"negative fiscal year", func(l *BudgetLine) { l.FiscalYear = -1 }, "fiscal_year"},
		{"missing organization", func(l *BudgetLine) { l.Organization = "" }, "organization"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := validLine()
			tt.mutate(&l)
			err := l.Validate()
			require.Error(t, err)
			assert.True(t, IsValidation(err))

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestPageRecordValidate(t *testing.T) {
	require.NoError(t, PageRecord{SourceFile: "v1.pdf", PageNumber: 1}.Validate())

	err := PageRecord{PageNumber: 1}.Validate()
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	err = PageRecord{SourceFile: "v1.pdf", PageNumber: 0}.Validate()
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestIsValidation_Wrapped(t *testing.T) {
	err := eris.Wrap(&ValidationError{Field: "exhibit", Reason: "must not be empty"}, "loader")
	assert.True(t, IsValidation(err))
	assert.False(t, IsConfiguration(err))
}

func TestIsConfiguration_Wrapped(t *testing.T) {
	err := eris.Wrap(&ConfigurationError{Reason: "keep count must be at least 1"}, "backup")
	assert.True(t, IsConfiguration(err))
	assert.False(t, IsValidation(err))
}
