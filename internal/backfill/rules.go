package backfill

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/oversightworks/budgetdb/internal/model"
)

// Rules is the versioned classification ruleset. Keyword matching is
// case-insensitive substring containment; exhibit matching is by code
// prefix, first match wins in declared order.
type Rules struct {
	Version          int            `yaml:"version"`
	MilitaryKeywords []string       `yaml:"military_keywords"`
	AgencyKeywords   []string       `yaml:"agency_keywords"`
	ExhibitClasses   []ExhibitClass `yaml:"exhibit_classes"`
}

// ExhibitClass maps an exhibit code prefix to a classification label.
type ExhibitClass struct {
	Prefix string `yaml:"prefix"`
	Class  string `yaml:"class"`
}

// DefaultRules returns the built-in ruleset.
func DefaultRules() Rules {
	return Rules{
		Version: 1,
		MilitaryKeywords: []string{
			"army", "usmc", "marine", "navy", "naval",
			"air force", "usaf", "space force",
		},
		AgencyKeywords: []string{
			"defense-wide", "dod", "osd", "darpa", "mda", "dia",
			"nsa", "nga", "nro", "disa", "socom",
		},
		ExhibitClasses: []ExhibitClass{
			{Prefix: "p-40", Class: "procurement"},
			{Prefix: "p-21", Class: "procurement"},
			{Prefix: "p-5", Class: "procurement"},
			{Prefix: "p-1", Class: "summary"},
			{Prefix: "rf-1", Class: "summary"},
			{Prefix: "r-1", Class: "summary"},
			{Prefix: "r-2", Class: "rdte"},
			{Prefix: "r-3", Class: "rdte"},
			{Prefix: "r-4", Class: "rdte"},
			{Prefix: "o-1", Class: "om"},
			{Prefix: "m-1", Class: "milpers"},
			{Prefix: "c-1", Class: "construction"},
		},
	}
}

// LoadRules reads a ruleset from a YAML file.
func LoadRules(path string) (Rules, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, eris.Wrapf(err, "backfill: read rules %s", path)
	}
	var r Rules
	if err := yaml.Unmarshal(b, &r); err != nil {
		return Rules{}, eris.Wrapf(err, "backfill: parse rules %s", path)
	}
	return r, nil
}

// ClassifyOrganization labels an organization name. Military department
// keywords are checked before agency keywords; unmatched names are Other.
func (r Rules) ClassifyOrganization(name string) string {
	lower := strings.ToLower(name)
	for _, kw := range r.MilitaryKeywords {
		if strings.Contains(lower, kw) {
			return model.ClassMilitaryDepartment
		}
	}
	for _, kw := range r.AgencyKeywords {
		if strings.Contains(lower, kw) {
			return model.ClassDefenseAgency
		}
	}
	return model.ClassOther
}

// ClassifyExhibit labels an exhibit code by prefix; unrecognized codes
// classify as "other".
func (r Rules) ClassifyExhibit(code string) string {
	lower := strings.ToLower(strings.TrimSpace(code))
	for _, ec := range r.ExhibitClasses {
		if strings.HasPrefix(lower, ec.Prefix) {
			return ec.Class
		}
	}
	return "other"
}
