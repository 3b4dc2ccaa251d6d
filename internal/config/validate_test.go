package config

import (
	"strings"
	"testing"
)

func validFile() File {
	return File{
		Columns:       []string{"year", "inc", "states", "edu", "sexes", "races", "jobs", "cit", "dis", "ind", "food", "security"},
		RenameColumns: map[string]string{"GESTFIPS": "states"},
		Mappings: map[string]map[string]string{
			"states":   {"1": "AL"},
			"security": {"1": "High"},
		},
		Years:        []Year{2021},
		FullToAbbrev: map[string]string{"Sex": "sexes"},
	}
}

func findIssue(issues []Issue, sev IssueSeverity, path string) bool {
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path {
			return true
		}
	}
	return false
}

func TestValidate_Valid(t *testing.T) {
	t.Parallel()

	for _, iss := range Validate(validFile()) {
		if iss.Severity == SeverityError {
			t.Fatalf("unexpected error issue: %v", iss)
		}
	}
}

func TestValidate_Findings(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*File)
		sev    IssueSeverity
		path   string
	}{
		{
			name:   "missing_required_column",
			mutate: func(f *File) { f.Columns = f.Columns[1:] },
			sev:    SeverityError,
			path:   "columns",
		},
		{
			name:   "unknown_extra_column",
			mutate: func(f *File) { f.Columns = append(f.Columns, "weight") },
			sev:    SeverityWarning,
			path:   "columns[12]",
		},
		{
			name:   "no_states_mapping",
			mutate: func(f *File) { delete(f.Mappings, "states") },
			sev:    SeverityError,
			path:   "mappings.states",
		},
		{
			name:   "non_integer_code",
			mutate: func(f *File) { f.Mappings["security"]["x1"] = "High" },
			sev:    SeverityError,
			path:   "mappings.security.x1",
		},
		{
			name:   "mapping_unknown_column",
			mutate: func(f *File) { f.Mappings["weight"] = map[string]string{"1": "a"} },
			sev:    SeverityError,
			path:   "mappings.weight",
		},
		{
			name:   "state_label_sentinel",
			mutate: func(f *File) { f.Mappings["states"]["99"] = All },
			sev:    SeverityError,
			path:   "mappings.states.99",
		},
		{
			name:   "factor_label_null_key",
			mutate: func(f *File) { f.Mappings["sexes"] = map[string]string{"9": None} },
			sev:    SeverityError,
			path:   "mappings.sexes.9",
		},
		{
			name:   "no_years",
			mutate: func(f *File) { f.Years = nil },
			sev:    SeverityError,
			path:   "years",
		},
		{
			name:   "factor_unknown_column",
			mutate: func(f *File) { f.FullToAbbrev["Weight"] = "wgt" },
			sev:    SeverityError,
			path:   "full_to_abbrev.Weight",
		},
		{
			name:   "factor_on_security",
			mutate: func(f *File) { f.FullToAbbrev["Security"] = "security" },
			sev:    SeverityError,
			path:   "full_to_abbrev.Security",
		},
		{
			name:   "factor_named_none",
			mutate: func(f *File) { f.FullToAbbrev[None] = "edu" },
			sev:    SeverityError,
			path:   "full_to_abbrev.None",
		},
		{
			name:   "rename_to_unknown",
			mutate: func(f *File) { f.RenameColumns["X"] = "nowhere" },
			sev:    SeverityWarning,
			path:   "rename_columns.X",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := validFile()
			tc.mutate(&f)
			issues := Validate(f)
			if !findIssue(issues, tc.sev, tc.path) {
				t.Fatalf("no %s issue at %s; got %v", tc.sev, tc.path, issues)
			}
		})
	}
}

// Security is never a factor, so a "None" label there cannot collide.
func TestValidate_SecurityLabelNone(t *testing.T) {
	t.Parallel()

	f := validFile()
	f.Mappings["security"]["9"] = None
	if err := IssuesError(Validate(f)); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestBuild_ErrorsYieldNilConfig(t *testing.T) {
	t.Parallel()

	f := validFile()
	f.Years = nil
	cfg, issues := Build(f)
	if cfg != nil {
		t.Fatalf("Build returned config despite errors")
	}
	err := IssuesError(issues)
	if err == nil || !strings.Contains(err.Error(), "years must not be empty") {
		t.Fatalf("IssuesError = %v", err)
	}
}
