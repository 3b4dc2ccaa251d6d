package config

import (
	"fmt"
	"sort"
	"strings"

	"foodsecurity/internal/schema"
)

// Request sentinels. They share the value space of state codes and factor
// names, so the mapping file must not use them as real values.
const (
	All  = "All"
	None = "None"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that blocks startup.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a suspicious but usable configuration.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the file (e.g. "mappings.edu.7x",
// "full_to_abbrev.Sex").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static checks of a decoded mapping file against the
// compiled-in schema. It does not mutate f.
func Validate(f File) []Issue {
	var issues []Issue
	issues = append(issues, validateColumns(f.Columns)...)
	issues = append(issues, validateRenames(f.RenameColumns)...)
	issues = append(issues, validateMappings(f.Mappings)...)
	issues = append(issues, validateYears(f.Years)...)
	issues = append(issues, validateFactors(f.FullToAbbrev)...)
	return issues
}

func validateColumns(cols []string) []Issue {
	var issues []Issue
	if len(cols) == 0 {
		return []Issue{{
			Severity: SeverityError,
			Path:     "columns",
			Message:  "columns must not be empty",
		}}
	}

	seen := make(map[string]bool, len(cols))
	for i, c := range cols {
		if seen[c] {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     fmt.Sprintf("columns[%d]", i),
				Message:  fmt.Sprintf("column %q listed twice", c),
			})
		}
		seen[c] = true
		if _, ok := schema.ParseColumn(c); !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     fmt.Sprintf("columns[%d]", i),
				Message:  fmt.Sprintf("column %q is not part of table %s and will be ignored", c, schema.Table),
			})
		}
	}
	for _, want := range schema.ColumnNames() {
		if !seen[want] {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "columns",
				Message:  fmt.Sprintf("required column %q is missing", want),
			})
		}
	}
	return issues
}

func validateRenames(m map[string]string) []Issue {
	var issues []Issue
	for _, raw := range sortedKeys(m) {
		if _, ok := schema.ParseColumn(m[raw]); !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "rename_columns." + raw,
				Message:  fmt.Sprintf("renames to %q which is not a table column", m[raw]),
			})
		}
	}
	return issues
}

func validateMappings(m map[string]map[string]string) []Issue {
	var issues []Issue
	if len(m[schema.States.String()]) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "mappings.states",
			Message:  "a non-empty states mapping is required; its labels are the allowed state codes",
		})
	}

	for _, col := range sortedKeys(m) {
		c, ok := schema.ParseColumn(col)
		if !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "mappings." + col,
				Message:  fmt.Sprintf("mapping for unknown column %q", col),
			})
			continue
		}
		if c == schema.Year {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "mappings." + col,
				Message:  "year is mapped; labels must still be integers",
			})
		}
		for _, code := range sortedKeys(m[col]) {
			path := fmt.Sprintf("mappings.%s.%s", col, code)
			if _, err := ParseCode(code); err != nil {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path,
					Message:  err.Error(),
				})
			}
			label := m[col][code]
			if strings.TrimSpace(label) == "" {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Path:     path,
					Message:  "empty label",
				})
			}
			if c == schema.States && label == All {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path,
					Message:  fmt.Sprintf("state label %q collides with the request sentinel", All),
				})
			}
			if c.Factorable() && label == None {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path,
					Message:  fmt.Sprintf("label %q collides with the key used for missing factor values", None),
				})
			}
		}
	}
	return issues
}

func validateYears(years []Year) []Issue {
	if len(years) == 0 {
		return []Issue{{
			Severity: SeverityError,
			Path:     "years",
			Message:  "years must not be empty",
		}}
	}
	var issues []Issue
	seen := make(map[Year]bool, len(years))
	for i, y := range years {
		if seen[y] {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     fmt.Sprintf("years[%d]", i),
				Message:  fmt.Sprintf("year %d listed twice", y),
			})
		}
		seen[y] = true
	}
	return issues
}

func validateFactors(m map[string]string) []Issue {
	if len(m) == 0 {
		return []Issue{{
			Severity: SeverityWarning,
			Path:     "full_to_abbrev",
			Message:  "no factors configured; only raw queries will be possible",
		}}
	}
	var issues []Issue
	for _, name := range sortedKeys(m) {
		path := "full_to_abbrev." + name
		if name == None {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("factor name %q collides with the request sentinel", None),
			})
		}
		c, ok := schema.ParseColumn(m[name])
		switch {
		case !ok:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("abbreviation %q is not a table column", m[name]),
			})
		case !c.Factorable():
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("column %q cannot be used as a factor", m[name]),
			})
		}
	}
	return issues
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
