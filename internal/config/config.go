// Package config defines the JSON mapping file that drives ingestion and the
// query API, and the immutable lookup tables built from it.
//
// The file layout is an external contract shared with the survey tooling and
// must be decoded exactly as written:
//
//	{
//	  "columns":        ["year", "inc", "states", ...],
//	  "rename_columns": { "HRYEAR4": "year", "GESTFIPS": "states", ... },
//	  "mappings": {
//	    "states": { "1": "AL", "2": "AK", ... },
//	    "edu":    { "31": "Less than 1st grade", ... }
//	  },
//	  "years":          [2019, 2020, 2021],
//	  "full_to_abbrev": { "Education": "edu", "Sex": "sexes", ... }
//	}
//
// A File is what the JSON decodes into. Build validates it against the
// compiled-in schema and produces a Config, which is read-only for the
// lifetime of the process.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"foodsecurity/internal/schema"
)

// File mirrors the JSON mapping file.
type File struct {
	// Columns is the canonical column set every input is projected onto.
	Columns []string `json:"columns"`

	// RenameColumns maps raw survey headers to canonical column names.
	RenameColumns map[string]string `json:"rename_columns"`

	// Mappings holds, per canonical column, the integer code to label table.
	// Codes are JSON object keys and therefore strings in the file.
	Mappings map[string]map[string]string `json:"mappings"`

	// Years lists the survey years that may be requested.
	Years []Year `json:"years"`

	// FullToAbbrev maps factor display names to canonical column names.
	FullToAbbrev map[string]string `json:"full_to_abbrev"`
}

// Year is a survey year. The file may spell it as a number or a string.
type Year int

// UnmarshalJSON accepts 2019 and "2019".
func (y *Year) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("year %q is not an integer", s)
		}
		*y = Year(n)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if f != math.Trunc(f) {
		return fmt.Errorf("year %v is not an integer", f)
	}
	*y = Year(f)
	return nil
}

// Config is the validated, read-only form of File.
type Config struct {
	// Columns is the file's column list as written. Validation checks it
	// against the table; ingestion always projects onto schema.ColumnNames.
	Columns []string

	// Rename maps raw headers to canonical names.
	Rename map[string]string

	// Codes holds the code to label tables keyed by column.
	Codes map[schema.Column]map[int]string

	// States is the sorted list of allowed state codes (labels of the
	// "states" mapping).
	States []string

	// Years is the sorted list of allowed years.
	Years []int

	factors     map[string]schema.Column
	factorNames []string
	stateSet    map[string]struct{}
	yearSet     map[int]struct{}
}

// AllowedState reports whether s is a configured state code.
func (c *Config) AllowedState(s string) bool {
	_, ok := c.stateSet[s]
	return ok
}

// AllowedYear reports whether y is a configured year.
func (c *Config) AllowedYear(y int) bool {
	_, ok := c.yearSet[y]
	return ok
}

// Factor resolves a factor display name to its column.
func (c *Config) Factor(name string) (schema.Column, bool) {
	col, ok := c.factors[name]
	return col, ok
}

// FactorNames returns the configured factor display names, sorted.
func (c *Config) FactorNames() []string {
	return append([]string(nil), c.factorNames...)
}

// Load reads, decodes and validates the mapping file at path. Warnings are
// discarded; any error-severity issue fails the load.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	f, err := Decode(b)
	if err != nil {
		return nil, err
	}
	cfg, issues := Build(f)
	if err := IssuesError(issues); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses the raw JSON mapping file.
func Decode(b []byte) (File, error) {
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return File{}, fmt.Errorf("decode config: %w", err)
	}
	return f, nil
}

// Build validates f and, when no error-severity issue is found, returns the
// lookup structures. The returned Config is nil if any error was reported.
func Build(f File) (*Config, []Issue) {
	issues := Validate(f)
	if hasErrors(issues) {
		return nil, issues
	}

	cfg := &Config{
		Columns:  append([]string(nil), f.Columns...),
		Rename:   make(map[string]string, len(f.RenameColumns)),
		Codes:    make(map[schema.Column]map[int]string, len(f.Mappings)),
		factors:  make(map[string]schema.Column, len(f.FullToAbbrev)),
		stateSet: map[string]struct{}{},
		yearSet:  map[int]struct{}{},
	}
	for k, v := range f.RenameColumns {
		cfg.Rename[k] = v
	}

	for name, table := range f.Mappings {
		col, _ := schema.ParseColumn(name)
		codes := make(map[int]string, len(table))
		for k, label := range table {
			code, _ := ParseCode(k)
			codes[code] = label
		}
		cfg.Codes[col] = codes
	}

	for _, label := range cfg.Codes[schema.States] {
		if _, dup := cfg.stateSet[label]; dup {
			continue
		}
		cfg.stateSet[label] = struct{}{}
		cfg.States = append(cfg.States, label)
	}
	sort.Strings(cfg.States)

	for _, y := range f.Years {
		if _, dup := cfg.yearSet[int(y)]; dup {
			continue
		}
		cfg.yearSet[int(y)] = struct{}{}
		cfg.Years = append(cfg.Years, int(y))
	}
	sort.Ints(cfg.Years)

	for name, abbrev := range f.FullToAbbrev {
		col, _ := schema.ParseColumn(abbrev)
		cfg.factors[name] = col
		cfg.factorNames = append(cfg.factorNames, name)
	}
	sort.Strings(cfg.factorNames)

	return cfg, issues
}

// ParseCode parses a categorical code as written in the file or in a CSV
// cell. Integral floats ("3.0") are accepted since survey extracts exported
// through spreadsheets often carry them.
func ParseCode(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("code %q is not an integer", s)
	}
	return int(f), nil
}

// IssuesError folds error-severity issues into a single error, or returns nil.
func IssuesError(issues []Issue) error {
	var errs []error
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			errs = append(errs, iss)
		}
	}
	return errors.Join(errs...)
}

func hasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
