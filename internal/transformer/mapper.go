package transformer

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"foodsecurity/internal/config"
	"foodsecurity/internal/parser/csv"
	"foodsecurity/internal/schema"
)

var (
	// ErrUnmappedCode is reported in strict mode when a cell holds a code
	// absent from its column's mapping.
	ErrUnmappedCode = errors.New("unmapped code")

	// ErrInvalidYear is reported when year does not parse as an integer.
	ErrInvalidYear = errors.New("invalid year")

	// ErrMissingState is reported when states is empty or its code is
	// unmapped.
	ErrMissingState = errors.New("missing state")
)

// RowError pinpoints the cell that made a row unusable.
type RowError struct {
	Source string
	Line   int
	Column schema.Column
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s:%d: %s=%q: %v", e.Source, e.Line, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Stats summarizes one Map call.
type Stats struct {
	Rows int

	// Unmapped counts, per column, cells whose code had no label and were
	// stored as NULL.
	Unmapped map[schema.Column]int
}

// UnmappedTotal sums Unmapped over all columns.
func (s Stats) UnmappedTotal() int {
	n := 0
	for _, v := range s.Unmapped {
		n += v
	}
	return n
}

// String renders Unmapped as space-separated "col=n" pairs sorted by column
// name; empty when every code mapped.
func (s Stats) String() string {
	parts := make([]string, 0, len(s.Unmapped))
	for c, n := range s.Unmapped {
		parts = append(parts, fmt.Sprintf("%s=%d", c, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

// Mapper converts projected rows into Records using the code tables of a
// Config.
type Mapper struct {
	cfg *config.Config

	// Strict turns any unmapped code into an error instead of NULL.
	Strict bool
}

// NewMapper returns a Mapper over cfg.
func NewMapper(cfg *config.Config) *Mapper { return &Mapper{cfg: cfg} }

type colPlan struct {
	col   schema.Column
	codes map[int]string // nil: cell text is stored as-is
}

func (m *Mapper) compilePlan(header []string) ([]colPlan, error) {
	plan := make([]colPlan, len(header))
	for i, name := range header {
		c, ok := schema.ParseColumn(name)
		if !ok {
			return nil, fmt.Errorf("mapper: column %q is not part of %s", name, schema.Table)
		}
		plan[i] = colPlan{col: c, codes: m.cfg.Codes[c]}
	}
	for _, want := range []schema.Column{schema.Year, schema.States} {
		found := false
		for _, p := range plan {
			found = found || p.col == want
		}
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, want)
		}
	}
	return plan, nil
}

// Map translates every row of t. Empty cells become NULL. A row whose year is
// not an integer or whose state is NULL after mapping fails the whole call.
func (m *Mapper) Map(t *csv.Table) ([]schema.Record, Stats, error) {
	stats := Stats{Unmapped: map[schema.Column]int{}}
	plan, err := m.compilePlan(t.Header)
	if err != nil {
		return nil, stats, err
	}

	out := make([]schema.Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		var rec schema.Record
		for i, p := range plan {
			raw := strings.TrimSpace(row.Cells[i])
			v, err := p.translate(raw)
			if err != nil {
				return nil, stats, &RowError{Source: row.Source, Line: row.Line, Column: p.col, Value: raw, Err: err}
			}
			if v == nil && raw != "" {
				if m.Strict {
					return nil, stats, &RowError{Source: row.Source, Line: row.Line, Column: p.col, Value: raw, Err: ErrUnmappedCode}
				}
				stats.Unmapped[p.col]++
			}
			if err := assign(&rec, p.col, v); err != nil {
				return nil, stats, &RowError{Source: row.Source, Line: row.Line, Column: p.col, Value: raw, Err: err}
			}
		}
		out = append(out, rec)
	}
	stats.Rows = len(out)

	for c, n := range stats.Unmapped {
		log.Printf("transformer: column=%s unmapped_codes=%d stored_as=NULL", c, n)
	}
	return out, stats, nil
}

// translate returns the value to store for raw, nil meaning NULL.
func (p colPlan) translate(raw string) (*string, error) {
	if raw == "" {
		return nil, nil
	}
	if p.codes == nil {
		return &raw, nil
	}
	code, err := config.ParseCode(raw)
	if err != nil {
		return nil, nil
	}
	label, ok := p.codes[code]
	if !ok {
		return nil, nil
	}
	return &label, nil
}

func assign(rec *schema.Record, c schema.Column, v *string) error {
	switch c {
	case schema.Year:
		if v == nil {
			return ErrInvalidYear
		}
		y, err := config.ParseCode(*v)
		if err != nil {
			return ErrInvalidYear
		}
		rec.Year = y
	case schema.States:
		if v == nil {
			return ErrMissingState
		}
		rec.States = *v
	default:
		*rec.Label(c) = v
	}
	return nil
}
