// Package transformer turns parsed survey tables into schema.Records.
//
// The steps run in a fixed order: each input table is projected onto the
// canonical column set, the projected tables are concatenated, and a Mapper
// replaces categorical codes with their labels.
package transformer

import (
	"errors"
	"fmt"
	"slices"

	"foodsecurity/internal/parser/csv"
)

// ErrMissingColumn is returned by Project when a canonical column is absent
// from an input after renaming.
var ErrMissingColumn = errors.New("missing column")

// Project returns a table holding exactly columns, in that order. The input
// header must already be renamed to canonical names. Extra input columns are
// dropped. Rows keep their source and line.
func Project(t *csv.Table, columns []string) (*csv.Table, error) {
	pos := make([]int, len(columns))
	for i, c := range columns {
		ix := t.Index(c)
		if ix < 0 {
			return nil, fmt.Errorf("%w: %q not found in %s", ErrMissingColumn, c, t.Source)
		}
		pos[i] = ix
	}

	out := &csv.Table{
		Source: t.Source,
		Header: slices.Clone(columns),
		Rows:   make([]csv.Row, len(t.Rows)),
	}
	for r, row := range t.Rows {
		cells := make([]string, len(pos))
		for i, ix := range pos {
			cells[i] = row.Cells[ix]
		}
		out.Rows[r] = csv.Row{Source: row.Source, Line: row.Line, Cells: cells}
	}
	return out, nil
}

// Concat appends the rows of tables in argument order. All tables must share
// the same header, which Project guarantees.
func Concat(tables ...*csv.Table) (*csv.Table, error) {
	if len(tables) == 0 {
		return &csv.Table{}, nil
	}
	n := 0
	for _, t := range tables {
		n += len(t.Rows)
	}
	out := &csv.Table{
		Header: slices.Clone(tables[0].Header),
		Rows:   make([]csv.Row, 0, n),
	}
	for i, t := range tables {
		if !slices.Equal(t.Header, out.Header) {
			return nil, fmt.Errorf("concat: table %d header %v differs from %v", i, t.Header, out.Header)
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out, nil
}
