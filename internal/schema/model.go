// Package schema holds the compiled-in shape of the food_security table: the
// Record type and the Column enumeration used to address its fields.
package schema

import (
	"fmt"
	"strconv"
)

// Table is the destination table for survey records.
const Table = "food_security"

// Record is one survey respondent-month.
type Record struct {
	ID       int64   `json:"-" parquet:"id"`
	Year     int     `json:"year" parquet:"year"`
	Inc      *string `json:"inc" parquet:"inc,optional"`
	States   string  `json:"states" parquet:"states"`
	Edu      *string `json:"edu" parquet:"edu,optional"`
	Sexes    *string `json:"sexes" parquet:"sexes,optional"`
	Races    *string `json:"races" parquet:"races,optional"`
	Jobs     *string `json:"jobs" parquet:"jobs,optional"`
	Cit      *string `json:"cit" parquet:"cit,optional"`
	Dis      *string `json:"dis" parquet:"dis,optional"`
	Ind      *string `json:"ind" parquet:"ind,optional"`
	Food     *string `json:"food" parquet:"food,optional"`
	Security *string `json:"security" parquet:"security,optional"`
}

// Column enumerates the data columns of the table (id excluded).
type Column int

const (
	Year Column = iota + 1
	Inc
	States
	Edu
	Sexes
	Races
	Jobs
	Cit
	Dis
	Ind
	Food
	Security
)

// Columns lists the data columns in table order.
var Columns = []Column{Year, Inc, States, Edu, Sexes, Races, Jobs, Cit, Dis, Ind, Food, Security}

var columnNames = map[Column]string{
	Year:     "year",
	Inc:      "inc",
	States:   "states",
	Edu:      "edu",
	Sexes:    "sexes",
	Races:    "races",
	Jobs:     "jobs",
	Cit:      "cit",
	Dis:      "dis",
	Ind:      "ind",
	Food:     "food",
	Security: "security",
}

// String returns the SQL column name.
func (c Column) String() string {
	if n, ok := columnNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Column(%d)", int(c))
}

// Valid reports whether c is one of the declared columns.
func (c Column) Valid() bool {
	_, ok := columnNames[c]
	return ok
}

// Factorable reports whether the column may be used as a grouping factor.
// Security is the dependent variable and is always the second grouping key.
func (c Column) Factorable() bool {
	return c.Valid() && c != Security
}

// ParseColumn resolves a column name (as used in the config file) to a Column.
func ParseColumn(name string) (Column, bool) {
	for c, n := range columnNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// ColumnNames returns the column names in table order.
func ColumnNames() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = c.String()
	}
	return out
}

// Label returns a pointer to the categorical field addressed by c, or nil for
// the non-categorical columns (year, states).
func (r *Record) Label(c Column) **string {
	switch c {
	case Inc:
		return &r.Inc
	case Edu:
		return &r.Edu
	case Sexes:
		return &r.Sexes
	case Races:
		return &r.Races
	case Jobs:
		return &r.Jobs
	case Cit:
		return &r.Cit
	case Dis:
		return &r.Dis
	case Ind:
		return &r.Ind
	case Food:
		return &r.Food
	case Security:
		return &r.Security
	}
	return nil
}

// Value returns the textual value of column c; nil means NULL.
func (r *Record) Value(c Column) *string {
	switch c {
	case Year:
		s := strconv.Itoa(r.Year)
		return &s
	case States:
		s := r.States
		return &s
	}
	if p := r.Label(c); p != nil {
		return *p
	}
	return nil
}

// Row returns the record's values aligned with Columns, ready for an INSERT.
func (r *Record) Row() []any {
	row := make([]any, len(Columns))
	for i, c := range Columns {
		switch c {
		case Year:
			row[i] = r.Year
		case States:
			row[i] = r.States
		default:
			if v := *r.Label(c); v != nil {
				row[i] = *v
			} else {
				row[i] = nil
			}
		}
	}
	return row
}

// ScanDest returns scan destinations for id followed by Columns.
func (r *Record) ScanDest() []any {
	dest := make([]any, 0, len(Columns)+1)
	dest = append(dest, &r.ID)
	for _, c := range Columns {
		switch c {
		case Year:
			dest = append(dest, &r.Year)
		case States:
			dest = append(dest, &r.States)
		default:
			dest = append(dest, r.Label(c))
		}
	}
	return dest
}
