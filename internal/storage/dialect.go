package storage

import (
	"fmt"
	"strings"

	"foodsecurity/internal/schema"
)

// Dialect names supported by the SQL builders.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
	MySQL    = "mysql"
	MSSQL    = "mssql"
)

// Dialect renders the few statements whose syntax differs between engines.
type Dialect struct {
	name string
}

// NewDialect returns the Dialect for name.
func NewDialect(name string) (Dialect, error) {
	switch name = strings.ToLower(name); name {
	case SQLite, Postgres, MySQL, MSSQL:
		return Dialect{name: name}, nil
	}
	return Dialect{}, fmt.Errorf("storage: unknown dialect %q", name)
}

// MustDialect is NewDialect for names known at compile time.
func MustDialect(name string) Dialect {
	d, err := NewDialect(name)
	if err != nil {
		panic(err)
	}
	return d
}

// Name returns the dialect name. It doubles as the migrations directory.
func (d Dialect) Name() string { return d.name }

// Bind returns the placeholder for the n-th (1-based) argument.
func (d Dialect) Bind(n int) string {
	switch d.name {
	case Postgres:
		return fmt.Sprintf("$%d", n)
	case MSSQL:
		return fmt.Sprintf("@p%d", n)
	}
	return "?"
}

// Limit returns the row cap clause appended after ORDER BY.
func (d Dialect) Limit(n int) string {
	if d.name == MSSQL {
		return fmt.Sprintf(" OFFSET 0 ROWS FETCH NEXT %d ROWS ONLY", n)
	}
	return fmt.Sprintf(" LIMIT %d", n)
}

// MigrationsTableDDL creates the schema_migrations table if it is missing.
func (d Dialect) MigrationsTableDDL(table string) string {
	switch d.name {
	case MSSQL:
		return fmt.Sprintf("IF OBJECT_ID(N'%[1]s', N'U') IS NULL CREATE TABLE %[1]s (name NVARCHAR(255) NOT NULL PRIMARY KEY, applied_at BIGINT NOT NULL)", table)
	case SQLite:
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (name TEXT PRIMARY KEY, applied_at INTEGER NOT NULL)", table)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (name VARCHAR(255) NOT NULL PRIMARY KEY, applied_at BIGINT NOT NULL)", table)
}

// InsertSQL renders a single-row INSERT into schema.Table for columns.
func (d Dialect) InsertSQL(columns []string) string {
	ph := make([]string, len(columns))
	for i := range ph {
		ph[i] = d.Bind(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		schema.Table, strings.Join(columns, ", "), strings.Join(ph, ", "))
}

// where renders the conjunctive filter. extra conditions are prepended.
func (d Dialect) where(f Filter, extra ...string) (string, []any) {
	conds := append([]string(nil), extra...)
	var args []any
	if f.State != "" {
		args = append(args, f.State)
		conds = append(conds, fmt.Sprintf("%s = %s", schema.States, d.Bind(len(args))))
	}
	if f.Year != 0 {
		args = append(args, f.Year)
		conds = append(conds, fmt.Sprintf("%s = %s", schema.Year, d.Bind(len(args))))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// RecordsSQL renders the raw filtered fetch: id plus schema.Columns, ordered
// by id, capped when limit > 0.
func (d Dialect) RecordsSQL(f Filter, limit int) (string, []any) {
	where, args := d.where(f)
	q := fmt.Sprintf("SELECT id, %s FROM %s%s ORDER BY id",
		strings.Join(schema.ColumnNames(), ", "), schema.Table, where)
	if limit > 0 {
		q += d.Limit(limit)
	}
	return q, args
}

// GroupCountsSQL renders the (factor, security) count query.
func (d Dialect) GroupCountsSQL(f Filter, factor schema.Column) (string, []any, error) {
	if !factor.Factorable() {
		return "", nil, fmt.Errorf("storage: column %s cannot be grouped on", factor)
	}
	where, args := d.where(f, fmt.Sprintf("%s IS NOT NULL", schema.Security))
	q := fmt.Sprintf("SELECT %[1]s, %[2]s, COUNT(id) FROM %[3]s%[4]s GROUP BY %[1]s, %[2]s",
		factor, schema.Security, schema.Table, where)
	return q, args, nil
}
