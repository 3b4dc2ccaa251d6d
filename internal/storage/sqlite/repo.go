// Package sqlite registers the embedded SQLite backend. It is the default
// storage kind and uses the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"fmt"

	_ "modernc.org/sqlite"

	"foodsecurity/internal/storage"
	"foodsecurity/internal/storage/sqldb"
)

var dialect = storage.MustDialect(storage.SQLite)

// Open opens (creating if needed) the database at dsn, e.g. "data.db" or
// "file:data.db?_pragma=busy_timeout(5000)".
//
// The pool is limited to one connection: SQLite allows a single writer, and
// an in-memory DSN is private to its connection.
func Open(ctx context.Context, dsn string) (*sqldb.Store, error) {
	s, err := sqldb.Open(ctx, "sqlite", dsn, dialect)
	if err != nil {
		return nil, err
	}
	s.DB().SetMaxOpenConns(1)
	if _, err := s.DB().ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("sqlite: pragma: %w", err)
	}
	return s, nil
}
