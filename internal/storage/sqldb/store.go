// Package sqldb is the database/sql implementation of storage.Repository
// shared by the sqlite, mysql and mssql backends. Engine differences are
// confined to the storage.Dialect it is built with.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"foodsecurity/internal/schema"
	"foodsecurity/internal/storage"
	"foodsecurity/internal/storage/migrate"
)

// Store implements storage.Repository over a *sql.DB.
type Store struct {
	db *sql.DB
	d  storage.Dialect
}

var _ storage.Repository = (*Store)(nil)

// Open opens driver with dsn and pings it so a bad DSN fails fast.
func Open(ctx context.Context, driver, dsn string, d storage.Dialect) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s: DSN must not be empty", d.Name())
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", d.Name(), err)
	}
	return Connect(ctx, db, d)
}

// Connect pings db and wraps it. db is closed when the ping fails.
func Connect(ctx context.Context, db *sql.DB, d storage.Dialect) (*Store, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", d.Name(), err)
	}
	return New(db, d), nil
}

// New wraps an open handle.
func New(db *sql.DB, d storage.Dialect) *Store { return &Store{db: db, d: d} }

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the dialect the store renders SQL with.
func (s *Store) Dialect() storage.Dialect { return s.d }

// Migrate applies the embedded migrations for the store's dialect.
func (s *Store) Migrate(ctx context.Context) error {
	return migrate.Up(ctx, s.db, s.d)
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%s: ping: %w", s.d.Name(), err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error { return s.db.Close() }

// Begin starts the ingestion transaction.
func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", s.d.Name(), err)
	}
	return &Tx{tx: tx, d: s.d}, nil
}

// Records runs the raw filtered fetch.
func (s *Store) Records(ctx context.Context, f storage.Filter, limit int) ([]schema.Record, error) {
	q, args := s.d.RecordsSQL(f, limit)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query records: %w", s.d.Name(), err)
	}
	defer rows.Close()

	out := []schema.Record{}
	for rows.Next() {
		var r schema.Record
		if err := rows.Scan(r.ScanDest()...); err != nil {
			return nil, fmt.Errorf("%s: scan record: %w", s.d.Name(), err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate records: %w", s.d.Name(), err)
	}
	return out, nil
}

// GroupCounts runs the (factor, security) aggregation.
func (s *Store) GroupCounts(ctx context.Context, f storage.Filter, factor schema.Column) ([]storage.GroupCount, error) {
	q, args, err := s.d.GroupCountsSQL(f, factor)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query counts: %w", s.d.Name(), err)
	}
	defer rows.Close()

	var out []storage.GroupCount
	for rows.Next() {
		var (
			v  any
			gc storage.GroupCount
		)
		if err := rows.Scan(&v, &gc.Security, &gc.Count); err != nil {
			return nil, fmt.Errorf("%s: scan counts: %w", s.d.Name(), err)
		}
		gc.Value = storage.FactorString(v)
		out = append(out, gc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate counts: %w", s.d.Name(), err)
	}
	return out, nil
}

// Tx is a database/sql write transaction.
type Tx struct {
	tx *sql.Tx
	d  storage.Dialect
}

// CopyFrom inserts rows through a prepared single-row INSERT. Every row must
// have len(columns) values.
func (t *Tx) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("%s: CopyFrom: columns must not be empty", t.d.Name())
	}
	if len(rows) == 0 {
		return 0, nil
	}
	stmt, err := t.tx.PrepareContext(ctx, t.d.InsertSQL(columns))
	if err != nil {
		return 0, fmt.Errorf("%s: prepare insert: %w", t.d.Name(), err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			return inserted, fmt.Errorf("%s: CopyFrom: row length %d != columns length %d", t.d.Name(), len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return inserted, fmt.Errorf("%s: insert: %w", t.d.Name(), err)
		}
		inserted++
	}
	return inserted, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", t.d.Name(), err)
	}
	return nil
}

// Rollback aborts the transaction. Rolling back a finished transaction is
// not an error.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("%s: rollback: %w", t.d.Name(), err)
	}
	return nil
}
