// Package migrate applies the embedded schema migrations for a dialect.
//
// Migration files live under migrations/<dialect>/ and are applied in name
// order, at most once each. Applied names are recorded in schema_migrations.
// Only the "-- +migrate Up" section of a file is executed; statements are
// split on ';' and run one by one inside a transaction.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"
	"sort"
	"strings"
	"time"

	"foodsecurity/internal/storage"
)

// Table records applied migrations.
const Table = "schema_migrations"

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

//go:embed migrations
var embedded embed.FS

// Up applies the embedded migrations for d.
func Up(ctx context.Context, db *sql.DB, d storage.Dialect) error {
	return Apply(ctx, db, d, embedded, path.Join("migrations", d.Name()))
}

// Apply executes the .sql files found in root of fsys that are not yet
// recorded in Table.
func Apply(ctx context.Context, db *sql.DB, d storage.Dialect, fsys fs.FS, root string) error {
	if db == nil {
		return fmt.Errorf("migrate: sql db is required")
	}
	root = strings.TrimSpace(root)
	if root == "" {
		root = "."
	}

	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("migrate: read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if _, err := db.ExecContext(ctx, d.MigrationsTableDDL(Table)); err != nil {
		return fmt.Errorf("migrate: ensure migration table: %w", err)
	}

	for _, name := range files {
		content, err := fs.ReadFile(fsys, path.Join(root, name))
		if err != nil {
			return fmt.Errorf("migrate: read %s: %w", name, err)
		}
		applied, err := isApplied(ctx, db, d, name)
		if err != nil {
			return fmt.Errorf("migrate: check %s: %w", name, err)
		}
		if applied {
			continue
		}
		if err := applyOne(ctx, db, d, name, ExtractUpMigration(string(content))); err != nil {
			return err
		}
		log.Printf("migrate: applied dialect=%s name=%s", d.Name(), name)
	}
	return nil
}

func applyOne(ctx context.Context, db *sql.DB, d storage.Dialect, name, up string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: begin %s: %w", name, err)
	}
	for _, stmt := range SplitStatements(up) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil && !IsAlreadyExistsError(err) {
			_ = tx.Rollback()
			return fmt.Errorf("migrate: exec %s: %w", name, err)
		}
	}
	insert := fmt.Sprintf("INSERT INTO %s (name, applied_at) VALUES (%s, %s)", Table, d.Bind(1), d.Bind(2))
	if _, err := tx.ExecContext(ctx, insert, name, time.Now().UTC().UnixMilli()); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("migrate: record %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit %s: %w", name, err)
	}
	return nil
}

// ExtractUpMigration returns the SQL in the "-- +migrate Up" section, or the
// whole content when the file has no markers.
func ExtractUpMigration(content string) string {
	up := strings.Index(content, upMarker)
	if up == -1 {
		return content
	}
	down := strings.Index(content, downMarker)
	if down == -1 || down < up {
		return content[up+len(upMarker):]
	}
	return content[up+len(upMarker) : down]
}

// SplitStatements splits a script on ';'. Chunks holding only whitespace or
// line comments are dropped.
func SplitStatements(script string) []string {
	var out []string
	for _, chunk := range strings.Split(script, ";") {
		if hasCode(chunk) {
			out = append(out, strings.TrimSpace(chunk))
		}
	}
	return out
}

func hasCode(chunk string) bool {
	for _, line := range strings.Split(chunk, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return true
		}
	}
	return false
}

// IsAlreadyExistsError reports whether err indicates the DDL had already
// been applied.
func IsAlreadyExistsError(err error) bool {
	v := strings.ToLower(err.Error())
	return strings.Contains(v, "already exists") ||
		strings.Contains(v, "duplicate column name") ||
		strings.Contains(v, "duplicate key name")
}

func isApplied(ctx context.Context, db *sql.DB, d storage.Dialect, name string) (bool, error) {
	var found int
	err := db.QueryRowContext(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE name = %s", Table, d.Bind(1)), name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
