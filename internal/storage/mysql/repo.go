// Package mysql registers the MySQL backend, built on go-sql-driver/mysql and
// the shared database/sql store.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"

	"foodsecurity/internal/storage"
	"foodsecurity/internal/storage/sqldb"
)

var dialect = storage.MustDialect(storage.MySQL)

// ParseDSN validates dsn ("user:pass@tcp(host:3306)/db"). Connection
// charset is left to the driver (utf8mb4 unless the DSN sets one); entries
// in cfg.Params run as SET statements on connect, so none are added here.
func ParseDSN(dsn string) (*gomysql.Config, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: dsn: %w", err)
	}
	if cfg.DBName == "" {
		return nil, fmt.Errorf("mysql: dsn: database name is required")
	}
	return cfg, nil
}

// Open connects to MySQL.
func Open(ctx context.Context, dsn string) (*sqldb.Store, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	conn, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql: connector: %w", err)
	}
	return sqldb.Connect(ctx, sql.OpenDB(conn), dialect)
}

// newRepository is a test hook that points to Open by default.
var newRepository = func(ctx context.Context, dsn string) (storage.Repository, error) {
	return Open(ctx, dsn)
}

func init() {
	storage.Register(storage.MySQL, func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return newRepository(ctx, cfg.DSN)
	})
}
