package sqlite

import (
	"context"

	"foodsecurity/internal/storage"
)

// newRepository is a test hook that points to Open by default.
var newRepository = func(ctx context.Context, dsn string) (storage.Repository, error) {
	return Open(ctx, dsn)
}

func init() {
	storage.Register(storage.SQLite, func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return newRepository(ctx, cfg.DSN)
	})
}
