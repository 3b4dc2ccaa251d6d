package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"foodsecurity/internal/storage"
)

// TestSQLiteStorageRegistrationUsesNewRepositoryHook verifies that the
// "sqlite" kind registered in init() goes through the newRepository hook.
// It swaps a package variable, so it does not run in parallel.
func TestSQLiteStorageRegistrationUsesNewRepositoryHook(t *testing.T) {
	ctx := context.Background()

	orig := newRepository
	defer func() { newRepository = orig }()

	var gotDSN string
	newRepository = func(ctx context.Context, dsn string) (storage.Repository, error) {
		gotDSN = dsn
		return orig(ctx, dsn)
	}

	dsn := filepath.Join(t.TempDir(), "hook.db")
	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	defer repo.Close()

	if gotDSN != dsn {
		t.Fatalf("hook dsn = %q, want %q", gotDSN, dsn)
	}
	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestOpen_EmptyDSN(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}

// BenchmarkSQLiteStorageNew measures opening a SQLite repository through the
// storage factory.
func BenchmarkSQLiteStorageNew(b *testing.B) {
	ctx := context.Background()
	dsn := filepath.Join(b.TempDir(), "bench.db")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: dsn})
		if err != nil {
			b.Fatalf("storage.New() error = %v", err)
		}
		_ = repo.Close()
	}
}
