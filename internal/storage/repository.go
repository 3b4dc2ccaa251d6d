// Package storage contains the storage-agnostic contracts for the
// food_security table, the backend registry, and the SQL shared by the
// database/sql backends.
//
// Backends register a Factory under their kind in init(); importing
// foodsecurity/internal/storage/all links every built-in backend in.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"foodsecurity/internal/schema"
)

// Repository is the persistence surface used by ingestion and queries. It is
// safe for concurrent use.
type Repository interface {
	// Migrate applies pending schema migrations.
	Migrate(ctx context.Context) error

	// Begin opens the write transaction an ingestion run inserts through.
	Begin(ctx context.Context) (Tx, error)

	// Records returns rows matching f ordered by id. limit <= 0 means
	// unbounded.
	Records(ctx context.Context, f Filter, limit int) ([]schema.Record, error)

	// GroupCounts counts rows with a non-NULL security, grouped by
	// (factor, security).
	GroupCounts(ctx context.Context, f Filter, factor schema.Column) ([]GroupCount, error)

	Ping(ctx context.Context) error
	Close() error
}

// Tx is a write transaction. CopyFrom matches CopyFn so a Tx can be handed
// straight to LoadBatches.
type Tx interface {
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	Commit() error
	Rollback() error
}

// Filter restricts a query. Zero fields match everything.
type Filter struct {
	State string
	Year  int
}

// GroupCount is one (factor value, security) cell. Value is nil when the
// factor column is NULL.
type GroupCount struct {
	Value    *string
	Security string
	Count    int64
}

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds or replaces the factory for kind.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// New opens the backend registered under cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s (have %s)", cfg.Kind, strings.Join(ListKinds(), ", "))
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
