package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"foodsecurity/internal/config"
	"foodsecurity/internal/datasource"
	"foodsecurity/internal/ingest"
	"foodsecurity/internal/metrics"
	"foodsecurity/internal/metrics/datadog"
	"foodsecurity/internal/metrics/prom"
	"foodsecurity/internal/storage"
)

// newRepositoryFn is a test seam.
var newRepositoryFn = storage.New

// openRepository opens the configured backend and applies pending migrations.
func openRepository(ctx context.Context, s *config.Settings) (storage.Repository, error) {
	repo, err := newRepositoryFn(ctx, storage.Config{Kind: s.StorageKind, DSN: s.DSN})
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Printf("storage: ready kind=%s", s.StorageKind)
	return repo, nil
}

// setupMetrics installs the Prometheus backend, fanned out to DogStatsD when
// an agent address is configured. The returned handler serves /metrics; the
// flush func pushes to the Pushgateway, if any.
func setupMetrics(s *config.Settings, job string) (http.Handler, func()) {
	pb, err := prom.NewBackend(job, s.PushgatewayURL)
	if err != nil {
		log.Printf("metrics: failed to init prometheus backend: %v; using nop", err)
		return nil, func() {}
	}
	backends := metrics.Fanout{pb}
	if s.StatsdAddr != "" {
		db, err := datadog.NewBackend(datadog.Config{
			Addr:       s.StatsdAddr,
			GlobalTags: []string{"service:foodsec", "job:" + job},
		})
		if err != nil {
			log.Printf("metrics: datadog disabled: %v", err)
		} else {
			backends = append(backends, db)
			log.Printf("metrics: datadog addr=%s", s.StatsdAddr)
		}
	}
	metrics.SetBackend(backends)
	return pb.Handler(), func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}

// resolveInputs picks the extracts to ingest: explicit args, then the list
// file, then the configured defaults.
func resolveInputs(ctx context.Context, args []string, listFile string, defaults []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if listFile != "" {
		locs, err := datasource.ReadList(ctx, listFile)
		if err != nil {
			return nil, err
		}
		if len(locs) == 0 {
			return nil, fmt.Errorf("list %s names no files", listFile)
		}
		return locs, nil
	}
	return defaults, nil
}

func runIngest(ctx context.Context, cfg *config.Config, repo storage.Repository, s *config.Settings, inputs []string) (ingest.Summary, error) {
	p := ingest.New(cfg, repo, ingest.Options{
		BatchSize:   s.BatchSize,
		ReadWorkers: s.ReadWorkers,
		StrictCodes: s.StrictCodes,
	})
	return p.Run(ctx, inputs)
}

// printSummary writes the human-readable run report.
func printSummary(w io.Writer, sum ingest.Summary) {
	fmt.Fprintf(w, "summary: files=%d rows=%d inserted=%d batches=%d elapsed=%s\n",
		len(sum.Files), sum.Rows, sum.Inserted, sum.Batches, sum.Elapsed)
	for _, f := range sum.Files {
		fmt.Fprintf(w, "  %s rows=%d xxh3=%s\n", f.Location, f.Rows, f.Checksum)
	}
	if sum.Mapping.UnmappedTotal() == 0 {
		return
	}
	fmt.Fprintf(w, "unmapped codes stored as NULL: %s\n", sum.Mapping)
}
