// Package ingest loads survey extracts into the food_security table.
//
// A run reads every input completely, renames and projects its columns,
// concatenates the inputs in argument order, maps categorical codes to
// labels, and inserts the records in batches through a single transaction.
// The run is all-or-nothing: any failure rolls the transaction back.
//
//	read (errgroup, ≤ReadWorkers files at once)
//	     → project per file
//	     → concat (input order)
//	     → map codes
//	     → LoadBatches(tx.CopyFrom) → commit
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"foodsecurity/internal/config"
	"foodsecurity/internal/datasource"
	"foodsecurity/internal/metrics"
	"foodsecurity/internal/parser/csv"
	"foodsecurity/internal/schema"
	"foodsecurity/internal/storage"
	"foodsecurity/internal/transformer"
)

const job = "ingest"

// Defaults applied to zero Options fields.
const (
	DefaultBatchSize   = 1000
	DefaultReadWorkers = 4
)

// Options tunes a Pipeline. Zero values select the defaults.
type Options struct {
	BatchSize   int
	ReadWorkers int

	// StrictCodes fails the run on any code missing from its mapping instead
	// of storing NULL.
	StrictCodes bool
}

// FileSummary describes one input.
type FileSummary struct {
	Location string
	Rows     int
	Checksum string // xxh3-64 of the decoded bytes, hex
}

// Summary is the outcome of a successful run.
type Summary struct {
	Files    []FileSummary
	Rows     int
	Inserted int64
	Batches  int64
	Mapping  transformer.Stats
	Elapsed  time.Duration
}

// Pipeline ingests CSV extracts into a Repository.
type Pipeline struct {
	cfg  *config.Config
	repo storage.Repository
	opt  Options

	// open is a test seam; it defaults to datasource.Open.
	open func(ctx context.Context, location string) (io.ReadCloser, error)
}

// New returns a Pipeline writing to repo under cfg.
func New(cfg *config.Config, repo storage.Repository, opt Options) *Pipeline {
	if opt.BatchSize <= 0 {
		opt.BatchSize = DefaultBatchSize
	}
	if opt.ReadWorkers <= 0 {
		opt.ReadWorkers = DefaultReadWorkers
	}
	return &Pipeline{cfg: cfg, repo: repo, opt: opt, open: datasource.Open}
}

// Run ingests locations (local paths or blob URLs, optionally .gz/.zst).
// Nothing is committed unless every step succeeds.
func (p *Pipeline) Run(ctx context.Context, locations []string) (Summary, error) {
	start := time.Now()
	if len(locations) == 0 {
		return Summary{}, errors.New("ingest: no input files")
	}
	log.Printf("ingest: start files=%d read_workers=%d batch=%d strict_codes=%t",
		len(locations), p.opt.ReadWorkers, p.opt.BatchSize, p.opt.StrictCodes)

	stepStart := time.Now()
	tables, files, err := p.readAll(ctx, locations)
	metrics.RecordStep(job, "read", err, time.Since(stepStart))
	if err != nil {
		return Summary{}, err
	}
	warnDuplicates(files)

	stepStart = time.Now()
	recs, stats, err := p.transform(tables)
	metrics.RecordStep(job, "transform", err, time.Since(stepStart))
	if err != nil {
		return Summary{}, err
	}
	metrics.RecordRow(job, "read", int64(stats.Rows))
	metrics.RecordRow(job, "unmapped", int64(stats.UnmappedTotal()))

	stepStart = time.Now()
	inserted, batches, err := p.load(ctx, recs)
	metrics.RecordStep(job, "load", err, time.Since(stepStart))
	if err != nil {
		return Summary{}, err
	}
	metrics.RecordRow(job, "inserted", inserted)

	sum := Summary{
		Files:    files,
		Rows:     stats.Rows,
		Inserted: inserted,
		Batches:  batches,
		Mapping:  stats,
		Elapsed:  time.Since(start),
	}
	log.Printf("ingest: summary files=%d rows=%d inserted=%d batches=%d unmapped=%d elapsed=%s",
		len(files), sum.Rows, sum.Inserted, sum.Batches, stats.UnmappedTotal(), sum.Elapsed.Truncate(time.Millisecond))
	return sum, nil
}

// readAll reads inputs concurrently and returns them in input order.
func (p *Pipeline) readAll(ctx context.Context, locations []string) ([]*csv.Table, []FileSummary, error) {
	tables := make([]*csv.Table, len(locations))
	files := make([]FileSummary, len(locations))
	parser := csv.NewParser(csv.Options{TrimSpace: true, HeaderMap: p.cfg.Rename})
	columns := schema.ColumnNames()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opt.ReadWorkers)
	for i, loc := range locations {
		g.Go(func() error {
			t, sum, err := p.readOne(gctx, parser, loc)
			if err != nil {
				return err
			}
			if t, err = transformer.Project(t, columns); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			tables[i], files[i] = t, sum
			log.Printf("ingest: read file=%s rows=%d xxh3=%s", loc, sum.Rows, sum.Checksum)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return tables, files, nil
}

func (p *Pipeline) readOne(ctx context.Context, parser *csv.Parser, loc string) (*csv.Table, FileSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, FileSummary{}, err
	}
	rc, err := p.open(ctx, loc)
	if err != nil {
		return nil, FileSummary{}, fmt.Errorf("ingest: open %s: %w", loc, err)
	}
	defer rc.Close()

	h := xxh3.New()
	t, err := parser.Read(loc, io.TeeReader(rc, h))
	if err != nil {
		return nil, FileSummary{}, fmt.Errorf("ingest: parse: %w", err)
	}
	return t, FileSummary{
		Location: loc,
		Rows:     len(t.Rows),
		Checksum: fmt.Sprintf("%016x", h.Sum64()),
	}, nil
}

func (p *Pipeline) transform(tables []*csv.Table) ([]schema.Record, transformer.Stats, error) {
	all, err := transformer.Concat(tables...)
	if err != nil {
		return nil, transformer.Stats{}, fmt.Errorf("ingest: %w", err)
	}
	m := transformer.NewMapper(p.cfg)
	m.Strict = p.opt.StrictCodes
	recs, stats, err := m.Map(all)
	if err != nil {
		return nil, stats, fmt.Errorf("ingest: map: %w", err)
	}
	return recs, stats, nil
}

// load inserts recs through one transaction, rolling back on any error.
func (p *Pipeline) load(ctx context.Context, recs []schema.Record) (inserted, batches int64, err error) {
	tx, err := p.repo.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("ingest: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("ingest: rollback failed err=%v", rbErr)
			}
			log.Printf("ingest: rolled back, nothing committed err=%v", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	in := make(chan []any, p.opt.BatchSize)
	g.Go(func() error {
		defer close(in)
		for i := range recs {
			select {
			case in <- recs[i].Row():
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	g.Go(func() error {
		var loadErr error
		inserted, loadErr = storage.LoadBatches(gctx, schema.ColumnNames(), in, p.opt.BatchSize, tx.CopyFrom, func(int64) {
			batches++
			metrics.RecordBatches(job, 1)
		})
		return loadErr
	})
	if err = g.Wait(); err != nil {
		return 0, 0, fmt.Errorf("ingest: load: %w", err)
	}

	commitStart := time.Now()
	err = tx.Commit()
	metrics.RecordStep(job, "commit", err, time.Since(commitStart))
	if err != nil {
		return 0, 0, fmt.Errorf("ingest: %w", err)
	}
	return inserted, batches, nil
}

func warnDuplicates(files []FileSummary) {
	seen := make(map[string]string, len(files))
	for _, f := range files {
		if prev, ok := seen[f.Checksum]; ok {
			log.Printf("ingest: warning duplicate input file=%s same_content_as=%s xxh3=%s", f.Location, prev, f.Checksum)
			continue
		}
		seen[f.Checksum] = f.Location
	}
}
