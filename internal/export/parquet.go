// Package export writes filtered records as Parquet to a local path or a
// blob URL.
package export

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/parquet-go/parquet-go"

	"foodsecurity/internal/datasource"
	"foodsecurity/internal/schema"
	"foodsecurity/internal/storage"
)

// RowGroupSize caps the rows written per Parquet row group.
const RowGroupSize = 10_000

// Source fetches the records to export; query.Service and any
// storage.Repository satisfy it.
type Source interface {
	Records(ctx context.Context, f storage.Filter, limit int) ([]schema.Record, error)
}

// Write encodes recs to w as zstd-compressed Parquet and returns the number
// of rows written.
func Write(w io.Writer, recs []schema.Record) (int, error) {
	pw := parquet.NewGenericWriter[schema.Record](w,
		parquet.Compression(&parquet.Zstd),
		parquet.CreatedBy("foodsec", "", ""),
	)
	var written int
	for start := 0; start < len(recs); start += RowGroupSize {
		end := min(start+RowGroupSize, len(recs))
		n, err := pw.Write(recs[start:end])
		written += n
		if err != nil {
			return written, fmt.Errorf("export: write rows: %w", err)
		}
		if err := pw.Flush(); err != nil {
			return written, fmt.Errorf("export: flush row group: %w", err)
		}
	}
	if err := pw.Close(); err != nil {
		return written, fmt.Errorf("export: close writer: %w", err)
	}
	return written, nil
}

// Records fetches the rows matching f (limit <= 0 means all) and writes them
// to location.
func Records(ctx context.Context, src Source, f storage.Filter, limit int, location string) (int, error) {
	start := time.Now()
	recs, err := src.Records(ctx, f, limit)
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}

	wc, err := datasource.Create(ctx, location)
	if err != nil {
		return 0, fmt.Errorf("export: create %s: %w", location, err)
	}
	n, err := Write(wc, recs)
	if cerr := wc.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("export: close %s: %w", location, cerr)
	}
	if err != nil {
		return n, err
	}
	log.Printf("export: wrote location=%s rows=%d state=%q year=%d elapsed=%s",
		location, n, f.State, f.Year, time.Since(start).Truncate(time.Millisecond))
	return n, nil
}
