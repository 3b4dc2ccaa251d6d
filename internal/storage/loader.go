package storage

// This file implements the batched loader that drains rows from a channel and
// hands each batch to a CopyFn, normally Tx.CopyFrom. Postgres implements it
// with COPY; the database/sql backends with a prepared INSERT per row.
//
// A progress line is logged on every successful flush.

import (
	"context"
	"fmt"
	"log"
	"time"
)

// CopyFn inserts rows aligned to columns and returns the number inserted. It
// is called repeatedly and should return promptly once ctx is done.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls copyFn for each non-empty batch. It returns the total reported by
// copyFn and the first error. A canceled ctx returns (total, ctx.Err()).
//
// onBatch, when non-nil, is called after every successful flush with the
// batch size.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
	onBatch func(n int64),
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("loader: batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("loader: copyFn must not be nil")
	}

	var (
		total       int64
		batches     int64
		batch       = make([][]any, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n

		// copyFn must not retain the batch.
		batch = make([][]any, 0, batchSize)

		if err != nil {
			log.Printf("loader: copy failed after=%d total=%d err=%v", n, total, err)
			return err
		}

		batches++
		if onBatch != nil {
			onBatch(n)
		}
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		insertedSinceLast := total - lastTotal
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(insertedSinceLast) / sinceLast.Seconds()
		}
		log.Printf(
			"loader: batch #%d rps=%.0f inserted=%d total_inserted=%d elapsed=%s since_last=%s",
			batches,
			rps,
			n,
			total,
			now.Sub(start).Truncate(time.Millisecond),
			sinceLast.Truncate(time.Millisecond),
		)
		lastFlushTS = now
		lastTotal = total

		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case row, ok := <-in:
			if !ok {
				final := len(batch)
				if err := flush(); err != nil {
					return total, err
				}
				log.Printf("loader: input closed final_flush=%d batches=%d total_inserted=%d", final, batches, total)
				return total, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}
