package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fraudsight/receipt-features/internal/dataset"
	"github.com/fraudsight/receipt-features/internal/ingest"
)

// RunConfig parameterizes a batch run.
type RunConfig struct {
	Workers       int
	RecordTimeout time.Duration
	HashMode      dataset.HashMode
	HammingMax    int
}

// RunResult is the outcome of a full corpus build.
type RunResult struct {
	Rows      []dataset.Row
	StartedAt time.Time
	Finished  time.Time
	Processed int // rows with no error annotation
	Failed    int // rows with at least one failed computation
}

// Run executes the first pass over all entries with a bounded worker
// pool, waits for the barrier, then runs the corpus aggregation. Row
// order always equals entry order regardless of worker interleaving,
// and the output always has exactly one row per entry.
func Run(ctx context.Context, proc *Processor, entries []ingest.SourceEntry, cfg RunConfig) RunResult {
	logger := proc.Logger
	start := time.Now()

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	rows := make([]dataset.Row, len(entries))

	// First pass: embarrassingly parallel, no record reads another
	// record's output. Indices keep the output ordering stable.
	idxCh := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxCh {
				recordCtx := ctx
				cancel := func() {}
				if cfg.RecordTimeout > 0 {
					recordCtx, cancel = context.WithTimeout(ctx, cfg.RecordTimeout)
				}
				rows[i] = proc.Process(recordCtx, entries[i])
				cancel()
			}
		}()
	}
	for i := range entries {
		idxCh <- i
	}
	close(idxCh)

	// Strict barrier: aggregation keys are built from the full set.
	wg.Wait()

	dataset.Aggregate(rows, dataset.AggregateConfig{
		Mode:       cfg.HashMode,
		HammingMax: cfg.HammingMax,
		Logger:     logger,
	})

	res := RunResult{
		Rows:      rows,
		StartedAt: start,
		Finished:  time.Now(),
	}
	for i := range rows {
		if rows[i].Error == "" {
			res.Processed++
		} else {
			res.Failed++
		}
	}

	logger.Info("pipeline.run.ok",
		"entries", len(entries),
		"processed", res.Processed,
		"failed", res.Failed,
		"workers", cfg.Workers,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res
}
