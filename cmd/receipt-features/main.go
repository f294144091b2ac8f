package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fraudsight/receipt-features/constants"
	"github.com/fraudsight/receipt-features/internal/common"
	"github.com/fraudsight/receipt-features/internal/dataset"
	"github.com/fraudsight/receipt-features/internal/export"
	"github.com/fraudsight/receipt-features/internal/fields"
	"github.com/fraudsight/receipt-features/internal/heuristics"
	"github.com/fraudsight/receipt-features/internal/ingest"
	"github.com/fraudsight/receipt-features/internal/ocr"
	"github.com/fraudsight/receipt-features/internal/pipeline"
	"github.com/fraudsight/receipt-features/internal/store"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir     = flag.String("dir", "", "corpus root containing label directories (required)")
		out     = flag.String("out", "", "output CSV path (defaults to <dir>/../features.csv)")
		xlsxOut = flag.String("xlsx", "", "optional XLSX output path")
		watch   = flag.Bool("watch", false, "keep running and process new images as they appear")
		workers = flag.Int("workers", 0, "worker count override (defaults to WORKERS env)")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "features.csv")
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *workers > 0 {
		cfg.Pipeline.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	keywords := constants.Defaults()
	if cfg.Pipeline.KeywordsFile != "" {
		loaded, err := constants.LoadKeywordTables(cfg.Pipeline.KeywordsFile)
		if err != nil {
			logger.Error("failed to load keywords file", "path", cfg.Pipeline.KeywordsFile, "error", err)
			os.Exit(1)
		}
		keywords = loaded
		logger.Info("keywords loaded", "path", cfg.Pipeline.KeywordsFile)
	}

	proc := pipeline.NewProcessor(
		logger,
		buildOCR(cfg, logger),
		buildFields(cfg, logger),
		heuristics.NewEngine(heuristics.Config{
			Keywords:              keywords,
			BlurThreshold:         cfg.Thresholds.Blur,
			ExcessiveTipThreshold: cfg.Thresholds.ExcessiveTip,
		}),
		dataset.HashMode(cfg.Hash.Mode),
	)

	runCfg := pipeline.RunConfig{
		Workers:       cfg.Pipeline.Workers,
		RecordTimeout: cfg.Pipeline.RecordTimeout,
		HashMode:      dataset.HashMode(cfg.Hash.Mode),
		HammingMax:    cfg.Thresholds.DuplicateHash,
	}

	if err := runBatch(ctx, cfg, proc, runCfg, *dir, *out, *xlsxOut, logger); err != nil {
		logger.Error("batch run failed", "error", err)
		os.Exit(1)
	}

	if *watch {
		if err := runWatch(ctx, cfg, proc, runCfg, *dir, *out, *xlsxOut, logger); err != nil {
			logger.Error("watch mode failed", "error", err)
			os.Exit(1)
		}
	}
}

// buildOCR assembles the configured engine behind the shared throttle.
func buildOCR(cfg *common.Config, logger *slog.Logger) ocr.TextExtractor {
	ocrCfg := ocr.Config{
		Tesseract:           cfg.OCR.Tesseract,
		Language:            cfg.OCR.Language,
		TessdataDir:         cfg.OCR.TessdataDir,
		PSM:                 cfg.OCR.PSM,
		OEM:                 cfg.OCR.OEM,
		EnableTSVConfidence: true,
	}
	var engine ocr.TextExtractor
	if cfg.OCR.Engine == "gosseract" {
		engine = ocr.NewGosseractEngine(ocrCfg, logger)
	} else {
		engine = ocr.NewExecEngine(ocrCfg, logger)
	}
	return ocr.Throttled{Engine: engine, Throttle: ocr.NewThrottle(cfg.OCR.Interval)}
}

// buildFields wires the extraction chain: sidecar JSON first, then the
// vision model when an API key is present.
func buildFields(cfg *common.Config, logger *slog.Logger) fields.Extractor {
	sources := []fields.Extractor{fields.NewSidecarExtractor(logger)}
	if cfg.LLM.APIKey != "" {
		sources = append(sources, fields.NewHTTPExtractor(fields.HTTPConfig{
			Model:       cfg.LLM.Model,
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger))
		logger.Info("vision extraction enabled", "model", cfg.LLM.Model)
	}
	return fields.Chain{Sources: sources, Logger: logger}
}

func runBatch(ctx context.Context, cfg *common.Config, proc *pipeline.Processor, runCfg pipeline.RunConfig, dir, out, xlsxOut string, logger *slog.Logger) error {
	entries, stats, err := ingest.ScanCorpus(dir, logger)
	if err != nil {
		return err
	}
	logger.Info("corpus scanned",
		"root", dir,
		"label_dirs", stats.LabelDirs,
		"matched", stats.Matched,
		"skipped", stats.Skipped,
	)

	res := pipeline.Run(ctx, proc, entries, runCfg)
	if err := writeOutputs(res.Rows, out, xlsxOut, cfg.Thresholds.OCRTextMax, logger); err != nil {
		return err
	}
	if err := persistRun(ctx, cfg, dir, res, logger); err != nil {
		return err
	}

	fmt.Printf("processed %d receipts (%d failed) -> %s\n", res.Processed, res.Failed, out)
	return nil
}

// runWatch appends to the dataset as new images land in the corpus.
// Corpus flags are recomputed over the whole accumulated set after each
// new record so duplicate grouping stays correct.
func runWatch(ctx context.Context, cfg *common.Config, proc *pipeline.Processor, runCfg pipeline.RunConfig, dir, out, xlsxOut string, logger *slog.Logger) error {
	entryCh, errCh, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Root:     dir,
		Debounce: 500 * time.Millisecond,
	}, logger)
	if err != nil {
		return err
	}
	logger.Info("watching corpus", "root", dir)

	entries, _, err := ingest.ScanCorpus(dir, logger)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(entries))
	var rows []dataset.Row
	res := pipeline.Run(ctx, proc, entries, runCfg)
	rows = res.Rows
	for _, e := range entries {
		seen[e.Path] = true
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped")
			return nil
		case werr, ok := <-errCh:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", werr)
		case entry, ok := <-entryCh:
			if !ok {
				return nil
			}
			if seen[entry.Path] {
				continue
			}
			seen[entry.Path] = true

			recordCtx := ctx
			cancel := func() {}
			if runCfg.RecordTimeout > 0 {
				recordCtx, cancel = context.WithTimeout(ctx, runCfg.RecordTimeout)
			}
			row := proc.Process(recordCtx, entry)
			cancel()

			rows = append(rows, row)
			dataset.Aggregate(rows, dataset.AggregateConfig{
				Mode:       runCfg.HashMode,
				HammingMax: runCfg.HammingMax,
				Logger:     logger,
			})
			if err := writeOutputs(rows, out, xlsxOut, cfg.Thresholds.OCRTextMax, logger); err != nil {
				logger.Error("export failed", "error", err)
			}
		}
	}
}

func writeOutputs(rows []dataset.Row, out, xlsxOut string, textMax int, logger *slog.Logger) error {
	if err := export.WriteCSV(out, rows, textMax, logger); err != nil {
		return err
	}
	if xlsxOut == "" {
		return nil
	}
	data, err := export.XLSXBytes(rows, textMax, logger)
	if err != nil {
		return err
	}
	return os.WriteFile(xlsxOut, data, 0o644)
}

func persistRun(ctx context.Context, cfg *common.Config, dir string, res pipeline.RunResult, logger *slog.Logger) error {
	if cfg.Store.DSN == "" {
		return nil
	}
	st, err := store.Open(ctx, cfg.Store.DSN, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Warn("store close failed", "error", cerr)
		}
	}()

	runID, err := st.SaveRun(ctx, store.RunSummary{
		CorpusRoot: dir,
		StartedAt:  res.StartedAt,
		FinishedAt: res.Finished,
		Processed:  res.Processed,
		Failed:     res.Failed,
	}, res.Rows)
	if err != nil {
		return err
	}
	logger.Info("run persisted", "run_id", runID, "rows", len(res.Rows))
	return nil
}
