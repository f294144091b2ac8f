package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/fraudsight/receipt-features/internal/common"
)

// ExecEngine runs the tesseract binary per image.
type ExecEngine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExecEngine(cfg Config, logger *slog.Logger) *ExecEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	return &ExecEngine{cfg: cfg, runner: execRunner{}, logger: logger}
}

func (e *ExecEngine) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	e.logger.Debug("ocr.extract.start", "path", path, "engine", "exec")

	txt, warn, err := e.tesseractOCR(ctx, path)
	if err != nil {
		return Result{Warnings: warn, Duration: time.Since(start)},
			common.NewAppError("OCR_EXEC", path, common.ErrOCRFailure)
	}
	txt = Normalize(txt)

	var ocrConf float32
	if e.cfg.EnableTSVConfidence {
		if c, w, err2 := e.tesseractTSVConfidence(ctx, path); err2 == nil {
			ocrConf = c
			warn = append(warn, w...)
		} else {
			warn = append(warn, err2.Error())
		}
	}
	heurConf := heuristicConfidence(txt)

	// blend: weight OCR higher if present
	conf := heurConf
	if ocrConf > 0 {
		conf = 0.7*ocrConf + 0.3*heurConf
	}
	if conf > 1.0 {
		conf = 1.0
	}

	return Result{
		Text:       txt,
		Confidence: conf,
		Duration:   time.Since(start),
		Warnings:   warn,
	}, nil
}

func (e *ExecEngine) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	args := e.baseArgs(path)

	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil, nil
}

// tesseractTSVConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (e *ExecEngine) tesseractTSVConfidence(ctx context.Context, path string) (float32, []string, error) {
	args := append(e.baseArgs(path), "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return 0, []string{string(errb)}, fmt.Errorf("tesseract TSV: %w", err)
	}
	lines := strings.Split(string(out), "\n")
	var sum, n float64
	for i, ln := range lines {
		if i == 0 || len(ln) == 0 {
			continue // skip header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue // defensive
		}
		// column layout: level..height, conf (10), text (11); the text
		// column can itself look numeric, so index conf explicitly
		confStr := cols[10]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, nil, nil
	}
	mean := sum / n // 0..100
	return float32(mean / 100.0), nil, nil
}

func (e *ExecEngine) baseArgs(path string) []string {
	args := []string{path, "stdout", "-l", e.cfg.Language}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

// Normalize collapses whitespace runs and lowercases OCR output so the
// keyword heuristics can do plain substring searches over it.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
