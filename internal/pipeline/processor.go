// Package pipeline coordinates the two-pass corpus build: a per-record
// extraction pass (hash, blur, OCR, fields, heuristics) followed by the
// corpus-level aggregation barrier and the export sinks.
package pipeline

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fraudsight/receipt-features/internal/dataset"
	"github.com/fraudsight/receipt-features/internal/fields"
	"github.com/fraudsight/receipt-features/internal/heuristics"
	"github.com/fraudsight/receipt-features/internal/imgproc"
	"github.com/fraudsight/receipt-features/internal/ingest"
	"github.com/fraudsight/receipt-features/internal/ocr"
)

// Processor computes all single-record features for one source entry.
type Processor struct {
	Logger     *slog.Logger
	OCR        ocr.TextExtractor
	Fields     fields.Extractor // nil disables field extraction
	Heuristics *heuristics.Engine
	HashMode   dataset.HashMode
}

func NewProcessor(logger *slog.Logger, engine ocr.TextExtractor, fieldSrc fields.Extractor, heur *heuristics.Engine, mode dataset.HashMode) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if heur == nil {
		heur = heuristics.NewEngine(heuristics.DefaultConfig())
	}
	return &Processor{
		Logger:     logger,
		OCR:        engine,
		Fields:     fieldSrc,
		Heuristics: heur,
		HashMode:   mode,
	}
}

// Process extracts every per-record feature for entry. It never returns
// an error: each failed computation degrades to its sentinel and is
// recorded in the row's error annotation, so one broken image cannot
// abort the batch.
func (p *Processor) Process(ctx context.Context, entry ingest.SourceEntry) dataset.Row {
	base := filepath.Base(entry.Path)
	row := dataset.Row{
		ReceiptID: entry.UserID + "_" + base,
		UserID:    entry.UserID,
		FilePath:  entry.Path,
		FileName:  base,
		IsFraud:   entry.IsFraud,
		BlurScore: imgproc.BlurSentinel,
	}
	var failures []string

	gray, decodeErr := imgproc.Decode(entry.Path)
	if decodeErr != nil {
		p.Logger.Warn("pipeline.decode.failed", "path", entry.Path, "error", decodeErr)
		failures = append(failures, "decode: "+decodeErr.Error())
	} else {
		row.ImageWidth = gray.Bounds().Dx()
		row.ImageHeight = gray.Bounds().Dy()
	}

	// Hash, blur and OCR are independent computations over the same
	// decoded image; each runs isolated so one failure cannot starve
	// the other two.
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	fail := func(msg string) {
		mu.Lock()
		failures = append(failures, msg)
		mu.Unlock()
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		hash, err := p.fingerprint(entry.Path, gray)
		if err != nil {
			fail("hash: " + err.Error())
			return
		}
		row.PerceptualHash = hash
	}()
	go func() {
		defer wg.Done()
		if gray == nil {
			return // decode failure already recorded
		}
		score, err := imgproc.LaplacianVariance(gray)
		if err != nil {
			fail("blur: " + err.Error())
			return
		}
		row.BlurScore = score
	}()
	go func() {
		defer wg.Done()
		res, err := p.OCR.Extract(ctx, entry.Path)
		if err != nil {
			fail("ocr: " + err.Error())
			return
		}
		row.OCRText = res.Text
	}()
	wg.Wait()

	if p.Fields != nil {
		pairs, err := p.Fields.ExtractFields(ctx, entry.Path)
		switch {
		case err == nil:
			row.Fields = fields.Normalize(pairs)
		case errors.Is(err, fields.ErrNoFields):
			// zero-value fields are the documented default
		default:
			fail("fields: " + err.Error())
		}
	}

	row.Signals = p.Heuristics.Evaluate(row.OCRText, row.Fields, row.BlurScore, row.Fields.UserCategory)
	row.Error = strings.Join(failures, "; ")

	p.Logger.Debug("pipeline.record.done",
		"receipt_id", row.ReceiptID,
		"blur_score", row.BlurScore,
		"hash", row.PerceptualHash,
		"ocr_chars", len(row.OCRText),
		"errors", row.Error,
	)
	return row
}

// fingerprint derives the duplicate-grouping identity per the selected
// mode. Legacy mode works even for undecodable files since it only
// needs the file size; perceptual mode needs pixels.
func (p *Processor) fingerprint(path string, gray *image.Gray) (string, error) {
	if p.HashMode == dataset.HashModeLegacy {
		fi, err := os.Stat(path)
		if err != nil {
			return "", err
		}
		return imgproc.LegacyHash(path, fi.Size()), nil
	}
	if gray == nil {
		return "", errors.New("no decoded image for perceptual hash")
	}
	return imgproc.AverageHash(gray), nil
}
