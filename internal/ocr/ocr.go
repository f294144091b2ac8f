// Package ocr turns receipt images into lowercase text blobs for the
// keyword heuristics downstream. Two engines are provided: the default
// shells out to the tesseract binary through a stubbable Runner, the
// other drives libtesseract in-process via gosseract.
package ocr

import (
	"context"
	"time"
)

type Config struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Language    string // default "eng"
	TessdataDir string

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	EnableTSVConfidence bool
}

// Result is one OCR extraction outcome.
type Result struct {
	Text       string // lowercased full text; empty on failure
	Confidence float32
	Duration   time.Duration
	Warnings   []string
}

// TextExtractor is the engine contract the pipeline depends on.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (Result, error)
}
