package fields

import (
	"context"
	"errors"
	"log/slog"
	"os"
)

// ErrNoFields reports that no extraction source produced fields for the
// image; the caller keeps zero-value FinancialFields.
var ErrNoFields = errors.New("no extracted fields available")

// Extractor is the contract for sourcing label/value pairs per image.
type Extractor interface {
	ExtractFields(ctx context.Context, imagePath string) ([]Pair, error)
}

// SidecarExtractor reads <image>.json placed next to each image. It is
// the deterministic source for offline dataset builds: extraction runs
// once (or by hand) and the pipeline stays reproducible.
type SidecarExtractor struct {
	Logger *slog.Logger
}

func NewSidecarExtractor(logger *slog.Logger) *SidecarExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SidecarExtractor{Logger: logger}
}

func (s *SidecarExtractor) ExtractFields(_ context.Context, imagePath string) ([]Pair, error) {
	raw, err := os.ReadFile(imagePath + ".json")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoFields
		}
		return nil, err
	}
	pairs, err := DecodePairs(raw)
	if err != nil {
		s.Logger.Warn("fields.sidecar.invalid", "path", imagePath+".json", "error", err)
		return nil, err
	}
	return pairs, nil
}

// Chain tries extractors in order, returning the first hit. A source
// failing with ErrNoFields falls through; hard errors fall through too
// but are logged, because a missing field set degrades to defaults
// rather than failing the record.
type Chain struct {
	Sources []Extractor
	Logger  *slog.Logger
}

func (c Chain) ExtractFields(ctx context.Context, imagePath string) ([]Pair, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, src := range c.Sources {
		pairs, err := src.ExtractFields(ctx, imagePath)
		if err == nil {
			return pairs, nil
		}
		if !errors.Is(err, ErrNoFields) {
			logger.Warn("fields.extract.source_failed", "path", imagePath, "error", err)
		}
	}
	return nil, ErrNoFields
}
