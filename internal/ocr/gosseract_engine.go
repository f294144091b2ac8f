package ocr

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/fraudsight/receipt-features/internal/common"
)

// GosseractEngine drives libtesseract in-process. It preprocesses each
// image the same way the upload path does: grayscale, and upscale to
// 1200px height when the capture is small, which measurably improves
// recognition on phone photos of thermal paper.
type GosseractEngine struct {
	cfg    Config
	logger *slog.Logger
}

func NewGosseractEngine(cfg Config, logger *slog.Logger) *GosseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	return &GosseractEngine{cfg: cfg, logger: logger}
}

func (e *GosseractEngine) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	src := path
	var warnings []string
	if pre, err := e.preprocess(path); err == nil {
		src = pre
		defer os.Remove(pre)
	} else {
		warnings = append(warnings, "preprocess: "+err.Error())
	}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(e.cfg.Language); err != nil {
		warnings = append(warnings, "set language: "+err.Error())
	}
	if e.cfg.TessdataDir != "" {
		_ = client.SetTessdataPrefix(e.cfg.TessdataDir)
	}
	if err := client.SetImage(src); err != nil {
		return Result{Warnings: warnings, Duration: time.Since(start)},
			common.NewAppError("OCR_GOSSERACT", path, common.ErrOCRFailure)
	}
	text, err := client.Text()
	if err != nil {
		e.logger.Error("ocr.gosseract.failed", "path", path, "error", err)
		return Result{Warnings: warnings, Duration: time.Since(start)},
			common.NewAppError("OCR_GOSSERACT", path, common.ErrOCRFailure)
	}

	txt := Normalize(text)
	return Result{
		Text:       txt,
		Confidence: heuristicConfidence(txt),
		Duration:   time.Since(start),
		Warnings:   warnings,
	}, nil
}

// preprocess writes a grayscale (and possibly upscaled) copy to a temp
// PNG and returns its path. The caller removes the file.
func (e *GosseractEngine) preprocess(path string) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", err
	}
	gray := imaging.Grayscale(img)
	if gray.Bounds().Dy() < 800 {
		gray = imaging.Resize(gray, 0, 1200, imaging.Lanczos)
	}
	tmp, err := os.CreateTemp("", "ocr-*.png")
	if err != nil {
		return "", err
	}
	name := tmp.Name()
	_ = tmp.Close()
	if err := imaging.Save(gray, name); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}
