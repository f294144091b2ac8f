package export

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fraudsight/receipt-features/internal/dataset"
)

// WriteCSV writes header + one record per row to path. The file is
// assembled in a temp sibling and renamed into place so a failed write
// never leaves a truncated dataset at the destination.
func WriteCSV(path string, rows []dataset.Row, textMax int, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".features-*.csv")
	if err != nil {
		return fmt.Errorf("csv temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.Write(Header); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("csv header: %w", err)
	}
	for i := range rows {
		if err := w.Write(Record(rows[i], textMax)); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("csv row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("csv flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csv close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("csv rename: %w", err)
	}

	logger.Info("export.csv.ok",
		"path", path,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
