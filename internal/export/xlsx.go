package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fraudsight/receipt-features/internal/dataset"
)

const sheet = "Features"

// XLSXBytes renders the dataset as an XLSX workbook, returned as bytes
// so callers decide where it lands.
func XLSXBytes(rows []dataset.Row, textMax int, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for ri := range rows {
		rec := Record(rows[ri], textMax)
		for ci, v := range rec {
			cell, _ := excelize.CoordinatesToCellName(ci+1, ri+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	// Widen identity and free-text columns.
	_ = f.SetColWidth(sheet, "A", "A", 28)   // receipt_id
	_ = f.SetColWidth(sheet, "C", "C", 24)   // file_name
	_ = f.SetColWidth(sheet, "D", "D", 22)   // vendor_name
	_ = f.SetColWidth(sheet, "L", "L", 36)   // items_list
	_ = f.SetColWidth(sheet, "Q", "Q", 60)   // ocr_text
	_ = f.SetColWidth(sheet, "AA", "AA", 40) // error

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
