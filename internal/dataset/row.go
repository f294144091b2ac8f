// Package dataset holds the flattened per-receipt feature rows and the
// corpus-level aggregation passes that can only run once every record
// has been extracted.
package dataset

import (
	"github.com/fraudsight/receipt-features/internal/fields"
	"github.com/fraudsight/receipt-features/internal/heuristics"
)

// Row is the flattened union of source identity, image features,
// financial fields and fraud signals for one receipt. Rows are appended
// during the first pass and mutated in place by the aggregation pass;
// they are immutable once handed to a writer.
type Row struct {
	ReceiptID string // {userId}_{fileBaseName}
	UserID    string
	FilePath  string
	FileName  string
	IsFraud   bool // ground-truth label from the containing folder

	PerceptualHash string // empty when fingerprinting failed
	BlurScore      float64
	OCRText        string
	ImageWidth     int
	ImageHeight    int

	Fields  fields.FinancialFields
	Signals heuristics.Signals

	// Corpus-relative flags, written by Aggregate only.
	DuplicateReceiptFlag        bool
	SameVendorMultipleUsersFlag bool

	// Error carries semicolon-joined per-computation failures for
	// observability; empty for clean records.
	Error string
}
