// Package store persists pipeline runs and their dataset rows to
// SQLite, so repeated corpus builds can be compared without re-running
// OCR. Persistence is optional; the pipeline works without it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fraudsight/receipt-features/internal/dataset"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	corpus_root  TEXT NOT NULL,
	started_at   TIMESTAMP NOT NULL,
	finished_at  TIMESTAMP NOT NULL,
	processed    INTEGER NOT NULL,
	failed       INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS feature_rows (
	run_id                  TEXT NOT NULL REFERENCES runs(id),
	seq                     INTEGER NOT NULL,
	receipt_id              TEXT NOT NULL,
	user_id                 TEXT NOT NULL,
	file_name               TEXT NOT NULL,
	file_path               TEXT NOT NULL,
	is_fraud                INTEGER NOT NULL,
	perceptual_hash         TEXT NOT NULL,
	blur_score              REAL NOT NULL,
	image_width             INTEGER NOT NULL,
	image_height            INTEGER NOT NULL,
	ocr_text                TEXT NOT NULL,
	vendor_name             TEXT NOT NULL,
	extracted_total         REAL NOT NULL,
	tx_date                 TEXT NOT NULL,
	tip                     REAL NOT NULL,
	tax_amount              REAL NOT NULL,
	payment_method          TEXT NOT NULL,
	card_last4              TEXT NOT NULL,
	item_count              INTEGER NOT NULL,
	items_list              TEXT NOT NULL,
	personal_item_flag      INTEGER NOT NULL,
	tip_percent             REAL NOT NULL,
	excessive_tip_flag      INTEGER NOT NULL,
	image_blurry_flag       INTEGER NOT NULL,
	suspicious_vendor_flag  INTEGER NOT NULL,
	category_mismatch_flag  INTEGER NOT NULL,
	duplicate_receipt_flag  INTEGER NOT NULL,
	shared_vendor_flag      INTEGER NOT NULL,
	error                   TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// RunSummary describes one completed pipeline run.
type RunSummary struct {
	ID         string
	CorpusRoot string
	StartedAt  time.Time
	FinishedAt time.Time
	Processed  int
	Failed     int
}

// Store wraps the sqlite handle.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to the sqlite database at dsn (":memory:" works) and
// ensures the schema exists.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", dsn, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	logger.Info("store.open.ok", "dsn", dsn)
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun writes the run summary and all rows in one transaction. The
// run ID is generated when the summary carries none.
func (s *Store) SaveRun(ctx context.Context, run RunSummary, rows []dataset.Row) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, corpus_root, started_at, finished_at, processed, failed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.CorpusRoot, run.StartedAt, run.FinishedAt, run.Processed, run.Failed,
	); err != nil {
		return "", fmt.Errorf("store: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO feature_rows (
			run_id, seq, receipt_id, user_id, file_name, file_path, is_fraud,
			perceptual_hash, blur_score, image_width, image_height, ocr_text,
			vendor_name, extracted_total, tx_date, tip, tax_amount,
			payment_method, card_last4, item_count, items_list,
			personal_item_flag, tip_percent, excessive_tip_flag,
			image_blurry_flag, suspicious_vendor_flag, category_mismatch_flag,
			duplicate_receipt_flag, shared_vendor_flag, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("store: prepare rows: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		r := &rows[i]
		if _, err := stmt.ExecContext(ctx,
			run.ID, i, r.ReceiptID, r.UserID, r.FileName, r.FilePath, boolInt(r.IsFraud),
			r.PerceptualHash, r.BlurScore, r.ImageWidth, r.ImageHeight, r.OCRText,
			r.Fields.VendorName, r.Fields.ExtractedTotal, r.Fields.Date, r.Fields.Tip, r.Fields.TaxAmount,
			r.Fields.PaymentMethod, r.Fields.CardLast4, r.Fields.ItemCount, r.Fields.ItemsList,
			boolInt(r.Signals.PersonalItemFlag), r.Signals.TipPercent, boolInt(r.Signals.ExcessiveTipFlag),
			boolInt(r.Signals.ImageBlurryFlag), boolInt(r.Signals.SuspiciousVendorFlag), boolInt(r.Signals.CategoryMismatchFlag),
			boolInt(r.DuplicateReceiptFlag), boolInt(r.SameVendorMultipleUsersFlag), r.Error,
		); err != nil {
			return "", fmt.Errorf("store: insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("store: commit: %w", err)
	}

	s.logger.Info("store.save_run.ok",
		"run_id", run.ID,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return run.ID, nil
}

// CountRows returns the number of persisted rows for a run.
func (s *Store) CountRows(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feature_rows WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count rows: %w", err)
	}
	return n, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
