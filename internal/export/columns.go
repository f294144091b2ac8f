// Package export serializes the final dataset rows to tabular sinks.
// Row order always equals processing order, and writes are all-or-
// nothing: a failed write leaves no usable partial output behind.
package export

import (
	"strconv"

	"github.com/fraudsight/receipt-features/internal/dataset"
)

// Header is the fixed column order of every export format.
var Header = []string{
	"receipt_id",
	"user_id",
	"file_name",
	"vendor_name",
	"extracted_total",
	"date",
	"tip",
	"tax_amount",
	"payment_method",
	"card_last4",
	"item_count",
	"items_list",
	"perceptual_hash",
	"blur_score",
	"image_width",
	"image_height",
	"ocr_text",
	"personal_item_flag",
	"tip_percent",
	"excessive_tip_flag",
	"image_blurry_flag",
	"suspicious_vendor_flag",
	"category_mismatch_flag",
	"duplicate_receipt_flag",
	"same_vendor_multiple_users_flag",
	"is_fraud",
	"error",
}

// Record flattens one row into Header order. OCR text is truncated to
// textMax characters to keep rows small.
func Record(r dataset.Row, textMax int) []string {
	return []string{
		r.ReceiptID,
		r.UserID,
		r.FileName,
		r.Fields.VendorName,
		formatFloat(r.Fields.ExtractedTotal),
		r.Fields.Date,
		formatFloat(r.Fields.Tip),
		formatFloat(r.Fields.TaxAmount),
		r.Fields.PaymentMethod,
		r.Fields.CardLast4,
		strconv.Itoa(r.Fields.ItemCount),
		r.Fields.ItemsList,
		r.PerceptualHash,
		formatFloat(r.BlurScore),
		strconv.Itoa(r.ImageWidth),
		strconv.Itoa(r.ImageHeight),
		truncate(r.OCRText, textMax),
		formatBool(r.Signals.PersonalItemFlag),
		formatFloat(r.Signals.TipPercent),
		formatBool(r.Signals.ExcessiveTipFlag),
		formatBool(r.Signals.ImageBlurryFlag),
		formatBool(r.Signals.SuspiciousVendorFlag),
		formatBool(r.Signals.CategoryMismatchFlag),
		formatBool(r.DuplicateReceiptFlag),
		formatBool(r.SameVendorMultipleUsersFlag),
		formatBool(r.IsFraud),
		r.Error,
	}
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
