// Package fields turns the label/value items produced by an external
// field-extraction service into the canonical financial feature record.
package fields

import (
	"sort"
	"strconv"
	"strings"
)

// Pair is one extracted label/value item.
type Pair struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FinancialFields is the normalized projection of a receipt's extracted
// fields. Numeric members are always real numbers (never NaN): parsing
// strips non-numeric characters and defaults to 0.
type FinancialFields struct {
	VendorName     string
	ExtractedTotal float64
	Date           string
	Tip            float64
	TaxAmount      float64
	PaymentMethod  string
	CardLast4      string
	ItemCount      int
	ItemsList      string
	UserCategory   string // category the submitter claimed, may be empty
}

// Normalize maps label/value pairs into a FinancialFields record. It
// never fails: unknown labels are ignored and unparseable values fall
// back to zero values.
func Normalize(pairs []Pair) FinancialFields {
	var out FinancialFields

	items := map[string]string{}
	for _, p := range pairs {
		key := normalizeKey(p.Label)
		val := strings.TrimSpace(p.Value)
		switch {
		case key == "vendor" || key == "vendor_name" || key == "merchant" || key == "merchant_name":
			out.VendorName = val
		case key == "total" || key == "total_amount" || key == "amount":
			out.ExtractedTotal = parseAmount(val)
		case key == "date" || key == "tx_date" || key == "transaction_date":
			out.Date = val
		case key == "tip" || key == "gratuity":
			out.Tip = parseAmount(val)
		case key == "tax" || key == "tax_amount":
			out.TaxAmount = parseAmount(val)
		case key == "payment_method":
			out.PaymentMethod = val
		case key == "category" || key == "user_category":
			out.UserCategory = val
		case strings.Contains(key, "card_number"):
			out.CardLast4 = last4(val)
		case strings.HasPrefix(key, "item_"):
			items[key] = val
		}
	}

	if len(items) > 0 {
		keys := make([]string, 0, len(items))
		for k := range items {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		vals := make([]string, 0, len(keys))
		for _, k := range keys {
			vals = append(vals, items[k])
		}
		out.ItemCount = len(vals)
		out.ItemsList = strings.Join(vals, "; ")
	}
	return out
}

func normalizeKey(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}

// parseAmount strips every character except digits and '.' before
// conversion, so "$1,234.56" parses as 1234.56. Empty or unparseable
// input yields 0.
func parseAmount(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}

func last4(s string) string {
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}
