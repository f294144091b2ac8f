package heuristics

import (
	"math"
	"testing"

	"github.com/fraudsight/receipt-features/constants"
	"github.com/fraudsight/receipt-features/internal/fields"
)

func testConfig() Config {
	return Config{
		Keywords: constants.KeywordTables{
			PersonalItems:     []string{"jewelry", "gift card"},
			SuspiciousVendors: []string{"walmart", "best buy"},
			Categories: map[string][]string{
				"meals": {"restaurant", "food", "burger"},
				"fuel":  {"gas", "diesel"},
			},
		},
		BlurThreshold:         100,
		ExcessiveTipThreshold: 25,
	}
}

func TestTipPercent(t *testing.T) {
	cases := []struct {
		tip, total, tax float64
		want            float64
	}{
		{5, 25, 2, 21.74}, // 5/(25-2)*100
		{5, 2, 2, 0},      // subtotal <= 0 guard
		{0, 100, 0, 0},
		{10, 50, 0, 20},
		{5, 0, 0, 0},
	}
	for _, c := range cases {
		got := TipPercent(c.tip, c.total, c.tax)
		if math.Abs(got-c.want) > 0.01 {
			t.Fatalf("TipPercent(%v, %v, %v) = %v, want %v", c.tip, c.total, c.tax, got, c.want)
		}
	}
}

func TestPersonalItemFlag(t *testing.T) {
	e := NewEngine(testConfig())
	s := e.Evaluate("bought some jewelry and coffee", fields.FinancialFields{}, 500, "")
	if !s.PersonalItemFlag {
		t.Fatal("jewelry in text should flag personal item")
	}
	s = e.Evaluate("two coffees and a sandwich", fields.FinancialFields{}, 500, "")
	if s.PersonalItemFlag {
		t.Fatal("clean text should not flag personal item")
	}
}

func TestSuspiciousVendorFlag(t *testing.T) {
	e := NewEngine(testConfig())
	s := e.Evaluate("", fields.FinancialFields{VendorName: "Walmart Supercenter #1234"}, 500, "")
	if !s.SuspiciousVendorFlag {
		t.Fatal("walmart vendor should flag suspicious")
	}
	s = e.Evaluate("", fields.FinancialFields{VendorName: "Joe's Diner"}, 500, "")
	if s.SuspiciousVendorFlag {
		t.Fatal("ordinary vendor should not flag")
	}
}

func TestExcessiveTipFlag(t *testing.T) {
	e := NewEngine(testConfig())
	s := e.Evaluate("", fields.FinancialFields{Tip: 10, ExtractedTotal: 30, TaxAmount: 0}, 500, "")
	if !s.ExcessiveTipFlag {
		t.Fatalf("33%% tip should exceed threshold, got %v", s.TipPercent)
	}
	s = e.Evaluate("", fields.FinancialFields{Tip: 4, ExtractedTotal: 30, TaxAmount: 0}, 500, "")
	if s.ExcessiveTipFlag {
		t.Fatalf("13%% tip should not flag, got %v", s.TipPercent)
	}
}

func TestImageBlurryFlag(t *testing.T) {
	e := NewEngine(testConfig())
	if s := e.Evaluate("", fields.FinancialFields{}, 99.9, ""); !s.ImageBlurryFlag {
		t.Fatal("score below threshold should flag blurry")
	}
	if s := e.Evaluate("", fields.FinancialFields{}, 100, ""); s.ImageBlurryFlag {
		t.Fatal("score at threshold should not flag")
	}
	// Decode-failure sentinel is always below threshold.
	if s := e.Evaluate("", fields.FinancialFields{}, -1, ""); !s.ImageBlurryFlag {
		t.Fatal("sentinel score must flag blurry")
	}
}

func TestCategoryMismatch(t *testing.T) {
	e := NewEngine(testConfig())

	// Known bucket, no keyword in text -> mismatch.
	if s := e.Evaluate("hardware store purchase", fields.FinancialFields{}, 500, "meals"); !s.CategoryMismatchFlag {
		t.Fatal("meals category without food keywords should flag")
	}
	// Known bucket, keyword present -> no mismatch.
	if s := e.Evaluate("burger and fries", fields.FinancialFields{}, 500, "Meals"); s.CategoryMismatchFlag {
		t.Fatal("matching keyword should not flag")
	}
	// Empty category never flags, regardless of OCR content.
	if s := e.Evaluate("anything at all", fields.FinancialFields{}, 500, ""); s.CategoryMismatchFlag {
		t.Fatal("empty category must never flag")
	}
	// Unknown bucket never flags.
	if s := e.Evaluate("anything at all", fields.FinancialFields{}, 500, "unicorn rides"); s.CategoryMismatchFlag {
		t.Fatal("unknown category must never flag")
	}
}
