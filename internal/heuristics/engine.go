// Package heuristics evaluates the per-record fraud rules. Every rule
// is a pure function of already-computed inputs; absent or invalid
// input always degrades to the not-flagged branch.
package heuristics

import (
	"math"
	"strings"

	"github.com/fraudsight/receipt-features/constants"
	"github.com/fraudsight/receipt-features/internal/fields"
)

// Config carries the injected keyword tables and thresholds so tests
// can substitute fixtures.
type Config struct {
	Keywords              constants.KeywordTables
	BlurThreshold         float64
	ExcessiveTipThreshold float64
}

// DefaultConfig returns the reference thresholds with built-in tables.
func DefaultConfig() Config {
	return Config{
		Keywords:              constants.Defaults(),
		BlurThreshold:         100,
		ExcessiveTipThreshold: 25,
	}
}

// Signals is the per-record fraud signal bundle. Duplicate and shared-
// vendor flags are corpus-relative and set later by the aggregation
// pass, never here.
type Signals struct {
	PersonalItemFlag     bool
	TipPercent           float64
	ExcessiveTipFlag     bool
	ImageBlurryFlag      bool
	SuspiciousVendorFlag bool
	CategoryMismatchFlag bool
}

// Engine evaluates single-record rules.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.BlurThreshold == 0 {
		cfg.BlurThreshold = 100
	}
	if cfg.ExcessiveTipThreshold == 0 {
		cfg.ExcessiveTipThreshold = 25
	}
	if cfg.Keywords.PersonalItems == nil && cfg.Keywords.SuspiciousVendors == nil && cfg.Keywords.Categories == nil {
		cfg.Keywords = constants.Defaults()
	}
	return &Engine{cfg: cfg}
}

// Evaluate computes all per-record signals. ocrText must already be
// lowercased; userCategory is the category the submitter claimed, may
// be empty.
func (e *Engine) Evaluate(ocrText string, ff fields.FinancialFields, blurScore float64, userCategory string) Signals {
	var s Signals
	s.PersonalItemFlag = containsAny(ocrText, e.cfg.Keywords.PersonalItems)
	s.SuspiciousVendorFlag = containsAny(strings.ToLower(ff.VendorName), e.cfg.Keywords.SuspiciousVendors)
	s.TipPercent = TipPercent(ff.Tip, ff.ExtractedTotal, ff.TaxAmount)
	s.ExcessiveTipFlag = s.TipPercent > e.cfg.ExcessiveTipThreshold
	s.ImageBlurryFlag = blurScore < e.cfg.BlurThreshold
	s.CategoryMismatchFlag = e.categoryMismatch(ocrText, userCategory)
	return s
}

// TipPercent returns tip as a percentage of the pre-tax subtotal,
// rounded to two decimals. A non-positive subtotal yields 0.
func TipPercent(tip, total, tax float64) float64 {
	subtotal := total - tax
	if subtotal <= 0 {
		return 0
	}
	return math.Round(tip/subtotal*100*100) / 100
}

// categoryMismatch flags a record only when the stated category has a
// known keyword bucket and none of its keywords appear in the text.
// Empty or unknown categories never flag (conservative default).
func (e *Engine) categoryMismatch(ocrText, userCategory string) bool {
	cat := constants.NormalizeCategory(userCategory)
	if cat == "" {
		return false
	}
	keywords, ok := e.cfg.Keywords.Categories[cat]
	if !ok || len(keywords) == 0 {
		return false
	}
	return !containsAny(ocrText, keywords)
}

func containsAny(haystack string, needles []string) bool {
	if haystack == "" {
		return false
	}
	for _, n := range needles {
		if n != "" && strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
