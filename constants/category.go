package constants

import "strings"

// KeywordTables groups the corpus-wide keyword configuration used by the
// fraud heuristics. The zero value is never used directly; Defaults()
// returns the built-in tables and callers may substitute their own
// (e.g. loaded from a YAML file).
type KeywordTables struct {
	// PersonalItems are substrings that, when present in OCR text, suggest
	// a personal purchase was submitted as a business expense.
	PersonalItems []string `yaml:"personal_items"`

	// SuspiciousVendors are big-box / general retailers whose receipts are
	// disproportionately represented in fraudulent submissions.
	SuspiciousVendors []string `yaml:"suspicious_vendors"`

	// Categories maps a user-stated expense category to the keywords one
	// of which should appear in the receipt text for that category.
	Categories map[string][]string `yaml:"categories"`
}

// Defaults returns the built-in keyword tables.
func Defaults() KeywordTables {
	return KeywordTables{
		PersonalItems: []string{
			"clothing", "apparel", "shoes", "sneakers",
			"electronics", "television", "headphones", "console",
			"jewelry", "perfume", "cosmetics", "makeup",
			"gift card", "giftcard", "toy", "video game",
			"alcohol", "liquor", "cigarette", "tobacco",
		},
		SuspiciousVendors: []string{
			"walmart", "target", "best buy", "costco",
			"sam's club", "dollar general", "dollar tree",
			"amazon", "ebay", "alibaba",
		},
		Categories: map[string][]string{
			"meals":           {"restaurant", "cafe", "coffee", "food", "lunch", "dinner", "burger", "pizza", "grill", "diner"},
			"travel":          {"airline", "flight", "hotel", "motel", "taxi", "uber", "lyft", "rental", "airport", "miles"},
			"fuel":            {"gas", "fuel", "petrol", "diesel", "shell", "chevron", "exxon", "bp"},
			"office supplies": {"paper", "ink", "toner", "stapler", "pen", "notebook", "staples", "office"},
			"lodging":         {"hotel", "motel", "inn", "suites", "resort", "nightly", "check-in", "checkout"},
			"groceries":       {"grocery", "market", "produce", "supermarket", "deli", "bakery"},
		},
	}
}

// NormalizeCategory canonicalizes a user-stated category for table lookup.
func NormalizeCategory(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}
