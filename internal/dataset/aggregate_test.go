package dataset

import (
	"testing"

	"github.com/fraudsight/receipt-features/internal/fields"
)

func row(user, vendor, hash string) Row {
	return Row{
		UserID:         user,
		PerceptualHash: hash,
		Fields:         fields.FinancialFields{VendorName: vendor},
	}
}

func TestHammingGrouping(t *testing.T) {
	rows := []Row{
		row("a", "", "0000000000000000"),
		row("b", "", "0000000000000003"), // distance 2 from the first
		row("c", "", "ffffffffffffffff"), // far from everything
	}
	Aggregate(rows, AggregateConfig{Mode: HashModePerceptual, HammingMax: 5})

	if !rows[0].DuplicateReceiptFlag || !rows[1].DuplicateReceiptFlag {
		t.Fatal("near fingerprints should flag as duplicates")
	}
	if rows[2].DuplicateReceiptFlag {
		t.Fatal("distant fingerprint should not flag")
	}
}

func TestHammingTransitiveClusters(t *testing.T) {
	// a-b within 5, b-c within 5, a-c beyond 5: union-find still puts
	// all three in one cluster.
	rows := []Row{
		row("a", "", "0000000000000000"),
		row("b", "", "000000000000001f"), // 5 bits from a
		row("c", "", "00000000000003ff"), // 5 bits from b, 10 from a
	}
	Aggregate(rows, AggregateConfig{Mode: HashModePerceptual, HammingMax: 5})
	for i := range rows {
		if !rows[i].DuplicateReceiptFlag {
			t.Fatalf("row %d should be in the transitive cluster", i)
		}
	}
}

func TestPrefixGrouping(t *testing.T) {
	rows := []Row{
		row("a", "", "deadbeef00000001"),
		row("b", "", "deadbeefffffffff"), // same 8-char prefix
		row("c", "", "cafebabe00000000"),
	}
	Aggregate(rows, AggregateConfig{Mode: HashModeLegacy})

	if !rows[0].DuplicateReceiptFlag || !rows[1].DuplicateReceiptFlag {
		t.Fatal("shared prefix should flag as duplicates")
	}
	if rows[2].DuplicateReceiptFlag {
		t.Fatal("distinct prefix should not flag")
	}
}

func TestEmptyHashesNeverGroup(t *testing.T) {
	rows := []Row{
		row("a", "", ""),
		row("b", "", ""),
	}
	for _, mode := range []HashMode{HashModePerceptual, HashModeLegacy} {
		Aggregate(rows, AggregateConfig{Mode: mode})
		if rows[0].DuplicateReceiptFlag || rows[1].DuplicateReceiptFlag {
			t.Fatalf("mode %s: decode-failed rows must never group as duplicates", mode)
		}
	}
}

func TestSharedVendorDetection(t *testing.T) {
	rows := []Row{
		row("A", "Acme", "1000000000000000"),
		row("B", "Acme", "2000000000000000"),
		row("A", "Beta", "3000000000000000"),
	}
	Aggregate(rows, AggregateConfig{Mode: HashModePerceptual, HammingMax: 5})

	if !rows[0].SameVendorMultipleUsersFlag || !rows[1].SameVendorMultipleUsersFlag {
		t.Fatal("Acme spans two users, both rows should flag")
	}
	if rows[2].SameVendorMultipleUsersFlag {
		t.Fatal("Beta has a single user, should not flag")
	}
}

func TestSharedVendorIgnoresEmptyAndCase(t *testing.T) {
	rows := []Row{
		row("A", "", "1000000000000000"),
		row("B", "", "2000000000000000"),
		row("A", "acme", "3000000000000000"),
		row("B", " ACME ", "4000000000000000"),
	}
	Aggregate(rows, AggregateConfig{Mode: HashModePerceptual, HammingMax: 5})

	if rows[0].SameVendorMultipleUsersFlag || rows[1].SameVendorMultipleUsersFlag {
		t.Fatal("empty vendors must never group")
	}
	if !rows[2].SameVendorMultipleUsersFlag || !rows[3].SameVendorMultipleUsersFlag {
		t.Fatal("vendor matching should be case and whitespace insensitive")
	}
}

func TestAggregateIdempotent(t *testing.T) {
	build := func() []Row {
		return []Row{
			row("A", "Acme", "0000000000000000"),
			row("B", "Acme", "0000000000000001"),
			row("C", "Solo", "ffffffffffffffff"),
		}
	}
	once := build()
	Aggregate(once, AggregateConfig{Mode: HashModePerceptual, HammingMax: 5})

	twice := build()
	Aggregate(twice, AggregateConfig{Mode: HashModePerceptual, HammingMax: 5})
	Aggregate(twice, AggregateConfig{Mode: HashModePerceptual, HammingMax: 5})

	for i := range once {
		if once[i].DuplicateReceiptFlag != twice[i].DuplicateReceiptFlag ||
			once[i].SameVendorMultipleUsersFlag != twice[i].SameVendorMultipleUsersFlag {
			t.Fatalf("row %d: aggregation is not idempotent", i)
		}
	}
}
