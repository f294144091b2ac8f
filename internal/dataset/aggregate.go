package dataset

import (
	"log/slog"
	"strings"

	"github.com/fraudsight/receipt-features/internal/imgproc"
)

// HashMode selects the duplicate-grouping strategy.
type HashMode string

const (
	// HashModePerceptual clusters fingerprints by Hamming distance.
	HashModePerceptual HashMode = "perceptual"
	// HashModeLegacy buckets by 8-char fingerprint prefix, matching the
	// historic dataset builds.
	HashModeLegacy HashMode = "legacy"
)

// AggregateConfig parameterizes the corpus passes.
type AggregateConfig struct {
	Mode       HashMode
	HammingMax int // max distance for perceptual grouping
	Logger     *slog.Logger
}

// Aggregate runs the two corpus-wide passes over the materialized rows:
// duplicate-fingerprint grouping and cross-user vendor sharing. Flags
// are written back by index; both passes are pure functions of the rows'
// immutable inputs, so running Aggregate twice yields identical flags.
func Aggregate(rows []Row, cfg AggregateConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HammingMax <= 0 {
		cfg.HammingMax = 5
	}

	var dupes int
	switch cfg.Mode {
	case HashModeLegacy:
		dupes = markDuplicatesByPrefix(rows)
	default:
		dupes = markDuplicatesByHamming(rows, cfg.HammingMax)
	}
	shared := markSharedVendors(rows)

	logger.Info("dataset.aggregate.ok",
		"rows", len(rows),
		"mode", string(cfg.Mode),
		"duplicate_flags", dupes,
		"shared_vendor_flags", shared,
	)
}

// markDuplicatesByHamming clusters rows whose fingerprints are within
// the distance bound using union-find, then flags every member of a
// cluster with two or more rows. Rows without a fingerprint (failed
// decode) never group.
func markDuplicatesByHamming(rows []Row, maxDist int) int {
	idx := make([]int, 0, len(rows))
	for i := range rows {
		rows[i].DuplicateReceiptFlag = false
		if rows[i].PerceptualHash != "" {
			idx = append(idx, i)
		}
	}

	parent := make(map[int]int, len(idx))
	for _, i := range idx {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for x := 0; x < len(idx); x++ {
		for y := x + 1; y < len(idx); y++ {
			i, j := idx[x], idx[y]
			if imgproc.HammingDistance(rows[i].PerceptualHash, rows[j].PerceptualHash) <= maxDist {
				union(i, j)
			}
		}
	}

	sizes := make(map[int]int, len(idx))
	for _, i := range idx {
		sizes[find(i)]++
	}
	flags := 0
	for _, i := range idx {
		if sizes[find(i)] >= 2 {
			rows[i].DuplicateReceiptFlag = true
			flags++
		}
	}
	return flags
}

// markDuplicatesByPrefix buckets rows by the first 8 fingerprint chars;
// any bucket with two or more members flags all of them.
func markDuplicatesByPrefix(rows []Row) int {
	buckets := make(map[string][]int, len(rows))
	for i := range rows {
		rows[i].DuplicateReceiptFlag = false
		h := rows[i].PerceptualHash
		if h == "" {
			continue
		}
		key := h
		if len(key) > imgproc.PrefixLen {
			key = key[:imgproc.PrefixLen]
		}
		buckets[key] = append(buckets[key], i)
	}
	flags := 0
	for _, members := range buckets {
		if len(members) < 2 {
			continue
		}
		for _, i := range members {
			rows[i].DuplicateReceiptFlag = true
			flags++
		}
	}
	return flags
}

// markSharedVendors flags every row whose vendor appears for two or
// more distinct user IDs. Empty vendor names never group.
func markSharedVendors(rows []Row) int {
	type vendorGroup struct {
		users   map[string]struct{}
		members []int
	}
	groups := make(map[string]*vendorGroup)
	for i := range rows {
		rows[i].SameVendorMultipleUsersFlag = false
		vendor := strings.ToLower(strings.TrimSpace(rows[i].Fields.VendorName))
		if vendor == "" {
			continue
		}
		g, ok := groups[vendor]
		if !ok {
			g = &vendorGroup{users: map[string]struct{}{}}
			groups[vendor] = g
		}
		g.users[rows[i].UserID] = struct{}{}
		g.members = append(g.members, i)
	}
	flags := 0
	for _, g := range groups {
		if len(g.users) < 2 {
			continue
		}
		for _, i := range g.members {
			rows[i].SameVendorMultipleUsersFlag = true
			flags++
		}
	}
	return flags
}
