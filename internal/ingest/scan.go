// Package ingest enumerates the labeled receipt corpus: a root directory
// with one level of label folders (conventionally real/ and fake/), each
// holding image files.
package ingest

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fraudsight/receipt-features/constants"
)

// SourceEntry is one input image, enumerated once at pipeline start and
// immutable thereafter.
type SourceEntry struct {
	Path    string // absolute file path
	UserID  string // label folder name; a grouping key, not an identity
	IsFraud bool   // derived from the folder name
}

// DirStats summarizes a corpus scan.
type DirStats struct {
	LabelDirs uint32
	Scanned   uint32
	Matched   uint32
	Skipped   uint32
}

// fraudFolderNames are the folder names treated as the fraudulent label.
var fraudFolderNames = map[string]struct{}{
	"fake":       {},
	"fraud":      {},
	"fraudulent": {},
}

// ScanCorpus walks exactly two levels: label folders under root, image
// files under each label folder. Hidden entries and non-image files are
// skipped. Entries come back sorted by path so runs are reproducible.
func ScanCorpus(root string, logger *slog.Logger) ([]SourceEntry, DirStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var stats DirStats

	if strings.TrimSpace(root) == "" {
		return nil, stats, errors.New("corpus root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, stats, err
	}

	labelDirs, err := os.ReadDir(abs)
	if err != nil {
		return nil, stats, err
	}

	var entries []SourceEntry
	for _, ld := range labelDirs {
		if !ld.IsDir() || isHidden(ld.Name()) {
			continue
		}
		stats.LabelDirs++
		label := ld.Name()
		_, isFraud := fraudFolderNames[strings.ToLower(label)]

		files, err := os.ReadDir(filepath.Join(abs, label))
		if err != nil {
			logger.Warn("ingest.scan.label_dir_unreadable", "dir", label, "error", err)
			continue
		}
		for _, f := range files {
			stats.Scanned++
			if f.IsDir() || isHidden(f.Name()) {
				stats.Skipped++
				continue
			}
			if !constants.IsImageExt(filepath.Ext(f.Name())) {
				stats.Skipped++
				continue
			}
			stats.Matched++
			entries = append(entries, SourceEntry{
				Path:    filepath.Join(abs, label, f.Name()),
				UserID:  label,
				IsFraud: isFraud,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	logger.Info("ingest.scan.ok",
		"root", abs,
		"label_dirs", stats.LabelDirs,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"skipped", stats.Skipped,
	)
	return entries, stats, nil
}

// EntryFor classifies a single path the way ScanCorpus would, used by
// watch mode for files that appear after the initial scan. The label is
// the immediate parent directory name.
func EntryFor(path string) (SourceEntry, bool) {
	if !constants.IsImageExt(filepath.Ext(path)) {
		return SourceEntry{}, false
	}
	base := filepath.Base(path)
	if isHidden(base) {
		return SourceEntry{}, false
	}
	label := filepath.Base(filepath.Dir(path))
	_, isFraud := fraudFolderNames[strings.ToLower(label)]
	return SourceEntry{Path: path, UserID: label, IsFraud: isFraud}, true
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
