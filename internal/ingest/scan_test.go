package ingest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanCorpus(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "real", "a.jpg"))
	writeFile(t, filepath.Join(root, "real", "b.PNG"))
	writeFile(t, filepath.Join(root, "fake", "c.jpeg"))
	writeFile(t, filepath.Join(root, "fake", "notes.txt"))   // wrong ext
	writeFile(t, filepath.Join(root, "fake", ".hidden.jpg")) // hidden
	writeFile(t, filepath.Join(root, ".git", "d.jpg"))       // hidden label dir
	writeFile(t, filepath.Join(root, "stray.jpg"))           // not in a label dir

	entries, stats, err := ScanCorpus(root, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d: %+v", len(entries), entries)
	}
	if stats.LabelDirs != 2 {
		t.Fatalf("expected 2 label dirs, got %d", stats.LabelDirs)
	}
	if stats.Matched != 3 {
		t.Fatalf("expected 3 matched, got %d", stats.Matched)
	}

	// Sorted by path: fake/c.jpeg, real/a.jpg, real/b.PNG.
	if entries[0].UserID != "fake" || !entries[0].IsFraud {
		t.Fatalf("fake entry mislabeled: %+v", entries[0])
	}
	if entries[1].UserID != "real" || entries[1].IsFraud {
		t.Fatalf("real entry mislabeled: %+v", entries[1])
	}
}

func TestScanCorpusEmptyRoot(t *testing.T) {
	if _, _, err := ScanCorpus("", nil); err == nil {
		t.Fatal("empty root must error")
	}
	if _, _, err := ScanCorpus(filepath.Join(t.TempDir(), "missing"), nil); err == nil {
		t.Fatal("missing root must error")
	}
}

func TestEntryFor(t *testing.T) {
	e, ok := EntryFor("/corpus/fake/receipt.jpg")
	if !ok {
		t.Fatal("image path should classify")
	}
	if e.UserID != "fake" || !e.IsFraud {
		t.Fatalf("unexpected entry: %+v", e)
	}

	if _, ok := EntryFor("/corpus/real/readme.md"); ok {
		t.Fatal("non-image should not classify")
	}
	if _, ok := EntryFor("/corpus/real/.tmp.jpg"); ok {
		t.Fatal("hidden file should not classify")
	}
}
