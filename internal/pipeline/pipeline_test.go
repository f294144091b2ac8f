package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fraudsight/receipt-features/internal/dataset"
	"github.com/fraudsight/receipt-features/internal/fields"
	"github.com/fraudsight/receipt-features/internal/heuristics"
	"github.com/fraudsight/receipt-features/internal/imgproc"
	"github.com/fraudsight/receipt-features/internal/ingest"
	"github.com/fraudsight/receipt-features/internal/ocr"
)

// fakeOCR returns canned text keyed by file basename.
type fakeOCR struct {
	texts map[string]string
}

func (f fakeOCR) Extract(_ context.Context, path string) (ocr.Result, error) {
	if t, ok := f.texts[filepath.Base(path)]; ok {
		return ocr.Result{Text: t, Confidence: 0.9}, nil
	}
	return ocr.Result{}, os.ErrNotExist
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func sharpImage(seed uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if (x+y+int(seed))%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func buildCorpus(t *testing.T) string {
	root := t.TempDir()
	// Two identical images under different users, one distinct, one corrupt.
	writePNG(t, filepath.Join(root, "real", "a.png"), sharpImage(0))
	writePNG(t, filepath.Join(root, "fake", "b.png"), sharpImage(0))
	writePNG(t, filepath.Join(root, "real", "c.png"), gradientImage())
	if err := os.WriteFile(filepath.Join(root, "fake", "broken.png"), []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Sidecar fields: shared vendor across both users.
	sidecar := `[{"label":"Vendor","value":"Acme Diner"},{"label":"Total","value":"$25.00"},{"label":"Tax","value":"2.00"},{"label":"Tip","value":"5.00"}]`
	for _, p := range []string{
		filepath.Join(root, "real", "a.png.json"),
		filepath.Join(root, "fake", "b.png.json"),
	} {
		if err := os.WriteFile(p, []byte(sidecar), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func gradientImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 8)})
		}
	}
	return img
}

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	engine := fakeOCR{texts: map[string]string{
		"a.png": "acme diner total 25.00 burger",
		"b.png": "acme diner total 25.00 burger",
		"c.png": "corner fuel gas station diesel",
	}}
	return NewProcessor(nil, engine, nil, heuristics.NewEngine(heuristics.DefaultConfig()), dataset.HashModePerceptual)
}

func runTestPipeline(t *testing.T, root string, workers int) RunResult {
	t.Helper()
	entries, _, err := ingest.ScanCorpus(root, nil)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	proc := newTestProcessor(t)
	proc.Fields = fields.NewSidecarExtractor(nil)
	return Run(context.Background(), proc, entries, RunConfig{
		Workers:       workers,
		RecordTimeout: 10 * time.Second,
		HashMode:      dataset.HashModePerceptual,
		HammingMax:    5,
	})
}

func TestRunRowCountEqualsInputCount(t *testing.T) {
	root := buildCorpus(t)
	res := runTestPipeline(t, root, 1)

	if len(res.Rows) != 4 {
		t.Fatalf("expected 4 rows for 4 inputs, got %d", len(res.Rows))
	}
	if res.Processed+res.Failed != 4 {
		t.Fatalf("summary does not add up: %d + %d", res.Processed, res.Failed)
	}
	if res.Failed == 0 {
		t.Fatal("the corrupt image should count as failed")
	}
}

func TestRunPreservesEntryOrder(t *testing.T) {
	root := buildCorpus(t)
	entries, _, err := ingest.ScanCorpus(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	res := runTestPipeline(t, root, 4)
	for i := range entries {
		if res.Rows[i].FilePath != entries[i].Path {
			t.Fatalf("row %d out of order: %s vs %s", i, res.Rows[i].FilePath, entries[i].Path)
		}
	}
}

func TestCorruptImageCarriesSentinels(t *testing.T) {
	root := buildCorpus(t)
	res := runTestPipeline(t, root, 2)

	var broken *dataset.Row
	for i := range res.Rows {
		if res.Rows[i].FileName == "broken.png" {
			broken = &res.Rows[i]
		}
	}
	if broken == nil {
		t.Fatal("corrupt image missing from output")
	}
	if broken.BlurScore != imgproc.BlurSentinel {
		t.Fatalf("expected blur sentinel, got %f", broken.BlurScore)
	}
	if broken.PerceptualHash != "" {
		t.Fatalf("perceptual hash should be empty on decode failure, got %q", broken.PerceptualHash)
	}
	if broken.Error == "" {
		t.Fatal("corrupt image must carry an error annotation")
	}
	if !broken.Signals.ImageBlurryFlag {
		t.Fatal("sentinel blur must flag the record blurry")
	}
}

func TestCorpusFlags(t *testing.T) {
	root := buildCorpus(t)
	res := runTestPipeline(t, root, 2)

	byName := map[string]dataset.Row{}
	for _, r := range res.Rows {
		byName[r.FileName] = r
	}

	// a.png and b.png are pixel-identical: duplicates.
	if !byName["a.png"].DuplicateReceiptFlag || !byName["b.png"].DuplicateReceiptFlag {
		t.Fatal("identical images should flag as duplicates")
	}
	if byName["c.png"].DuplicateReceiptFlag {
		t.Fatal("distinct image should not flag as duplicate")
	}

	// Acme Diner appears for users real and fake.
	if !byName["a.png"].SameVendorMultipleUsersFlag || !byName["b.png"].SameVendorMultipleUsersFlag {
		t.Fatal("shared vendor across users should flag")
	}
	if byName["c.png"].SameVendorMultipleUsersFlag {
		t.Fatal("row without vendor should not flag")
	}
}

func TestReceiptIDAndLabels(t *testing.T) {
	root := buildCorpus(t)
	res := runTestPipeline(t, root, 1)

	for _, r := range res.Rows {
		want := r.UserID + "_" + r.FileName
		if r.ReceiptID != want {
			t.Fatalf("receipt id %q, want %q", r.ReceiptID, want)
		}
		if (r.UserID == "fake") != r.IsFraud {
			t.Fatalf("label mismatch for %s: user=%s fraud=%v", r.FileName, r.UserID, r.IsFraud)
		}
	}
}

func TestTipSignalsFlowThrough(t *testing.T) {
	root := buildCorpus(t)
	res := runTestPipeline(t, root, 1)

	for _, r := range res.Rows {
		if r.FileName != "a.png" {
			continue
		}
		// tip 5 over subtotal 23 = 21.74%
		if r.Signals.TipPercent < 21.7 || r.Signals.TipPercent > 21.8 {
			t.Fatalf("tip percent: got %f", r.Signals.TipPercent)
		}
		if r.Signals.ExcessiveTipFlag {
			t.Fatal("21.74%% should not exceed the default threshold")
		}
		return
	}
	t.Fatal("a.png not found")
}
