package imgproc

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func gradient(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(255 * x / w)})
		}
	}
	return img
}

func TestAverageHashDeterministic(t *testing.T) {
	img := gradient(64, 64)
	a := AverageHash(img)
	b := AverageHash(img)
	if a != b {
		t.Fatalf("hash not deterministic: %s vs %s", a, b)
	}
	if len(a) != HashSize {
		t.Fatalf("expected %d hex chars, got %d (%s)", HashSize, len(a), a)
	}
}

func TestAverageHashSurvivesResize(t *testing.T) {
	img := gradient(64, 64)
	resized := imaging.Resize(img, 128, 128, imaging.Lanczos)
	d := HammingDistance(AverageHash(img), AverageHash(resized))
	if d > 5 {
		t.Fatalf("resized copy should stay within Hamming 5, got %d", d)
	}
}

func TestAverageHashSeparatesDistinctImages(t *testing.T) {
	grad := gradient(64, 64)
	board := checkerboard(64, 64)
	d := HammingDistance(AverageHash(grad), AverageHash(board))
	if d <= 5 {
		t.Fatalf("unrelated images should be far apart, got Hamming %d", d)
	}
}

func TestHammingDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"0000000000000000", "0000000000000000", 0},
		{"0000000000000000", "0000000000000001", 1},
		{"0000000000000000", "ffffffffffffffff", 64},
		{"00000000000000ff", "0000000000000000", 8},
	}
	for _, c := range cases {
		if got := HammingDistance(c.a, c.b); got != c.want {
			t.Fatalf("HammingDistance(%s, %s) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
	// Malformed fingerprints never group.
	if got := HammingDistance("short", "0000000000000000"); got != 64 {
		t.Fatalf("malformed hash should be distance 64, got %d", got)
	}
}

func TestLegacyHash(t *testing.T) {
	a := LegacyHash("/corpus/real/receipt1.jpg", 1024)
	b := LegacyHash("/other/dir/receipt1.jpg", 1024)
	if a != b {
		t.Fatalf("legacy hash should depend on basename+size only: %s vs %s", a, b)
	}
	if len(a) != HashSize {
		t.Fatalf("expected %d chars, got %d", HashSize, len(a))
	}
	if c := LegacyHash("/corpus/real/receipt1.jpg", 1025); c == a {
		t.Fatal("legacy hash should change with size")
	}
}
