package imgproc

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"math/bits"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
)

// HashSize is the length in hex characters of every fingerprint this
// package produces, regardless of mode.
const HashSize = 16

// PrefixLen is the bucket-key length used by legacy prefix grouping.
const PrefixLen = 8

// AverageHash computes a 64-bit perceptual fingerprint: the image is
// downsampled to an 8x8 grayscale thumbnail and each bit records whether
// that cell is brighter than the thumbnail mean. Visually similar images
// land within a small Hamming distance of each other.
func AverageHash(img image.Image) string {
	thumb := ToGray(imaging.Resize(img, 8, 8, imaging.Lanczos))

	var sum int
	b := thumb.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum += int(thumb.GrayAt(x, y).Y)
		}
	}
	mean := uint8(sum / 64)

	var h uint64
	bit := uint(63)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if thumb.GrayAt(x, y).Y > mean {
				h |= 1 << bit
			}
			bit--
		}
	}
	return fmt.Sprintf("%016x", h)
}

// LegacyHash derives a fingerprint from file identity (basename + byte
// size) rather than pixel content. Kept only as the documented fallback
// for reproducing historic datasets; it cannot group renamed copies.
func LegacyHash(path string, size int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", filepath.Base(path), size)))
	return hex.EncodeToString(sum[:])[:HashSize]
}

// HammingDistance counts differing bits between two hex fingerprints.
// Malformed input compares as maximally distant so it never groups.
func HammingDistance(a, b string) int {
	ha, errA := parseHash(a)
	hb, errB := parseHash(b)
	if errA != nil || errB != nil {
		return 64
	}
	return bits.OnesCount64(ha ^ hb)
}

func parseHash(s string) (uint64, error) {
	if len(s) != HashSize {
		return 0, fmt.Errorf("fingerprint must be %d hex chars, got %d", HashSize, len(s))
	}
	return strconv.ParseUint(s, 16, 64)
}
