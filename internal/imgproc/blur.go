package imgproc

import (
	"image"

	"github.com/fraudsight/receipt-features/internal/common"
)

// BlurSentinel is substituted when an image cannot be scored. It sits
// below any sane blur threshold so unreadable images are flagged blurry
// rather than silently passing.
const BlurSentinel = -1.0

// LaplacianVariance computes the variance of the discrete 4-neighbour
// Laplacian over all interior pixels. Low variance means few edges,
// which is the classic proxy for a blurry capture.
func LaplacianVariance(gray *image.Gray) (float64, error) {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 2 || h <= 2 {
		return 0, common.NewAppError("IMAGE_TOO_SMALL", "no interior pixels", common.ErrImageTooSmall)
	}

	stride := gray.Stride
	pix := gray.Pix
	base := gray.PixOffset(b.Min.X, b.Min.Y)
	var sum, sumSq float64
	for y := 1; y < h-1; y++ {
		row := base + y*stride
		for x := 1; x < w-1; x++ {
			i := row + x
			lap := 4*int(pix[i]) -
				int(pix[i-1]) - int(pix[i+1]) -
				int(pix[i-stride]) - int(pix[i+stride])
			f := float64(lap)
			sum += f
			sumSq += f * f
		}
	}
	n := float64((w - 2) * (h - 2))
	mean := sum / n
	return sumSq/n - mean*mean, nil
}
