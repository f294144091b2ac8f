package imgproc

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/fraudsight/receipt-features/internal/common"
)

// Decode opens an image file and returns its grayscale pixel buffer.
// Format detection follows the decoders imaging registers (JPEG, PNG,
// GIF, TIFF, BMP); the corpus scanner only feeds JPEG/PNG.
func Decode(path string) (*image.Gray, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, common.NewAppError("IMAGE_DECODE", path, common.ErrImageDecode)
	}
	return ToGray(img), nil
}

// ToGray converts any decoded image to an 8-bit single-channel buffer.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	nrgba := imaging.Grayscale(img)
	b := nrgba.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			// Grayscale output has R==G==B; take R directly instead of
			// re-weighting through color.GrayModel.
			i := nrgba.PixOffset(x, y)
			out.SetGray(x, y, color.Gray{Y: nrgba.Pix[i]})
		}
	}
	return out
}
