package imaging

import (
	"image"
	"math"

	"github.com/nfnt/resize"
)

// DefaultMaxDimension bounds the longest side of images sent for inference.
const DefaultMaxDimension = 640

// ResizeIfNeeded scales img down so that its longest side equals
// maxDimension, keeping the aspect ratio. Images already within bounds are
// returned unchanged.
func ResizeIfNeeded(img image.Image, maxDimension int) image.Image {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	longest := max(width, height)
	if maxDimension <= 0 || longest <= maxDimension {
		return img
	}

	newWidth, newHeight := ScaledSize(width, height, maxDimension)
	return resize.Resize(uint(newWidth), uint(newHeight), img, resize.Lanczos3)
}

// ScaledSize returns the dimensions width x height takes once its longest
// side is brought down to maxDimension. Sides are rounded to the nearest
// pixel and never collapse below one.
func ScaledSize(width, height, maxDimension int) (int, int) {
	longest := max(width, height)
	if longest <= maxDimension {
		return width, height
	}

	scale := float64(maxDimension) / float64(longest)
	w := int(math.Round(float64(width) * scale))
	h := int(math.Round(float64(height) * scale))

	return max(w, 1), max(h, 1)
}
