package compositor

import (
	"image"

	"golang.org/x/image/draw"
)

// Thumbnail scales img so its longest side is at most maxDim, preserving
// aspect ratio. Images already within bounds are copied unscaled.
func Thumbnail(img image.Image, maxDim int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if maxDim > 0 && (w > maxDim || h > maxDim) {
		if w >= h {
			h = max(1, h*maxDim/w)
			w = maxDim
		} else {
			w = max(1, w*maxDim/h)
			h = maxDim
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
