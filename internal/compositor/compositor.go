// Package compositor flattens images onto a solid background colour.
//
// Compositing works in the image's native 8-bit-per-channel space. The
// source is first alpha-composited over the background using its own
// per-pixel alpha, and that result is blended with the background again
// using one global opacity factor. A half-transparent source pixel at 50%
// opacity therefore shows the background through both effects.
package compositor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"

	"github.com/jmylchreest/backdrop/internal/colour"
	imageloader "github.com/jmylchreest/backdrop/internal/image"
	"github.com/jmylchreest/backdrop/internal/security"
)

const (
	// MinOpacity and MaxOpacity bound the opacity percentage.
	MinOpacity = 0
	MaxOpacity = 100

	// DefaultMaxPixels is the largest surface Composite will allocate
	// (roughly a 16k x 16k image).
	DefaultMaxPixels = 16384 * 16384
)

// Compositor flattens images. The zero value uses DefaultMaxPixels.
type Compositor struct {
	// MaxPixels caps width*height of the output surface. Zero means DefaultMaxPixels.
	MaxPixels int
}

// New returns a Compositor with the given surface budget.
func New(maxPixels int) *Compositor {
	return &Compositor{MaxPixels: maxPixels}
}

// Composite draws src over an opaque bg-filled surface at opacity percent.
// Opacity is clamped to [0,100]. The returned image always has its origin
// at (0,0) and is fully opaque.
func (c *Compositor) Composite(src image.Image, bg colour.RGB, opacity int) (*image.RGBA, error) {
	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, &RenderContextError{Reason: fmt.Sprintf("empty source bounds %v", bounds)}
	}

	maxPixels := c.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if w, h := bounds.Dx(), bounds.Dy(); w > maxPixels/h {
		return nil, &RenderContextError{Reason: fmt.Sprintf("surface %dx%d exceeds %d pixels", w, h, maxPixels)}
	}

	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg.Color()), image.Point{}, draw.Src)

	opacity = security.ClampInt(opacity, MinOpacity, MaxOpacity)
	if opacity == MinOpacity {
		return dst, nil
	}

	mask := image.NewUniform(color.Alpha16{A: opacityAlpha(opacity)})
	draw.DrawMask(dst, dst.Bounds(), src, bounds.Min, mask, image.Point{}, draw.Over)

	return dst, nil
}

// Flatten decodes data, composites it and encodes the result as PNG.
func (c *Compositor) Flatten(data []byte, bg colour.RGB, opacity int) ([]byte, error) {
	src, _, err := imageloader.Decode(data)
	if err != nil {
		return nil, &SourceDecodeError{Err: err}
	}

	flat, err := c.Composite(src, bg, opacity)
	if err != nil {
		return nil, err
	}

	return EncodePNG(flat)
}

// FlattenHex is Flatten with a hex background that is validated first.
func (c *Compositor) FlattenHex(data []byte, bgHex string, opacity int) ([]byte, error) {
	bg, err := colour.ParseHex(bgHex)
	if err != nil {
		return nil, err
	}
	return c.Flatten(data, bg, opacity)
}

// EncodePNG encodes img losslessly. Encoding is deterministic for equal input.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// opacityAlpha converts a percentage in [0,100] to a 16-bit mask alpha.
func opacityAlpha(opacity int) uint16 {
	return uint16((opacity*0xffff + MaxOpacity/2) / MaxOpacity)
}
