package colour

import "math"

var (
	black = RGB{}
	white = RGB{R: 255, G: 255, B: 255}
)

// Luminance returns the WCAG 2.0 relative luminance of rgb, from 0 (black)
// to 1 (white).
// https://www.w3.org/TR/WCAG20/#relativeluminancedef
func (rgb RGB) Luminance() float64 {
	return 0.2126*linear(rgb.R) + 0.7152*linear(rgb.G) + 0.0722*linear(rgb.B)
}

func linear(c uint8) float64 {
	v := float64(c) / 255
	if v <= 0.03928 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// ContrastRatio returns the WCAG 2.0 contrast ratio of two colours, from 1
// (identical) to 21 (black on white). Order does not matter.
func ContrastRatio(a, b RGB) float64 {
	la, lb := a.Luminance(), b.Luminance()
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

// ReadableOn returns black or white, whichever contrasts more with bg.
// Used to label swatches of the background colour.
func ReadableOn(bg RGB) RGB {
	if ContrastRatio(bg, black) >= ContrastRatio(bg, white) {
		return black
	}
	return white
}
