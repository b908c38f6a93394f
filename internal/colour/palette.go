// Package colour provides RGB colour parsing and human-readable colour naming.
package colour

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// RGB represents a color in RGB format.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// String returns the RGB color as a string in the format "rgb(r, g, b)".
func (rgb RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", rgb.R, rgb.G, rgb.B)
}

// Hex returns the RGB color as a hex string (e.g., "#1a2b3c").
func (rgb RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", rgb.R, rgb.G, rgb.B)
}

// Color returns the RGB value as an opaque color.RGBA.
func (rgb RGB) Color() color.RGBA {
	return color.RGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: 255}
}

// Distance returns the Euclidean distance between two colours in RGB space.
func Distance(a, b RGB) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// InvalidColourError is returned when a string is not a 6-digit hex colour.
type InvalidColourError struct {
	Input string
}

func (e *InvalidColourError) Error() string {
	return fmt.Sprintf("invalid colour %q: expected 6 hex digits with optional leading #", e.Input)
}

// ParseHex parses a case-insensitive 6-digit hex colour with an optional
// leading '#'. Shorthand (#fff), alpha (#ffffff80) and named colours are
// rejected.
func ParseHex(s string) (RGB, error) {
	digits := strings.TrimPrefix(s, "#")
	if len(digits) != 6 {
		return RGB{}, &InvalidColourError{Input: s}
	}
	for i := 0; i < len(digits); i++ {
		if !isHexDigit(digits[i]) {
			return RGB{}, &InvalidColourError{Input: s}
		}
	}

	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return RGB{}, &InvalidColourError{Input: s}
	}

	return RGB{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
	}, nil
}

// MustParseHex is like ParseHex but panics on invalid input.
// Intended for package-level constants and tests.
func MustParseHex(s string) RGB {
	rgb, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return rgb
}

// NormaliseHex validates s and returns it in canonical "#rrggbb" form.
func NormaliseHex(s string) (string, error) {
	rgb, err := ParseHex(s)
	if err != nil {
		return "", err
	}
	return rgb.Hex(), nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
