package colour

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// NearestThreshold is the exclusive RGB distance under which the closest
// palette entry is accepted as a colour's name.
const NearestThreshold = 30.0

// hueBucket maps hues below Upper (degrees) to Name.
type hueBucket struct {
	Upper float64
	Name  string
}

// hueBuckets are evaluated in order; the first bucket whose upper bound
// exceeds the hue wins.
var hueBuckets = []hueBucket{
	{Upper: 15, Name: "Red"},
	{Upper: 45, Name: "Orange"},
	{Upper: 75, Name: "Yellow"},
	{Upper: 150, Name: "Green"},
	{Upper: 210, Name: "Cyan"},
	{Upper: 270, Name: "Blue"},
	{Upper: 330, Name: "Purple"},
	{Upper: 360, Name: "Pink"},
}

// NameOf returns a display name for a hex colour string.
// Input that is not a valid 6-digit hex colour is returned unchanged so
// callers always have something to display.
func NameOf(s string) string {
	rgb, err := ParseHex(s)
	if err != nil {
		return s
	}
	return NameOfRGB(rgb)
}

// NameOfRGB returns a display name for rgb, trying an exact palette match,
// then the nearest palette entry, then the hue/saturation heuristic.
func NameOfRGB(rgb RGB) string {
	if name, ok := ExactMatch(rgb.Hex()); ok {
		return name
	}
	if name, ok := NearestMatch(rgb); ok {
		return name
	}
	return Heuristic(rgb)
}

// ExactMatch looks hex up in the reference palette. hex must already be in
// normalised "#rrggbb" form.
func ExactMatch(hex string) (string, bool) {
	name, ok := namedColours[hex]
	return name, ok
}

// NearestMatch returns the name of the closest palette entry when it lies
// strictly within NearestThreshold.
func NearestMatch(rgb RGB) (string, bool) {
	best := math.Inf(1)
	var name string
	for _, entry := range paletteEntries {
		if d := Distance(rgb, entry.RGB); d < best {
			best = d
			name = entry.Name
		}
	}
	if best < NearestThreshold {
		return name, true
	}
	return "", false
}

// Heuristic classifies rgb by hue, saturation and brightness.
// It always returns a name.
func Heuristic(rgb RGB) string {
	r, g, b := int(rgb.R), int(rgb.G), int(rgb.B)
	maxC := max(r, g, b)
	minC := min(r, g, b)

	if maxC-minC < 10 {
		mean := float64(r+g+b) / 3
		switch {
		case mean > 240:
			return "White"
		case mean < 15:
			return "Black"
		default:
			return "Gray"
		}
	}

	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	hue, saturation, brightness := c.Hsv()

	switch {
	case brightness < 0.2:
		return "Very Dark"
	case brightness > 0.9:
		return "Very Light"
	case saturation < 0.2:
		return "Grayish"
	}

	for _, bucket := range hueBuckets {
		if hue < bucket.Upper {
			return bucket.Name
		}
	}
	// Hue is in [0, 360); only reachable through float rounding at 360.
	return "Red"
}
