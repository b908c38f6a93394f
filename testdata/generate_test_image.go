// Test image generator for translucent sample images used when trying out
// backdrop by hand: go run testdata/generate_test_image.go
package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
)

func main() {
	samples := map[string]color.NRGBA{
		"red-glass.png":   {R: 255, G: 0, B: 0, A: 255},
		"blue-glass.png":  {R: 0, G: 0, B: 255, A: 255},
		"white-logo.png":  {R: 255, G: 255, B: 255, A: 255},
		"orange-glow.png": {R: 255, G: 128, B: 0, A: 255},
	}

	for name, c := range samples {
		if err := write(filepath.Join("testdata", name), gradient(256, 256, c)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created testdata/%s\n", name)
	}
}

// gradient fades c from fully transparent on the left to its own alpha on
// the right, with a transparent border so flattening is easy to see.
func gradient(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	border := width / 8

	for y := border; y < height-border; y++ {
		for x := border; x < width-border; x++ {
			px := c
			px.A = uint8(int(c.A) * (x - border) / (width - 2*border))
			img.SetNRGBA(x, y, px)
		}
	}
	return img
}

func write(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}
