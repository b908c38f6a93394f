package colour

import (
	"errors"
	"image/color"
	"testing"
)

func TestRGBHexAndString(t *testing.T) {
	rgb := RGB{R: 26, G: 43, B: 60}

	if got := rgb.Hex(); got != "#1a2b3c" {
		t.Errorf("Hex() = %s, want #1a2b3c", got)
	}
	if got := rgb.String(); got != "rgb(26, 43, 60)" {
		t.Errorf("String() = %s, want rgb(26, 43, 60)", got)
	}
	if got := rgb.Color(); got != (color.RGBA{R: 26, G: 43, B: 60, A: 255}) {
		t.Errorf("Color() = %+v, want opaque rgba", got)
	}
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		input   string
		want    RGB
		wantErr bool
	}{
		{input: "#ffffff", want: RGB{R: 255, G: 255, B: 255}},
		{input: "ffffff", want: RGB{R: 255, G: 255, B: 255}},
		{input: "#FF8000", want: RGB{R: 255, G: 128, B: 0}},
		{input: "#aBcDeF", want: RGB{R: 0xab, G: 0xcd, B: 0xef}},
		{input: "#fff", wantErr: true},
		{input: "#ffffff80", wantErr: true},
		{input: "white", wantErr: true},
		{input: "", wantErr: true},
		{input: "#", wantErr: true},
		{input: "##ffffff", wantErr: true},
		{input: "#gggggg", wantErr: true},
		{input: " #ffffff", wantErr: true},
		{input: "+12345", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseHex(tt.input)
			if tt.wantErr {
				var invalid *InvalidColourError
				if !errors.As(err, &invalid) {
					t.Fatalf("ParseHex(%q) error = %v, want InvalidColourError", tt.input, err)
				}
				if invalid.Input != tt.input {
					t.Errorf("InvalidColourError.Input = %q, want %q", invalid.Input, tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHex(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseHex(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormaliseHex(t *testing.T) {
	got, err := NormaliseHex("AbCdEf")
	if err != nil {
		t.Fatalf("NormaliseHex() unexpected error: %v", err)
	}
	if got != "#abcdef" {
		t.Errorf("NormaliseHex() = %s, want #abcdef", got)
	}

	if _, err := NormaliseHex("#abc"); err == nil {
		t.Error("NormaliseHex(#abc) expected error")
	}
}

func TestDistance(t *testing.T) {
	if got := Distance(RGB{}, RGB{}); got != 0 {
		t.Errorf("Distance(same) = %f, want 0", got)
	}
	if got := Distance(RGB{R: 3, G: 4}, RGB{}); got != 5 {
		t.Errorf("Distance() = %f, want 5", got)
	}
}

func TestPaletteIsSortedCopy(t *testing.T) {
	entries := Palette()
	if len(entries) != len(namedColours) {
		t.Fatalf("Palette() has %d entries, want %d", len(entries), len(namedColours))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Hex >= entries[i].Hex {
			t.Fatalf("Palette() not sorted at %d: %s >= %s", i, entries[i-1].Hex, entries[i].Hex)
		}
	}

	entries[0].Name = "mutated"
	if Palette()[0].Name == "mutated" {
		t.Error("Palette() returned shared backing storage")
	}
}

func TestPaletteKeysAreNormalised(t *testing.T) {
	for hex := range namedColours {
		norm, err := NormaliseHex(hex)
		if err != nil {
			t.Errorf("palette key %q is not a valid colour: %v", hex, err)
			continue
		}
		if norm != hex {
			t.Errorf("palette key %q is not normalised (want %q)", hex, norm)
		}
	}
}
