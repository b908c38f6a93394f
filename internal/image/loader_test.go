package image

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.NRGBA{R: 255, A: 128})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	if path != "" {
		if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
	return buf.Bytes()
}

func TestFileLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logo.png")
	data := writePNG(t, path)

	file, err := NewFileLoader().Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if file.Name != "logo.png" || file.MIME != "image/png" || !bytes.Equal(file.Data, data) {
		t.Errorf("Load() = %s %s (%d bytes), want logo.png image/png (%d bytes)", file.Name, file.MIME, len(file.Data), len(data))
	}
}

func TestFileLoaderLoadErrors(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.png")
	writePNG(t, big)

	tests := []struct {
		name   string
		loader *FileLoader
		path   string
	}{
		{"empty path", NewFileLoader(), ""},
		{"missing", NewFileLoader(), filepath.Join(dir, "missing.png")},
		{"directory", NewFileLoader(), dir},
		{"too large", &FileLoader{MaxSize: 8}, big},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.loader.Load(tt.path); err == nil {
				t.Errorf("Load(%q) expected error", tt.path)
			}
		})
	}
}

func TestDecodeAndProbe(t *testing.T) {
	data := writePNG(t, "")

	img, format, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if format != "png" || img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Errorf("Decode() = %s %v, want png 3x2", format, img.Bounds())
	}

	if format, err := Probe(data); err != nil || format != "png" {
		t.Errorf("Probe() = %q, %v; want png", format, err)
	}
	if _, err := Probe([]byte("plain text")); err == nil {
		t.Error("Probe() expected error for text")
	}
	if _, _, err := Decode([]byte("plain text")); err == nil {
		t.Error("Decode() expected error for text")
	}
}

func TestDetectMIME(t *testing.T) {
	pngData := writePNG(t, "")

	tests := []struct {
		name     string
		declared string
		file     string
		data     []byte
		want     string
	}{
		{"declared wins", "image/jpeg; charset=binary", "a.png", pngData, "image/jpeg"},
		{"sniffed", "", "a.bin", pngData, "image/png"},
		{"extension fallback", "", "a.webp", []byte{0x01, 0x02}, "image/webp"},
		{"text", "", "notes.txt", []byte("hello world"), "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMIME(tt.declared, tt.file, tt.data); got != tt.want {
				t.Errorf("DetectMIME() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsImageMIME(t *testing.T) {
	if !IsImageMIME("image/png") || !IsImageMIME("IMAGE/WEBP") {
		t.Error("IsImageMIME() rejected an image type")
	}
	if IsImageMIME("text/plain") || IsImageMIME("") {
		t.Error("IsImageMIME() accepted a non-image type")
	}
}

func TestResolveImagePaths(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"))
	writePNG(t, filepath.Join(dir, "b.PNG"))
	if err := os.WriteFile(filepath.Join(dir, "readme.md"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o700); err != nil {
		t.Fatal(err)
	}

	single := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(single, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	paths, err := ResolveImagePaths([]string{dir, single})
	if err != nil {
		t.Fatalf("ResolveImagePaths() error = %v", err)
	}
	want := []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.PNG"), single}
	if len(paths) != len(want) {
		t.Fatalf("ResolveImagePaths() = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}

	if _, err := ResolveImagePaths([]string{t.TempDir()}); err == nil {
		t.Error("ResolveImagePaths() expected error for directory without images")
	}
	if _, err := ResolveImagePaths([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("ResolveImagePaths() expected error for missing path")
	}
}
