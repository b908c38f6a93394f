// Package image provides utilities for loading and decoding uploaded images.
package image

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format
	_ "image/jpeg" // Register JPEG format
	_ "image/png"  // Register PNG format
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "golang.org/x/image/bmp"  // Register BMP format
	_ "golang.org/x/image/tiff" // Register TIFF format
	_ "golang.org/x/image/webp" // Register WebP format

	"github.com/jmylchreest/backdrop/internal/security"
)

// DefaultMaxFileSize bounds how many bytes are read from a single image file.
const DefaultMaxFileSize int64 = 64 * 1024 * 1024

// File is a raw image payload with the metadata needed for ingestion.
type File struct {
	Name string
	MIME string
	Data []byte
}

// Loader handles loading image payloads from various sources.
type Loader interface {
	// Load reads the payload at the given path.
	Load(path string) (*File, error)
}

// FileLoader loads image payloads from the local filesystem.
type FileLoader struct {
	// MaxSize is the largest file accepted, in bytes. Zero means DefaultMaxFileSize.
	MaxSize int64
}

// NewFileLoader creates a new FileLoader instance.
func NewFileLoader() *FileLoader {
	return &FileLoader{MaxSize: DefaultMaxFileSize}
}

// Load reads a file and detects its media type. The payload is not decoded;
// decoding happens when the image is composited.
func (l *FileLoader) Load(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("image path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("image file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to stat image file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	file, err := os.Open(path) // #nosec G304 - User-specified image path, intended to be read
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	maxSize := l.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	data, err := io.ReadAll(security.NewLimitedReader(file, maxSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}

	name := filepath.Base(path)
	return &File{
		Name: name,
		MIME: DetectMIME("", name, data),
		Data: data,
	}, nil
}

// Decode decodes an image payload in any registered format.
// Supported formats: JPEG, PNG, GIF, WebP, BMP, TIFF.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// Probe decodes only the image header and returns the detected format name.
func Probe(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("unsupported or invalid image format: %w", err)
	}
	return format, nil
}

// DetectMIME returns the media type of a payload. A declared type wins when
// present; otherwise the content is sniffed, and the file extension is used
// when sniffing is inconclusive.
func DetectMIME(declared, name string, data []byte) string {
	if declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
			return mediaType
		}
	}

	sniffed := http.DetectContentType(data)
	if IsImageMIME(sniffed) {
		return sniffed
	}

	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil && IsImageMIME(mediaType) {
			return mediaType
		}
	}

	if mediaType, _, err := mime.ParseMediaType(sniffed); err == nil {
		return mediaType
	}
	return sniffed
}

// IsImageMIME reports whether a media type is in the image/* family.
func IsImageMIME(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(mediaType), "image/")
}

// SupportedImageExtensions returns a list of supported image file extensions.
func SupportedImageExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff"}
}

// isImageFile checks if a file has a supported image extension.
func isImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains(SupportedImageExtensions(), ext)
}

// ScanDirectoryForImages scans a directory and returns all valid image files.
// It does not recurse into subdirectories, but follows symlinks.
func ScanDirectoryForImages(dirPath string) ([]string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var imageFiles []string
	for _, entry := range entries {
		fullPath := filepath.Join(dirPath, entry.Name())

		// For symlinks, stat the target to determine if it's a file.
		info, err := os.Stat(fullPath)
		if err != nil {
			// Skip entries we can't stat (broken symlinks, permission issues).
			continue
		}

		if info.IsDir() {
			continue
		}

		if isImageFile(entry.Name()) {
			imageFiles = append(imageFiles, fullPath)
		}
	}

	if len(imageFiles) == 0 {
		return nil, fmt.Errorf("no supported image files found in directory: %s", dirPath)
	}

	return imageFiles, nil
}

// ResolveImagePaths expands directories into the image files they contain.
// File paths and URLs are passed through as-is so unsupported files can be
// reported by the caller rather than silently dropped here.
func ResolveImagePaths(paths []string) ([]string, error) {
	var resolved []string
	for _, path := range paths {
		if IsRemote(path) {
			resolved = append(resolved, path)
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to access path: %w", err)
		}

		if !info.IsDir() {
			resolved = append(resolved, path)
			continue
		}

		imageFiles, err := ScanDirectoryForImages(path)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, imageFiles...)
	}
	return resolved, nil
}
