// Package compression writes and reads the archive formats backdrop exports to.
package compression

import (
	"fmt"
	"strings"
)

// Format is an archive container and compression pair.
type Format int

const (
	// FormatTarXz is a tar stream compressed with xz.
	FormatTarXz Format = iota
	// FormatTarGz is a tar stream compressed with gzip.
	FormatTarGz
	// FormatZip is a zip archive.
	FormatZip
)

// String returns the canonical file extension of the format.
func (f Format) String() string {
	switch f {
	case FormatTarXz:
		return ".tar.xz"
	case FormatTarGz:
		return ".tar.gz"
	case FormatZip:
		return ".zip"
	default:
		return "unknown"
	}
}

// DetectFormat picks a format from an archive file name.
func DetectFormat(filename string) (Format, error) {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		return FormatTarXz, nil
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return FormatTarGz, nil
	case strings.HasSuffix(name, ".zip"):
		return FormatZip, nil
	}
	return 0, fmt.Errorf("unsupported archive format: %s (use .tar.xz, .tar.gz or .zip)", filename)
}
