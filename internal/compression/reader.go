package compression

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"

	"github.com/jmylchreest/backdrop/internal/security"
)

// DefaultMaxEntrySize bounds how much of a single entry is read back.
const DefaultMaxEntrySize int64 = 256 * 1024 * 1024

// Entry is a file read back from an archive.
type Entry struct {
	Name string
	Data []byte
}

// ReadAll returns every regular file in an archive, in archive order.
func ReadAll(data []byte, format Format, maxEntrySize int64) ([]Entry, error) {
	if maxEntrySize <= 0 {
		maxEntrySize = DefaultMaxEntrySize
	}

	switch format {
	case FormatTarXz:
		xzr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return readTar(xzr, maxEntrySize)
	case FormatTarGz:
		gzr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzr.Close()
		return readTar(gzr, maxEntrySize)
	case FormatZip:
		return readZip(data, maxEntrySize)
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", format)
	}
}

func readTar(r io.Reader, maxEntrySize int64) ([]Entry, error) {
	tr := tar.NewReader(r)

	var entries []Entry
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tar archive: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		data, err := io.ReadAll(security.NewLimitedReader(tr, maxEntrySize))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", header.Name, err)
		}
		entries = append(entries, Entry{Name: header.Name, Data: data})
	}
	return entries, nil
}

func readZip(data []byte, maxEntrySize int64) ([]Entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zip reader: %w", err)
	}

	var entries []Entry
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(security.NewLimitedReader(rc, maxEntrySize))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		entries = append(entries, Entry{Name: f.Name, Data: content})
	}
	return entries, nil
}
