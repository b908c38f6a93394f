package compression

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ulikunitz/xz"
)

// Writer adds files to an archive stream. It is safe for concurrent use.
type Writer struct {
	format  Format
	modTime time.Time

	mu     sync.Mutex
	tw     *tar.Writer
	zw     *zip.Writer
	comp   io.WriteCloser
	names  []string
	closed bool
}

// NewWriter starts an archive of the given format on w. The caller must
// call Close to flush the archive; w itself is not closed.
func NewWriter(w io.Writer, format Format) (*Writer, error) {
	aw := &Writer{format: format, modTime: time.Now()}

	switch format {
	case FormatTarXz:
		xzw, err := xz.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
		aw.comp = xzw
		aw.tw = tar.NewWriter(xzw)
	case FormatTarGz:
		gzw := gzip.NewWriter(w)
		aw.comp = gzw
		aw.tw = tar.NewWriter(gzw)
	case FormatZip:
		aw.zw = zip.NewWriter(w)
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", format)
	}

	return aw, nil
}

// Add appends a regular file to the archive.
func (w *Writer) Add(name string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("archive already closed")
	}

	if w.tw != nil {
		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(data)),
			ModTime:  w.modTime,
		}
		if err := w.tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("failed to write tar header for %s: %w", name, err)
		}
		if _, err := w.tw.Write(data); err != nil {
			return fmt.Errorf("failed to write %s to archive: %w", name, err)
		}
	} else {
		fw, err := w.zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Store,
			Modified: w.modTime,
		})
		if err != nil {
			return fmt.Errorf("failed to create zip entry for %s: %w", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("failed to write %s to archive: %w", name, err)
		}
	}

	w.names = append(w.names, name)
	return nil
}

// Names returns the entries added so far.
func (w *Writer) Names() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.names...)
}

// Close flushes the archive and its compression layer.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.zw != nil {
		if err := w.zw.Close(); err != nil {
			return fmt.Errorf("failed to finish zip archive: %w", err)
		}
		return nil
	}

	if err := w.tw.Close(); err != nil {
		return fmt.Errorf("failed to finish tar archive: %w", err)
	}
	if err := w.comp.Close(); err != nil {
		return fmt.Errorf("failed to finish compression: %w", err)
	}
	return nil
}
