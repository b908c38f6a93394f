package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jmylchreest/backdrop/internal/compression"
	"github.com/jmylchreest/backdrop/internal/security"
)

// ArchiveSaver streams every image into a single compressed archive.
type ArchiveSaver struct {
	w    *compression.Writer
	file io.Closer
	path string
}

// NewArchiveSaver writes an archive of the given format to w. Closing the
// saver finishes the archive but does not close w.
func NewArchiveSaver(w io.Writer, format compression.Format) (*ArchiveSaver, error) {
	aw, err := compression.NewWriter(w, format)
	if err != nil {
		return nil, err
	}
	return &ArchiveSaver{w: aw}, nil
}

// CreateArchive creates the archive file at path, choosing the format from
// its extension.
func CreateArchive(path string) (*ArchiveSaver, error) {
	format, err := compression.DetectFormat(path)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil { // #nosec G301 - output directory is user-facing
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	f, err := os.Create(path) // #nosec G304 - archive path is user-specified
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}

	s, err := NewArchiveSaver(f, format)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.file = f
	s.path = path
	return s, nil
}

// Save adds an entry to the archive.
func (s *ArchiveSaver) Save(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.w.Add(security.SanitizeFilename(name), data)
}

// Written returns the archive entries added so far, prefixed with the
// archive path when there is one.
func (s *ArchiveSaver) Written() []string {
	names := s.w.Names()
	if s.path == "" {
		return names
	}
	for i, name := range names {
		names[i] = s.path + ":" + name
	}
	return names
}

// Close finishes the archive and closes the file CreateArchive opened.
func (s *ArchiveSaver) Close() error {
	err := s.w.Close()
	if s.file != nil {
		if closeErr := s.file.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close archive: %w", closeErr)
		}
		s.file = nil
	}
	return err
}
