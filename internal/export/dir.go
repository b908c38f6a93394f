package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmylchreest/backdrop/internal/security"
)

// DirSaver writes each image as a file in a directory.
type DirSaver struct {
	dir string

	mu      sync.Mutex
	written []string
}

// NewDirSaver creates dir if needed and returns a saver writing into it.
func NewDirSaver(dir string) (*DirSaver, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { // #nosec G301 - output directory is user-facing
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &DirSaver{dir: dir}, nil
}

// Dir returns the output directory.
func (s *DirSaver) Dir() string {
	return s.dir
}

// Save writes data to <dir>/<name>. Names that would escape the directory
// are rejected.
func (s *DirSaver) Save(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := security.ValidateFilePath(name, s.dir); err != nil {
		return fmt.Errorf("invalid export name %q: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { // #nosec G306 - exported images are meant to be shared
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	s.mu.Lock()
	s.written = append(s.written, path)
	s.mu.Unlock()
	return nil
}

// Written returns the paths written so far.
func (s *DirSaver) Written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.written...)
}

// Close is a no-op; every Save is complete when it returns.
func (s *DirSaver) Close() error {
	return nil
}
