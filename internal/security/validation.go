// Package security provides input-hardening helpers for backdrop.
package security

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrSizeLimitExceeded is returned by LimitedReader when the source holds
// more bytes than allowed.
var ErrSizeLimitExceeded = errors.New("size limit exceeded")

// ValidateFilePath validates a relative file path to prevent directory traversal.
// The joined path must stay inside baseDir.
func ValidateFilePath(filePath, baseDir string) error {
	if filePath == "" {
		return fmt.Errorf("empty file path")
	}

	// Check for dangerous patterns
	if strings.Contains(filePath, "..") {
		return fmt.Errorf("file path contains directory traversal (..) - not allowed")
	}

	if filepath.IsAbs(filePath) {
		return fmt.Errorf("absolute file paths are not allowed")
	}

	// Ensure the final path would be within baseDir
	finalPath := filepath.Join(baseDir, filePath)
	cleanFinal := filepath.Clean(finalPath)
	cleanBase := filepath.Clean(baseDir)

	if !strings.HasPrefix(cleanFinal, cleanBase+string(filepath.Separator)) &&
		cleanFinal != cleanBase {
		return fmt.Errorf("file path would escape base directory")
	}

	return nil
}

// SanitizeFilename reduces an untrusted upload name to a bare file name.
// Directory components are stripped and separators that survive on the
// current platform are replaced, so the result is safe to join to an
// output directory.
func SanitizeFilename(name string) string {
	// Uploads may carry either separator regardless of the host OS.
	name = strings.ReplaceAll(name, "\\", "/")
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == filepath.Separator {
			return '_'
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if name == "" || name == "." || name == ".." {
		return "image"
	}
	return name
}

// ClampInt clamps val to the inclusive range [lo, hi].
func ClampInt(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// LimitedReader wraps an io.Reader and limits the total bytes that can be read.
// Unlike io.LimitReader it reports an error instead of truncating silently.
type LimitedReader struct {
	R         io.Reader
	Remaining int64
}

// Read implements io.Reader with size limits.
func (l *LimitedReader) Read(p []byte) (int, error) {
	if l.Remaining <= 0 {
		// Probe for a trailing byte so a source of exactly the limit is accepted.
		var probe [1]byte
		n, err := l.R.Read(probe[:])
		if n > 0 {
			return 0, ErrSizeLimitExceeded
		}
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	if int64(len(p)) > l.Remaining {
		p = p[:l.Remaining]
	}
	n, err := l.R.Read(p)
	l.Remaining -= int64(n)
	return n, err
}

// NewLimitedReader creates a new LimitedReader with the specified size limit.
func NewLimitedReader(r io.Reader, maxBytes int64) *LimitedReader {
	return &LimitedReader{
		R:         r,
		Remaining: maxBytes,
	}
}
