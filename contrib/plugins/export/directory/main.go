// directory - Directory Exporter (Backdrop Export Plugin)
//
// Writes every flattened image into a directory, optionally grouped into a
// subdirectory named after the background colour.
//
// Build:
//   go build -o backdrop-export-directory
//
// Usage:
//   backdrop process ./logos -b 1e1e2e --exporter ./backdrop-export-directory -o ./out
//
// Plugin Args:
//   group: "background" to write into <dir>/<rrggbb>/ (default: none)
//   dir:   destination directory when -o is not given (default: ".")
//
// Author: Backdrop Contributors
// License: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/backdrop/pkg/plugin"
)

// DirectoryExporter implements the plugin.Exporter interface.
type DirectoryExporter struct {
	dir     string
	group   bool
	dryRun  bool
	written []string
}

// Configure resolves the destination directory.
func (e *DirectoryExporter) Configure(_ context.Context, opts plugin.ExportOptions) error {
	e.dir = opts.OutputDir
	if e.dir == "" {
		e.dir = opts.PluginArgs["dir"]
	}
	if e.dir == "" {
		e.dir = "."
	}
	e.group = opts.PluginArgs["group"] == "background"
	e.dryRun = opts.DryRun
	e.written = nil
	return nil
}

// Export writes a single image.
func (e *DirectoryExporter) Export(_ context.Context, item plugin.ExportItem) error {
	name := filepath.Base(item.Name)
	if name == "." || name == string(filepath.Separator) || strings.Contains(name, "..") {
		return fmt.Errorf("refusing unsafe file name %q", item.Name)
	}

	dir := e.dir
	if e.group {
		dir = filepath.Join(dir, strings.TrimPrefix(item.Background, "#"))
	}
	path := filepath.Join(dir, name)

	if e.dryRun {
		fmt.Fprintf(os.Stderr, "DRY-RUN MODE: Would write %s (%d bytes)\n", path, len(item.Data))
		e.written = append(e.written, path)
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := os.WriteFile(path, item.Data, 0o644); err != nil { // #nosec G306 - exported images are meant to be shared
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	e.written = append(e.written, path)
	return nil
}

// Finish reports the files written.
func (e *DirectoryExporter) Finish(_ context.Context) ([]string, error) {
	return e.written, nil
}

// GetMetadata returns plugin metadata.
func (e *DirectoryExporter) GetMetadata() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:            "directory",
		Version:         "0.1.0",
		ProtocolVersion: plugin.ProtocolVersion,
		Description:     "Write flattened images to a directory",
	}
}

func main() {
	plugin.Serve(&DirectoryExporter{})
}
