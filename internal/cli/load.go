package cli

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/jmylchreest/backdrop/internal/batch"
	"github.com/jmylchreest/backdrop/internal/compression"
	"github.com/jmylchreest/backdrop/internal/image"
)

// loadUploads reads every file, directory entry or URL in sources.
// Archives (.zip, .tar.gz, .tar.xz) are expanded into their files.
// Unreadable sources are reported to w and skipped.
func loadUploads(ctx context.Context, w io.Writer, sources []string) ([]batch.Upload, error) {
	paths, err := image.ResolveImagePaths(sources)
	if err != nil {
		return nil, err
	}

	uploads := make([]batch.Upload, 0, len(paths))
	for _, p := range paths {
		file, err := image.Load(ctx, p)
		if err != nil {
			fmt.Fprintf(w, "skipped %s: %v\n", p, err)
			continue
		}

		format, err := compression.DetectFormat(file.Name)
		if err != nil {
			uploads = append(uploads, batch.Upload{Name: file.Name, MIME: file.MIME, Data: file.Data})
			continue
		}

		entries, err := compression.ReadAll(file.Data, format, image.DefaultMaxFileSize)
		if err != nil {
			fmt.Fprintf(w, "skipped %s: %v\n", p, err)
			continue
		}
		for _, e := range entries {
			// MIME is detected from the entry name and content on ingest.
			uploads = append(uploads, batch.Upload{Name: path.Base(e.Name), Data: e.Data})
		}
	}
	return uploads, nil
}
