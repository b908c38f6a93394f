package export

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/jmylchreest/backdrop/internal/compositor"
)

const (
	// DefaultThumbnailSize is the longest side of generated thumbnails.
	DefaultThumbnailSize = 256

	// ThumbnailPrefix is prepended to the export name of thumbnails.
	ThumbnailPrefix = "thumb-"
)

// ThumbnailSaver saves every image and a downscaled copy of it through the
// wrapped Saver.
type ThumbnailSaver struct {
	Saver
	MaxDim int
}

// WithThumbnails wraps s so each image is also saved as a thumbnail.
func WithThumbnails(s Saver, maxDim int) *ThumbnailSaver {
	if maxDim <= 0 {
		maxDim = DefaultThumbnailSize
	}
	return &ThumbnailSaver{Saver: s, MaxDim: maxDim}
}

// Save writes the full image and then its thumbnail.
func (s *ThumbnailSaver) Save(ctx context.Context, name string, data []byte) error {
	if err := s.Saver.Save(ctx, name, data); err != nil {
		return err
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode %s for thumbnail: %w", name, err)
	}
	thumb, err := compositor.EncodePNG(compositor.Thumbnail(img, s.MaxDim))
	if err != nil {
		return fmt.Errorf("failed to encode thumbnail for %s: %w", name, err)
	}
	return s.Saver.Save(ctx, ThumbnailPrefix+name, thumb)
}
