// Package export provides the destinations flattened images are saved to.
package export

import (
	"github.com/jmylchreest/backdrop/internal/batch"
)

// Saver is a batch.Saver that must be closed once the export is complete.
type Saver interface {
	batch.Saver

	// Written returns the locations saved so far.
	Written() []string

	// Close flushes and releases the destination.
	Close() error
}
