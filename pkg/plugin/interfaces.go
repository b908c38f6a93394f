package plugin

import (
	"context"
)

// Exporter is the interface that exporter plugins must implement for go-plugin RPC.
// The host calls Configure once, Export for every flattened image in
// order, and Finish when the batch is complete.
type Exporter interface {
	// Configure prepares the exporter for a batch.
	Configure(ctx context.Context, opts ExportOptions) error

	// Export delivers one flattened image.
	Export(ctx context.Context, item ExportItem) error

	// Finish completes the batch and returns the locations written.
	Finish(ctx context.Context) ([]string, error)

	// GetMetadata returns plugin metadata.
	GetMetadata() PluginInfo
}
