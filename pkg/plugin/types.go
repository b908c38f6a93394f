package plugin

// PluginInfo contains metadata about a plugin.
type PluginInfo struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	ProtocolVersion string `json:"protocol_version"`
	Description     string `json:"description"`
}

// ExportOptions configures an export batch.
type ExportOptions struct {
	// OutputDir is the destination requested by the user, if any.
	OutputDir string `json:"output_dir,omitempty"`
	// PluginArgs holds free-form key=value settings for the plugin.
	PluginArgs map[string]string `json:"plugin_args,omitempty"`
	DryRun     bool              `json:"dry_run"`
}

// ExportItem is a single flattened image.
type ExportItem struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Data []byte `json:"data"`
	// Opacity and Background are the parameters the image was flattened with.
	Opacity    int    `json:"opacity"`
	Background string `json:"background"`
}
