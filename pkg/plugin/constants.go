// Package plugin provides the public API for backdrop exporter plugins.
package plugin

import (
	"github.com/hashicorp/go-plugin"
)

const (
	// ProtocolVersion defines the current plugin API version.
	// Format: MAJOR.MINOR.PATCH.
	// - Increment MAJOR for breaking changes (incompatible API changes).
	// - Increment MINOR for backward-compatible additions.
	// - Increment PATCH for backward-compatible bug fixes.
	ProtocolVersion = "0.1.0"

	// ExporterPluginName is the key exporters are dispensed under.
	ExporterPluginName = "exporter"
)

// Handshake is the handshake configuration for go-plugin protocol.
// This ensures that plugins using go-plugin can only connect to compatible hosts.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  0, // Major version from ProtocolVersion
	MagicCookieKey:   "BACKDROP_PLUGIN",
	MagicCookieValue: "backdrop_exporter",
}

// PluginMap returns the plugin set served and dispensed by backdrop.
func PluginMap(impl Exporter) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		ExporterPluginName: &ExporterRPC{Impl: impl},
	}
}

// Serve runs impl as an exporter plugin. It blocks until the host exits.
func Serve(impl Exporter) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins:         PluginMap(impl),
	})
}
