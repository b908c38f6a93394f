package export

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/hashicorp/go-hclog"
	goplugin "github.com/hashicorp/go-plugin"

	"github.com/jmylchreest/backdrop/internal/batch"
	"github.com/jmylchreest/backdrop/pkg/plugin"
)

// PluginSaver hands images to an external exporter plugin.
type PluginSaver struct {
	exporter plugin.Exporter
	kill     func()
	log      hclog.Logger

	mu      sync.Mutex
	params  batch.Params
	written []string
	closed  bool
}

// StartPlugin launches the exporter binary at path and configures it for
// a batch.
func StartPlugin(ctx context.Context, path string, opts plugin.ExportOptions, logger hclog.Logger) (*PluginSaver, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("plugin")

	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig:  plugin.Handshake,
		Plugins:          plugin.PluginMap(nil),
		Cmd:              exec.Command(path), // #nosec G204 - exporter path is user-specified
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
		Logger:           logger,
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to get RPC client: %w", err)
	}

	raw, err := rpcClient.Dispense(plugin.ExporterPluginName)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to dispense plugin: %w", err)
	}

	exporter, ok := raw.(plugin.Exporter)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("plugin %s does not implement the exporter protocol", path)
	}

	info := exporter.GetMetadata()
	logger.Debug("exporter started", "name", info.Name, "version", info.Version,
		"protocol", info.ProtocolVersion)
	if err := plugin.CheckCompatible(info.ProtocolVersion); err != nil {
		client.Kill()
		return nil, fmt.Errorf("exporter %s: %w", info.Name, err)
	}

	return NewPluginSaver(ctx, exporter, opts, client.Kill, logger)
}

// NewPluginSaver configures an already connected exporter. kill, if set,
// is called on Close to stop the plugin process.
func NewPluginSaver(ctx context.Context, exporter plugin.Exporter, opts plugin.ExportOptions, kill func(), logger hclog.Logger) (*PluginSaver, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if err := exporter.Configure(ctx, opts); err != nil {
		if kill != nil {
			kill()
		}
		return nil, fmt.Errorf("failed to configure exporter: %w", err)
	}
	return &PluginSaver{exporter: exporter, kill: kill, log: logger}, nil
}

// SetParams records the parameters reported with each exported image.
func (s *PluginSaver) SetParams(p batch.Params) {
	s.mu.Lock()
	s.params = p
	s.mu.Unlock()
}

// Save sends one image to the plugin.
func (s *PluginSaver) Save(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	params, closed := s.params, s.closed
	s.mu.Unlock()

	if closed {
		return fmt.Errorf("exporter already closed")
	}

	item := plugin.ExportItem{
		Name:       name,
		MIME:       "image/png",
		Data:       data,
		Opacity:    params.Opacity,
		Background: params.Background,
	}
	if err := s.exporter.Export(ctx, item); err != nil {
		return fmt.Errorf("exporter rejected %s: %w", name, err)
	}
	s.log.Trace("exported", "name", name, "bytes", len(data))
	return nil
}

// Written returns the locations the plugin reported on Close.
func (s *PluginSaver) Written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.written...)
}

// Close finishes the batch and stops the plugin process.
func (s *PluginSaver) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	written, err := s.exporter.Finish(context.Background())

	s.mu.Lock()
	s.written = written
	s.mu.Unlock()

	if s.kill != nil {
		s.kill()
	}
	if err != nil {
		return fmt.Errorf("exporter failed to finish: %w", err)
	}
	return nil
}
