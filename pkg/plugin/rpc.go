package plugin

import (
	"context"
	"net/rpc"

	"github.com/hashicorp/go-plugin"
)

// ExporterRPC implements the go-plugin Plugin interface for exporters.
type ExporterRPC struct {
	plugin.Plugin
	Impl Exporter
}

// Server returns an RPC server for this plugin.
func (p *ExporterRPC) Server(*plugin.MuxBroker) (any, error) {
	return &ExporterRPCServer{Impl: p.Impl}, nil
}

// Client returns an RPC client for this plugin.
func (p *ExporterRPC) Client(_ *plugin.MuxBroker, c *rpc.Client) (any, error) {
	return &ExporterRPCClient{client: c}, nil
}

// ExporterRPCServer is the RPC server implementation for exporters.
type ExporterRPCServer struct {
	Impl Exporter
}

// Configure implements the RPC method for batch setup.
func (s *ExporterRPCServer) Configure(opts ExportOptions, resp *string) error {
	if err := s.Impl.Configure(context.Background(), opts); err != nil {
		*resp = err.Error()
	}
	return nil
}

// Export implements the RPC method for a single image.
func (s *ExporterRPCServer) Export(item ExportItem, resp *string) error {
	if err := s.Impl.Export(context.Background(), item); err != nil {
		*resp = err.Error()
	}
	return nil
}

// Finish implements the RPC method for batch completion.
func (s *ExporterRPCServer) Finish(_ any, resp *FinishResponse) error {
	written, err := s.Impl.Finish(context.Background())
	resp.Written = written
	if err != nil {
		resp.Error = err.Error()
	}
	return nil
}

// GetMetadata implements the RPC method for fetching plugin metadata.
func (s *ExporterRPCServer) GetMetadata(_ any, resp *PluginInfo) error {
	*resp = s.Impl.GetMetadata()
	return nil
}

// FinishResponse carries the result of Finish over RPC.
type FinishResponse struct {
	Written []string
	Error   string
}

// ExporterRPCClient is the RPC client implementation for exporters.
type ExporterRPCClient struct {
	client *rpc.Client
}

// Configure calls the remote Configure method.
func (c *ExporterRPCClient) Configure(_ context.Context, opts ExportOptions) error {
	var errMsg string
	if err := c.client.Call("Plugin.Configure", opts, &errMsg); err != nil {
		return err
	}
	return rpcError(errMsg)
}

// Export calls the remote Export method.
func (c *ExporterRPCClient) Export(_ context.Context, item ExportItem) error {
	var errMsg string
	if err := c.client.Call("Plugin.Export", item, &errMsg); err != nil {
		return err
	}
	return rpcError(errMsg)
}

// Finish calls the remote Finish method.
func (c *ExporterRPCClient) Finish(_ context.Context) ([]string, error) {
	var resp FinishResponse
	if err := c.client.Call("Plugin.Finish", new(any), &resp); err != nil {
		return nil, err
	}
	return resp.Written, rpcError(resp.Error)
}

// GetMetadata calls the remote GetMetadata method.
func (c *ExporterRPCClient) GetMetadata() PluginInfo {
	var info PluginInfo
	if err := c.client.Call("Plugin.GetMetadata", new(any), &info); err != nil {
		return PluginInfo{}
	}
	return info
}

// RPCError represents an error returned from an RPC call.
type RPCError struct {
	Message string
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return e.Message
}

func rpcError(msg string) error {
	if msg == "" {
		return nil
	}
	return &RPCError{Message: msg}
}
