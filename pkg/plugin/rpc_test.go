package plugin

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/rpc"
	"testing"
)

type mockExporter struct {
	opts      ExportOptions
	items     []ExportItem
	written   []string
	metadata  PluginInfo
	configErr error
	exportErr error
	finishErr error
}

func (m *mockExporter) Configure(_ context.Context, opts ExportOptions) error {
	m.opts = opts
	return m.configErr
}

func (m *mockExporter) Export(_ context.Context, item ExportItem) error {
	if m.exportErr != nil {
		return m.exportErr
	}
	m.items = append(m.items, item)
	return nil
}

func (m *mockExporter) Finish(_ context.Context) ([]string, error) {
	return m.written, m.finishErr
}

func (m *mockExporter) GetMetadata() PluginInfo {
	return m.metadata
}

// dial serves impl over an in-memory connection the way go-plugin does for
// net/rpc plugins and returns the client side.
func dial(t *testing.T, impl Exporter) Exporter {
	t.Helper()

	p := &ExporterRPC{Impl: impl}
	srv, err := p.Server(nil)
	if err != nil {
		t.Fatalf("Server() error = %v", err)
	}

	server := rpc.NewServer()
	if err := server.RegisterName("Plugin", srv); err != nil {
		t.Fatalf("RegisterName() error = %v", err)
	}

	serverConn, clientConn := net.Pipe()
	go server.ServeConn(serverConn)

	rpcClient := rpc.NewClient(clientConn)
	t.Cleanup(func() { rpcClient.Close() })

	raw, err := p.Client(nil, rpcClient)
	if err != nil {
		t.Fatalf("Client() error = %v", err)
	}
	client, ok := raw.(*ExporterRPCClient)
	if !ok {
		t.Fatalf("Client() returned %T", raw)
	}
	return client
}

func TestExporterRPCServerType(t *testing.T) {
	mock := &mockExporter{}
	srv, err := (&ExporterRPC{Impl: mock}).Server(nil)
	if err != nil {
		t.Fatalf("Server() error = %v", err)
	}
	rpcServer, ok := srv.(*ExporterRPCServer)
	if !ok {
		t.Fatal("Server() returned wrong type")
	}
	if rpcServer.Impl != mock {
		t.Fatal("Server() impl not set correctly")
	}
}

func TestExporterRoundTrip(t *testing.T) {
	mock := &mockExporter{
		written: []string{"/tmp/out/processed-a.png"},
		metadata: PluginInfo{
			Name:            "test-exporter",
			Version:         "1.0.0",
			ProtocolVersion: ProtocolVersion,
			Description:     "Test exporter",
		},
	}
	client := dial(t, mock)
	ctx := context.Background()

	opts := ExportOptions{OutputDir: "/tmp/out", PluginArgs: map[string]string{"mode": "fast"}}
	if err := client.Configure(ctx, opts); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if mock.opts.OutputDir != "/tmp/out" || mock.opts.PluginArgs["mode"] != "fast" {
		t.Errorf("plugin received options %+v", mock.opts)
	}

	item := ExportItem{Name: "processed-a.png", MIME: "image/png", Data: []byte{1, 2, 3}, Opacity: 50, Background: "#ff0000"}
	if err := client.Export(ctx, item); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(mock.items) != 1 || !bytes.Equal(mock.items[0].Data, item.Data) || mock.items[0].Name != item.Name {
		t.Errorf("plugin received items %+v", mock.items)
	}

	written, err := client.Finish(ctx)
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if len(written) != 1 || written[0] != "/tmp/out/processed-a.png" {
		t.Errorf("Finish() = %v", written)
	}

	if info := client.GetMetadata(); info != mock.metadata {
		t.Errorf("GetMetadata() = %+v, want %+v", info, mock.metadata)
	}
}

func TestExporterErrorsCrossRPC(t *testing.T) {
	tests := []struct {
		name string
		mock *mockExporter
		call func(Exporter) error
		want string
	}{
		{
			name: "configure",
			mock: &mockExporter{configErr: errors.New("bad args")},
			call: func(e Exporter) error { return e.Configure(context.Background(), ExportOptions{}) },
			want: "bad args",
		},
		{
			name: "export",
			mock: &mockExporter{exportErr: errors.New("disk full")},
			call: func(e Exporter) error { return e.Export(context.Background(), ExportItem{Name: "x.png"}) },
			want: "disk full",
		},
		{
			name: "finish",
			mock: &mockExporter{finishErr: errors.New("flush failed")},
			call: func(e Exporter) error {
				_, err := e.Finish(context.Background())
				return err
			},
			want: "flush failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(dial(t, tt.mock))
			var rpcErr *RPCError
			if !errors.As(err, &rpcErr) {
				t.Fatalf("error = %v, want *RPCError", err)
			}
			if rpcErr.Message != tt.want {
				t.Errorf("error message = %q, want %q", rpcErr.Message, tt.want)
			}
		})
	}
}

func TestPluginMap(t *testing.T) {
	mock := &mockExporter{}
	plugins := PluginMap(mock)

	p, ok := plugins[ExporterPluginName].(*ExporterRPC)
	if !ok {
		t.Fatalf("PluginMap()[%q] = %T, want *ExporterRPC", ExporterPluginName, plugins[ExporterPluginName])
	}
	if p.Impl != mock {
		t.Error("PluginMap() impl not set correctly")
	}
}

func TestRPCError(t *testing.T) {
	if rpcError("") != nil {
		t.Error("rpcError(\"\") should be nil")
	}
	err := rpcError("boom")
	if err == nil || err.Error() != "boom" {
		t.Errorf("rpcError(\"boom\") = %v", err)
	}
}
