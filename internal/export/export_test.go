package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmylchreest/backdrop/internal/batch"
	"github.com/jmylchreest/backdrop/internal/compression"
	"github.com/jmylchreest/backdrop/pkg/plugin"
)

func pngData(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDirSaver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s, err := NewDirSaver(dir)
	if err != nil {
		t.Fatalf("NewDirSaver() error = %v", err)
	}
	defer s.Close()

	if err := s.Save(context.Background(), "processed-a.png", []byte("a")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "processed-a.png"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "a" {
		t.Errorf("file content = %q, want %q", got, "a")
	}
	if written := s.Written(); len(written) != 1 || written[0] != filepath.Join(dir, "processed-a.png") {
		t.Errorf("Written() = %v", written)
	}
	if _, err := os.Stat(filepath.Join(dir, "processed-a.png.tmp")); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestDirSaverRejectsEscapingNames(t *testing.T) {
	s, err := NewDirSaver(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirSaver() error = %v", err)
	}

	for _, name := range []string{"../evil.png", "/etc/evil.png", ""} {
		if err := s.Save(context.Background(), name, []byte("x")); err == nil {
			t.Errorf("Save(%q) expected error", name)
		}
	}
	if len(s.Written()) != 0 {
		t.Errorf("Written() = %v, want empty", s.Written())
	}
}

func TestDirSaverHonoursContext(t *testing.T) {
	s, err := NewDirSaver(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirSaver() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Save(ctx, "a.png", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Save() error = %v, want context.Canceled", err)
	}
}

func TestArchiveSaver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "export.tar.xz")
	s, err := CreateArchive(path)
	if err != nil {
		t.Fatalf("CreateArchive() error = %v", err)
	}

	ctx := context.Background()
	if err := s.Save(ctx, "processed-a.png", []byte("aaa")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save(ctx, "../processed-b.png", []byte("bbb")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if written := s.Written(); len(written) != 2 || written[0] != path+":processed-a.png" {
		t.Errorf("Written() = %v", written)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	entries, err := compression.ReadAll(data, compression.FormatTarXz, 0)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "processed-a.png" || entries[1].Name != "processed-b.png" {
		t.Fatalf("entries = %+v", entries)
	}
	if string(entries[1].Data) != "bbb" {
		t.Errorf("entry data = %q, want bbb", entries[1].Data)
	}
}

func TestCreateArchiveRejectsUnknownFormat(t *testing.T) {
	if _, err := CreateArchive(filepath.Join(t.TempDir(), "export.rar")); err == nil {
		t.Error("CreateArchive() expected error for .rar")
	}
}

type mockExporter struct {
	opts      plugin.ExportOptions
	items     []plugin.ExportItem
	finished  bool
	exportErr error
}

func (m *mockExporter) Configure(_ context.Context, opts plugin.ExportOptions) error {
	m.opts = opts
	return nil
}

func (m *mockExporter) Export(_ context.Context, item plugin.ExportItem) error {
	if m.exportErr != nil {
		return m.exportErr
	}
	m.items = append(m.items, item)
	return nil
}

func (m *mockExporter) Finish(_ context.Context) ([]string, error) {
	m.finished = true
	names := make([]string, len(m.items))
	for i, item := range m.items {
		names[i] = "remote:" + item.Name
	}
	return names, nil
}

func (m *mockExporter) GetMetadata() plugin.PluginInfo {
	return plugin.PluginInfo{Name: "mock"}
}

func TestPluginSaver(t *testing.T) {
	mock := &mockExporter{}
	killed := false

	s, err := NewPluginSaver(context.Background(), mock, plugin.ExportOptions{OutputDir: "/srv"}, func() { killed = true }, nil)
	if err != nil {
		t.Fatalf("NewPluginSaver() error = %v", err)
	}
	if mock.opts.OutputDir != "/srv" {
		t.Errorf("exporter configured with %+v", mock.opts)
	}

	s.SetParams(batch.Params{Background: "#ff0000", Opacity: 40})
	if err := s.Save(context.Background(), "processed-a.png", []byte("a")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(mock.items) != 1 {
		t.Fatalf("exporter received %d items, want 1", len(mock.items))
	}
	item := mock.items[0]
	if item.MIME != "image/png" || item.Opacity != 40 || item.Background != "#ff0000" {
		t.Errorf("exported item = %+v", item)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !mock.finished || !killed {
		t.Errorf("Close() finished=%v killed=%v, want both", mock.finished, killed)
	}
	if written := s.Written(); len(written) != 1 || written[0] != "remote:processed-a.png" {
		t.Errorf("Written() = %v", written)
	}
	if err := s.Save(context.Background(), "late.png", nil); err == nil {
		t.Error("Save() after Close should fail")
	}
}

func TestPluginSaverWrapsExportErrors(t *testing.T) {
	errRemote := errors.New("quota exceeded")
	s, err := NewPluginSaver(context.Background(), &mockExporter{exportErr: errRemote}, plugin.ExportOptions{}, nil, nil)
	if err != nil {
		t.Fatalf("NewPluginSaver() error = %v", err)
	}
	if err := s.Save(context.Background(), "a.png", nil); !errors.Is(err, errRemote) {
		t.Errorf("Save() error = %v, want wrapped %v", err, errRemote)
	}
}

type memorySaver struct {
	files map[string][]byte
	order []string
}

func (m *memorySaver) Save(_ context.Context, name string, data []byte) error {
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[name] = data
	m.order = append(m.order, name)
	return nil
}

func (m *memorySaver) Written() []string { return m.order }

func (m *memorySaver) Close() error { return nil }

func TestThumbnailSaver(t *testing.T) {
	mem := &memorySaver{}
	s := WithThumbnails(mem, 16)

	if err := s.Save(context.Background(), "processed-a.png", pngData(t, 64, 32)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if len(mem.order) != 2 || mem.order[1] != "thumb-processed-a.png" {
		t.Fatalf("saved %v, want full image then thumbnail", mem.order)
	}
	thumb, err := png.Decode(bytes.NewReader(mem.files["thumb-processed-a.png"]))
	if err != nil {
		t.Fatalf("thumbnail is not a png: %v", err)
	}
	if b := thumb.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Errorf("thumbnail size = %dx%d, want 16x8", b.Dx(), b.Dy())
	}
}

func TestThumbnailSaverRejectsNonPNG(t *testing.T) {
	s := WithThumbnails(&memorySaver{}, 0)
	if s.MaxDim != DefaultThumbnailSize {
		t.Errorf("MaxDim = %d, want %d", s.MaxDim, DefaultThumbnailSize)
	}
	err := s.Save(context.Background(), "a.png", []byte("nope"))
	if err == nil || !strings.Contains(err.Error(), "thumbnail") {
		t.Errorf("Save() error = %v, want thumbnail decode error", err)
	}
}

func TestCoordinatorExportsToDirectory(t *testing.T) {
	c, err := batch.New(batch.Config{})
	if err != nil {
		t.Fatalf("batch.New() error = %v", err)
	}
	defer c.Close(context.Background())

	ctx := context.Background()
	if _, err := c.Ingest(ctx, []batch.Upload{{Name: "logo.png", Data: pngData(t, 4, 4)}}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if err := c.WaitIdle(ctx); err != nil {
		t.Fatalf("WaitIdle() error = %v", err)
	}

	dir := t.TempDir()
	s, err := NewDirSaver(dir)
	if err != nil {
		t.Fatalf("NewDirSaver() error = %v", err)
	}
	saved, err := c.ExportAll(ctx, s)
	if err != nil || saved != 1 {
		t.Fatalf("ExportAll() = %d, %v; want 1, nil", saved, err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "processed-logo.png"))
	if err != nil {
		t.Fatalf("exported file missing: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("exported file is not a png: %v", err)
	}
}
