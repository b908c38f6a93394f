package cli

import (
	"context"

	"github.com/spf13/pflag"

	"github.com/jmylchreest/backdrop/internal/batch"
	"github.com/jmylchreest/backdrop/internal/compositor"
	"github.com/jmylchreest/backdrop/internal/export"
	"github.com/jmylchreest/backdrop/pkg/plugin"
)

// saverFlags select where exported images go.
type saverFlags struct {
	outputDir     string
	archive       string
	exporter      string
	exporterArgs  map[string]string
	thumbnails    bool
	thumbnailSize int
}

func (f *saverFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.outputDir, "output", "o", "", "output directory (default: config output_dir)")
	fs.StringVar(&f.archive, "archive", "", "write a single archive instead of files (.tar.xz, .tar.gz or .zip)")
	fs.StringVar(&f.exporter, "exporter", "", "path to an exporter plugin binary")
	fs.StringToStringVar(&f.exporterArgs, "exporter-args", nil, "exporter plugin arguments (key=value, repeatable)")
	fs.BoolVar(&f.thumbnails, "thumbnails", false, "also export a thumbnail of every image")
	fs.IntVar(&f.thumbnailSize, "thumbnail-size", export.DefaultThumbnailSize, "longest side of exported thumbnails")
}

// open creates the saver for one export run.
func (f *saverFlags) open(ctx context.Context, a *app, params batch.Params) (export.Saver, error) {
	dir := f.outputDir
	if dir == "" {
		dir = a.cfg.OutputDir
	}

	var saver export.Saver
	switch {
	case f.exporter != "":
		ps, err := export.StartPlugin(ctx, f.exporter, plugin.ExportOptions{
			OutputDir:  dir,
			PluginArgs: f.exporterArgs,
		}, a.log)
		if err != nil {
			return nil, err
		}
		ps.SetParams(params)
		saver = ps
	case f.archive != "":
		as, err := export.CreateArchive(f.archive)
		if err != nil {
			return nil, err
		}
		saver = as
	default:
		ds, err := export.NewDirSaver(dir)
		if err != nil {
			return nil, err
		}
		saver = ds
	}

	if f.thumbnails {
		saver = export.WithThumbnails(saver, f.thumbnailSize)
	}
	return saver, nil
}

// newCoordinator creates a Coordinator from the loaded configuration.
func (a *app) newCoordinator(onPass func(batch.PassReport)) (*batch.Coordinator, error) {
	params := a.cfg.Params()
	return batch.New(batch.Config{
		Compositor:    compositor.New(a.cfg.MaxPixels),
		Logger:        a.log.Named("batch"),
		Params:        &params,
		Debounce:      a.cfg.Debounce,
		ExportSpacing: a.cfg.ExportSpacing,
		Workers:       a.cfg.Workers,
		OnPass:        onPass,
	})
}
