package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// newProcessCmd creates the process command.
func newProcessCmd(a *app) *cobra.Command {
	var (
		params paramFlags
		saver  saverFlags
	)

	cmd := &cobra.Command{
		Use:   "process <path>...",
		Short: "Flatten images onto a background and export them",
		Long: `Flatten one or more images onto a solid background colour and export
the results as PNG files named processed-<original name>.

Arguments may be files, http(s) URLs, archives (.zip, .tar.gz, .tar.xz)
or directories. Archives are expanded and directories are scanned (not
recursively) for supported images:
JPEG, PNG, GIF, WebP, BMP and TIFF. Files that are not images or cannot
be decoded are skipped and reported.

Examples:
  # Flatten a logo onto white at full opacity
  backdrop process logo.png

  # Flatten every image in a directory onto a dark background at 80%
  backdrop process ./icons -b 1e1e2e -p 80 -o ./out

  # Write a single compressed archive with thumbnails
  backdrop process ./icons --archive icons.tar.xz --thumbnails

  # Hand the results to an exporter plugin
  backdrop process ./icons --exporter ./backdrop-export-directory --exporter-args group=background`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params.apply(cmd.Flags(), a)
			return runProcess(cmd.Context(), cmd, a, &saver, args)
		},
	}

	params.register(cmd.Flags())
	saver.register(cmd.Flags())
	cmd.MarkFlagsMutuallyExclusive("archive", "exporter")

	return cmd
}

// runProcess executes the process command.
func runProcess(ctx context.Context, cmd *cobra.Command, a *app, sf *saverFlags, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	uploads, err := loadUploads(ctx, cmd.ErrOrStderr(), args)
	if err != nil {
		return err
	}

	coord, err := a.newCoordinator(nil)
	if err != nil {
		return err
	}
	defer coord.Close(context.Background())

	report, err := coord.Ingest(ctx, uploads)
	if err != nil {
		return err
	}
	for _, s := range report.Skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %s\n", s.Name, s.Reason)
	}
	if len(report.Accepted) == 0 {
		return errors.New("no images to process")
	}

	if err := coord.WaitIdle(ctx); err != nil {
		return err
	}
	if err := coord.LastError(); err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}
	for _, img := range coord.Images() {
		if img.Error != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed %s: %s\n", img.Name, img.Error)
		}
	}

	saver, err := sf.open(ctx, a, coord.Params())
	if err != nil {
		return fmt.Errorf("failed to open export destination: %w", err)
	}
	saved, exportErr := coord.ExportAll(ctx, saver)
	closeErr := saver.Close()

	if !a.quiet {
		for _, path := range saver.Written() {
			fmt.Fprintln(out, path)
		}
	}
	a.log.Info("processed images", "accepted", len(report.Accepted), "exported", saved,
		"opacity", coord.Params().Opacity, "background", coord.Params().Background)

	return errors.Join(exportErr, closeErr)
}
