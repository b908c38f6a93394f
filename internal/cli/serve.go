package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/backdrop/internal/batch"
	"github.com/jmylchreest/backdrop/internal/export"
	"github.com/jmylchreest/backdrop/internal/server"
)

// newServeCmd creates the serve command.
func newServeCmd(a *app) *cobra.Command {
	var (
		listen string
		params paramFlags
		saver  saverFlags
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a live batch over HTTP",
		Long: `Serve a live batch of images over HTTP.

Images are uploaded to /api/images as multipart "files", processed
results are fetched from /api/images/{id}/processed, and the opacity and
background are adjusted through /api/params. POST /api/export writes every
processed image to the configured destination.

Examples:
  backdrop serve --listen 127.0.0.1:9000 -o ./out
  backdrop serve --archive batch.tar.xz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params.apply(cmd.Flags(), a)
			if cmd.Flags().Changed("listen") {
				a.cfg.Listen = listen
			}

			coord, err := a.newCoordinator(nil)
			if err != nil {
				return err
			}
			defer coord.Close(context.Background())

			srv := server.New(server.Config{
				Coordinator: coord,
				Logger:      a.log.Named("http"),
				Saver: func(ctx context.Context, p batch.Params) (export.Saver, error) {
					return saver.open(ctx, a, p)
				},
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return srv.ListenAndServe(ctx, a.cfg.Listen)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "address to listen on (default: config listen)")
	params.register(cmd.Flags())
	saver.register(cmd.Flags())
	cmd.MarkFlagsMutuallyExclusive("archive", "exporter")

	return cmd
}
