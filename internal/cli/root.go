// Package cli provides the command-line interface for Backdrop.
package cli

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/backdrop/internal/config"
	"github.com/jmylchreest/backdrop/internal/version"
)

// app holds the state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	verbose    bool
	quiet      bool

	cfg *config.Config
	log hclog.Logger
}

// NewRootCmd builds the backdrop command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "backdrop",
		Short: "Flatten translucent images onto a solid background",
		Long: `Backdrop composites images with transparency onto a solid background colour
at a chosen opacity and exports the results as opaque PNG files.

Process a batch from the command line, drive a live batch interactively
with "backdrop session", or serve the same operations over HTTP with
"backdrop serve". Colour names come from a curated palette with a
nearest-match and heuristic fallback.`,
		Version:      version.Short(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/backdrop/config.yaml)")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.SetVersionTemplate(version.String() + "\n")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newProcessCmd(a))
	rootCmd.AddCommand(newNameCmd())
	rootCmd.AddCommand(newColoursCmd())
	rootCmd.AddCommand(newSessionCmd(a))
	rootCmd.AddCommand(newServeCmd(a))

	return rootCmd
}

// load reads configuration and creates the logger.
func (a *app) load(logOutput io.Writer) error {
	cfg, err := config.NewBuilder().
		WithFile(a.configPath).
		WithEnvConfig().
		Build()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = newLogger(logOutput, cfg.LogLevel, a.verbose, a.quiet)
	a.log.Debug("configuration loaded", "opacity", cfg.Opacity, "background", cfg.Background,
		"workers", cfg.Workers, "debounce", cfg.Debounce)
	return nil
}

// newLogger creates the root logger. Verbose and quiet override the
// configured level.
func newLogger(out io.Writer, level string, verbose, quiet bool) hclog.Logger {
	lvl := hclog.LevelFromString(level)
	switch {
	case verbose:
		lvl = hclog.Debug
	case quiet:
		lvl = hclog.Error
	case lvl == hclog.NoLevel:
		lvl = hclog.Info
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:   "backdrop",
		Output: out,
		Level:  lvl,
	})
}

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including build date, commit hash, and Go version.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), version.GetInfo())
			}
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}
