package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/backdrop/internal/colour"
)

// newColoursCmd creates the colours command.
func newColoursCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "colours",
		Aliases: []string{"colors", "palette"},
		Short:   "List the named colour palette",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			palette := colour.Palette()
			out := cmd.OutOrStdout()

			switch strings.ToLower(format) {
			case "json":
				return writeJSON(out, palette)
			case "text", "":
				table := NewTable([]string{"HEX", "NAME", "RGB"})
				for _, c := range palette {
					table.AddRow([]string{c.Hex, c.Name, c.RGB.String()})
				}
				fmt.Fprint(out, table.Render())
				fmt.Fprintf(out, "\n%d colours\n", len(palette))
				return nil
			default:
				return fmt.Errorf("unknown format %q (use text or json)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text, json)")
	return cmd
}
