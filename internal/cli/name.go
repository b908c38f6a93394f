package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/backdrop/internal/colour"
)

// colourName is one classified colour.
type colourName struct {
	Input string `json:"input"`
	Hex   string `json:"hex,omitempty"`
	Name  string `json:"name"`
	// Text is the black or white foreground that reads best on Hex.
	Text string `json:"text,omitempty"`
}

func classify(inputs []string) []colourName {
	names := make([]colourName, len(inputs))
	for i, in := range inputs {
		names[i] = colourName{Input: in, Name: colour.NameOf(in)}
		if rgb, err := colour.ParseHex(in); err == nil {
			names[i].Hex = rgb.Hex()
			names[i].Text = colour.ReadableOn(rgb).Hex()
		}
	}
	return names
}

// newNameCmd creates the name command.
func newNameCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "name <colour>...",
		Short: "Name colours",
		Long: `Name one or more colours given as 6-digit hex values.

Exact palette matches are returned as-is, colours close to a palette entry
take its name, and anything else is described by hue and lightness
(for example "Very Dark" or "Grayish"). Invalid input is echoed back.

Examples:
  backdrop name ff0000 "#fefefe" 123456
  backdrop name --format json 1e1e2e`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := classify(args)
			out := cmd.OutOrStdout()

			switch strings.ToLower(format) {
			case "json":
				return writeJSON(out, names)
			case "text", "":
				table := NewTable([]string{"INPUT", "HEX", "NAME"})
				for _, n := range names {
					table.AddRow([]string{n.Input, n.Hex, n.Name})
				}
				fmt.Fprint(out, table.Render())
				return nil
			default:
				return fmt.Errorf("unknown format %q (use text or json)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text, json)")
	return cmd
}
