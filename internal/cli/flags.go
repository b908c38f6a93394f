package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/jmylchreest/backdrop/internal/colour"
	"github.com/jmylchreest/backdrop/internal/compositor"
	"github.com/jmylchreest/backdrop/internal/security"
)

// colourValue is a pflag.Value holding a normalised "#rrggbb" colour.
type colourValue string

var _ pflag.Value = (*colourValue)(nil)

func (c *colourValue) String() string { return string(*c) }

func (c *colourValue) Set(s string) error {
	hex, err := colour.NormaliseHex(s)
	if err != nil {
		return err
	}
	*c = colourValue(hex)
	return nil
}

func (c *colourValue) Type() string { return "colour" }

// opacityValue is a pflag.Value holding an opacity clamped to [0,100].
type opacityValue int

var _ pflag.Value = (*opacityValue)(nil)

func (o *opacityValue) String() string { return strconv.Itoa(int(*o)) }

func (o *opacityValue) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("opacity must be a whole number between %d and %d", compositor.MinOpacity, compositor.MaxOpacity)
	}
	*o = opacityValue(security.ClampInt(n, compositor.MinOpacity, compositor.MaxOpacity))
	return nil
}

func (o *opacityValue) Type() string { return "percent" }

// paramFlags are the compositing flags shared by process, session and serve.
type paramFlags struct {
	opacity    opacityValue
	background colourValue
}

func (p *paramFlags) register(fs *pflag.FlagSet) {
	fs.VarP(&p.opacity, "opacity", "p", "foreground opacity percentage (0-100)")
	fs.VarP(&p.background, "background", "b", "background colour as hex (e.g. 1e1e2e or #1e1e2e)")
}

// apply overrides the configured params with any flags that were set.
func (p *paramFlags) apply(fs *pflag.FlagSet, a *app) {
	if fs.Changed("opacity") {
		a.cfg.Opacity = int(p.opacity)
	}
	if fs.Changed("background") {
		a.cfg.Background = string(p.background)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
