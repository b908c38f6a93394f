// Backdrop flattens translucent images onto a solid background colour.
package main

import (
	"os"

	"github.com/jmylchreest/backdrop/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
