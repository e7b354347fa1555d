// Command folio compiles a site directory incrementally.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/folio/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands print their own failures as ExitErrors; flag and
		// argument errors from cobra arrive here unprinted.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(cli.ExitCommandError)
		}
		os.Exit(exitErr.Code)
	}
}
