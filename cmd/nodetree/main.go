// Command nodetree stores and serves a hierarchy of named nodes with numeric
// properties.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/nodetree/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
