// Command powermarket publishes energy demands and supplies and negotiates
// agreements between them.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/powermarket/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
