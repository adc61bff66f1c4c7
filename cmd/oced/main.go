// Command oced validates object-centric event data instances and searches
// bounded instance spaces for witnesses and counterexamples.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/oced/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "oced:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
