// Command querify compiles JSON-style filter expressions to InfluxQL, MySQL,
// MongoDB and pandas.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/querify/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
