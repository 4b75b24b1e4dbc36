// Command mapper runs the metadata mapping platform.
package main

import (
	"os"

	"metadata-mapper/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
