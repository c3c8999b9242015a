// Package main is the entry point for the pim CLI binary.
package main

import (
	"os"

	cli "quickpim/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
