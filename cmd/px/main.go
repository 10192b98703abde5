// Package main is the entry point for the px command line client.
package main

import (
	"fmt"
	"os"

	"github.com/sakif/px/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(&cli.RootOptions{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
