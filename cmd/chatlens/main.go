// Package main is the entry point for the chatlens CLI.
package main

import (
	"os"

	"github.com/chatlens/chatlens/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
