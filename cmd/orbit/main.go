// Package main is the entry point for the orbit CLI.
package main

import (
	"os"

	"github.com/thoreinstein/orbit/cmd/orbit/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
