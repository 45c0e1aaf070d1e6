// Package main is the entry point for the sabrget CLI.
package main

import (
	"os"

	"github.com/jmylchreest/sabrgo/cmd/sabrget/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
