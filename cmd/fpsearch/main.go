// Package main provides the entry point for the fpsearch CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/fpsearch/cmd/fpsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
