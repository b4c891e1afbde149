// Package main is the entry point for the loglens rule matching engine.
package main

import (
	"fmt"
	"os"

	"loglens/cmd"
)

func main() {
	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
