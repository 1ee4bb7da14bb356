// Package main is the entry point for the mail-actions CLI. Each subcommand
// is one workflow action; a non-zero exit status signals action failure to
// the orchestration host.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
