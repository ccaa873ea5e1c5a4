// Package main is the entry point for the tavern session client.
package main

import (
	"fmt"
	"os"

	"tavern/internal/cli"
)

func main() {
	rootCmd := cli.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
