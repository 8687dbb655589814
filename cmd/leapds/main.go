// Package main is the entry point of the leapds CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/leapds/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
