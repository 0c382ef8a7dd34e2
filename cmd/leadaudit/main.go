// Package main provides the CLI for the leadaudit CRM lead audit.
package main

import (
	"os"

	"github.com/leapstack-labs/leadaudit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
