// Package main provides the retail-lineage command.
package main

import (
	"os"

	"github.com/correlator-io/retail-lineage/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
