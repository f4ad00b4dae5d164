// Command runsheetctl is the CLI for the runsheet data service.
package main

import (
	"os"

	"github.com/runsheet-systems/runsheet-data/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
