// Package cli implements the runsheetctl command tree.
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var serviceURL string

var rootCmd = &cobra.Command{
	Use:   "runsheetctl",
	Short: "Runsheet data service CLI",
	Long: `runsheetctl drives the runsheet data service from the terminal.

Upload CSV batches, trigger the simulated spreadsheet sync, reset the
demo dataset to its morning baseline, and inspect the demo state.`,
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serviceURL, "url", "http://localhost:8000", "data service URL")
}

// printData pretty-prints a response payload.
func printData(data json.RawMessage) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return
	}
	fmt.Println(buf.String())
}
